// go-cardsvc
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cardsvc.
//
// go-cardsvc is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cardsvc is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cardsvc; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package plugin

import (
	"sync"

	"github.com/ZaparooProject/go-cardsvc"
)

// Service is the process-wide entry point (SPEC_FULL.md MODULE L): it owns
// the plugin registry and re-exports the selector/manager constructors
// package cardsvc defines, so a caller only needs to import package plugin
// for everyday use.
type Service struct {
	registry *Registry
}

var (
	defaultService     *Service
	defaultServiceOnce sync.Once
)

// GetService returns the process-wide Service, constructing it with an
// empty registry on first call.
func GetService() *Service {
	defaultServiceOnce.Do(func() {
		defaultService = &Service{registry: NewRegistry()}
	})
	return defaultService
}

// NewService returns a standalone Service with its own registry, for tests
// that must not share the process-wide singleton.
func NewService() *Service {
	return &Service{registry: NewRegistry()}
}

// RegisterPlugin adds p to the service's registry.
func (s *Service) RegisterPlugin(p Plugin) error {
	return s.registry.Register(p)
}

// GetPlugin returns the named plugin.
func (s *Service) GetPlugin(name string) (Plugin, error) {
	return s.registry.Get(name)
}

// GetReader looks a reader up by plugin name then reader name.
func (s *Service) GetReader(pluginName, readerName string) (*Reader, error) {
	p, err := s.registry.Get(pluginName)
	if err != nil {
		return nil, err
	}
	return p.GetReader(readerName)
}

// PluginNames lists every registered plugin's name.
func (s *Service) PluginNames() []string { return s.registry.Names() }

// UnregisterPlugin removes and tears down the named plugin.
func (s *Service) UnregisterPlugin(name string) error { return s.registry.Unregister(name) }

// Shutdown tears down every registered plugin.
func (s *Service) Shutdown() { s.registry.UnregisterAll() }

// NewBasicCardSelector is the facade spelling of cardsvc.NewBasicCardSelector.
func NewBasicCardSelector() *cardsvc.BasicCardSelector { return cardsvc.NewBasicCardSelector() }

// NewIsoCardSelector is the facade spelling of cardsvc.NewIsoCardSelector.
func NewIsoCardSelector() *cardsvc.IsoCardSelector { return cardsvc.NewIsoCardSelector() }

// NewCardSelectionManager is the facade spelling of
// cardsvc.NewCardSelectionManager.
func NewCardSelectionManager() *cardsvc.CardSelectionManager {
	return cardsvc.NewCardSelectionManager()
}
