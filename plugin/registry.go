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

// Plugin is the minimum surface the service root needs from any of the four
// plugin flavors: a name, a way to reach a reader by name, and teardown.
type Plugin interface {
	Name() string
	GetReader(name string) (*Reader, error)
	ReaderNames() []string
	Unregister()
}

// Registry is the process-wide set of registered plugins, keyed by name.
// LocalPoolPlugin is intentionally not a Plugin (it has no fixed reader
// set to list by name) and is tracked separately by callers that need it.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds p under p.Name(), failing if that name is already taken.
func (reg *Registry) Register(p Plugin) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.plugins[p.Name()]; exists {
		return cardsvc.ErrAlreadyRegistered
	}
	reg.plugins[p.Name()] = p
	return nil
}

// Get returns the named plugin, or cardsvc.ErrPluginNotFound.
func (reg *Registry) Get(name string) (Plugin, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	p, ok := reg.plugins[name]
	if !ok {
		return nil, cardsvc.ErrPluginNotFound
	}
	return p, nil
}

// Names returns every registered plugin's name.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.plugins))
	for name := range reg.plugins {
		names = append(names, name)
	}
	return names
}

// Unregister removes and tears down the named plugin.
func (reg *Registry) Unregister(name string) error {
	reg.mu.Lock()
	p, ok := reg.plugins[name]
	if ok {
		delete(reg.plugins, name)
	}
	reg.mu.Unlock()
	if !ok {
		return cardsvc.ErrPluginNotFound
	}
	p.Unregister()
	return nil
}

// UnregisterAll tears down every registered plugin, used on service
// shutdown.
func (reg *Registry) UnregisterAll() {
	reg.mu.Lock()
	plugins := reg.plugins
	reg.plugins = make(map[string]Plugin)
	reg.mu.Unlock()
	for _, p := range plugins {
		p.Unregister()
	}
}
