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
	"context"
	"sync"

	"github.com/ZaparooProject/go-cardsvc"
	"github.com/ZaparooProject/go-cardsvc/spi"
)

// LocalPoolPlugin allocates readers from a backend pool on demand rather
// than exposing a fixed or hot-plugged reader set.
type LocalPoolPlugin struct {
	mu         sync.Mutex
	driver     spi.PoolPluginSpi
	allocated  map[string]*Reader
	registered bool
}

// NewLocalPoolPlugin wraps driver. No readers are allocated until
// AllocateReader is called.
func NewLocalPoolPlugin(driver spi.PoolPluginSpi) *LocalPoolPlugin {
	return &LocalPoolPlugin{driver: driver, allocated: make(map[string]*Reader), registered: true}
}

// Name returns the plugin's driver-reported name.
func (p *LocalPoolPlugin) Name() string { return p.driver.Name() }

// ReaderGroupReferences lists the backend's allocatable groups.
func (p *LocalPoolPlugin) ReaderGroupReferences(ctx context.Context) ([]string, error) {
	refs, err := p.driver.ReaderGroupReferences(ctx)
	if err != nil {
		return nil, &cardsvc.PluginIOError{Plugin: p.Name(), Err: err}
	}
	return refs, nil
}

// AllocateReader asks the backend for a reader in groupReference and wraps
// it for use, tracking it for later release.
func (p *LocalPoolPlugin) AllocateReader(ctx context.Context, groupReference string) (*Reader, error) {
	spec, err := p.driver.AllocateReader(ctx, groupReference)
	if err != nil {
		return nil, &cardsvc.PluginIOError{Plugin: p.Name(), Err: err}
	}
	r := wrapReader(spec)

	p.mu.Lock()
	p.allocated[spec.Name()] = r
	p.mu.Unlock()
	return r, nil
}

// GetSelectedSmartCard returns the SmartCard the pool backend pre-selected
// on r, or nil if the backend reports no power-on data for it.
func (p *LocalPoolPlugin) GetSelectedSmartCard(r *Reader) cardsvc.SmartCard {
	powerOnData := p.driver.SelectedSmartCardPowerOnData(r.driver)
	if powerOnData == "" {
		return nil
	}
	return cardsvc.NewPowerOnOnlySmartCard(powerOnData)
}

// ReleaseReader returns r to the backend pool.
func (p *LocalPoolPlugin) ReleaseReader(ctx context.Context, r *Reader) error {
	p.mu.Lock()
	delete(p.allocated, r.Local.Name())
	p.mu.Unlock()

	if err := p.driver.ReleaseReader(ctx, r.driver); err != nil {
		return &cardsvc.PluginIOError{Plugin: p.Name(), Err: err}
	}
	r.unregister()
	return nil
}

// Unregister releases every still-allocated reader and the driver itself.
func (p *LocalPoolPlugin) Unregister() {
	p.mu.Lock()
	if !p.registered {
		p.mu.Unlock()
		return
	}
	readers := p.allocated
	p.allocated = make(map[string]*Reader)
	p.registered = false
	p.mu.Unlock()

	for _, r := range readers {
		r.unregister()
	}
	p.driver.OnUnregister()
}
