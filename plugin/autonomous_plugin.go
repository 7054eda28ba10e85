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
	"sort"

	"github.com/ZaparooProject/go-cardsvc/observation"
	"github.com/ZaparooProject/go-cardsvc/spi"
)

// AutonomousLocalPlugin wraps a LocalPlugin whose driver pushes hot-plug
// changes itself through the callbacks registered at construction time,
// rather than being polled.
type AutonomousLocalPlugin struct {
	*LocalPlugin

	driver    spi.AutonomousObservablePluginSpi
	observers *observation.Manager[Event]
}

// NewAutonomousLocalPlugin builds the plugin and installs its push
// callbacks.
func NewAutonomousLocalPlugin(ctx context.Context, driver spi.AutonomousObservablePluginSpi) (*AutonomousLocalPlugin, error) {
	base, err := NewLocalPlugin(ctx, driver)
	if err != nil {
		return nil, err
	}
	p := &AutonomousLocalPlugin{
		LocalPlugin: base,
		driver:      driver,
		observers:   observation.NewManager[Event](driver.Name()),
	}
	driver.SetReaderConnectedCallback(p.onReadersConnected)
	driver.SetReaderDisconnectedCallback(p.onReadersDisconnected)
	return p, nil
}

// AddObserver registers obs to receive plugin hot-plug events.
func (p *AutonomousLocalPlugin) AddObserver(obs observation.Observer[Event]) {
	p.observers.AddObserver(obs)
}

// RemoveObserver unregisters obs.
func (p *AutonomousLocalPlugin) RemoveObserver(obs observation.Observer[Event]) {
	p.observers.RemoveObserver(obs)
}

func (p *AutonomousLocalPlugin) onReadersConnected(specs []spi.ReaderSpi) {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		p.putReader(spec.Name(), wrapReader(spec))
		names = append(names, spec.Name())
	}
	sort.Strings(names)
	if len(names) > 0 {
		p.observers.NotifyObservers(Event{PluginName: p.Name(), Type: EventReaderConnected, ReaderNames: names})
	}
}

func (p *AutonomousLocalPlugin) onReadersDisconnected(names []string) {
	gone := make([]string, 0, len(names))
	for _, name := range names {
		if r, ok := p.dropReader(name); ok {
			r.unregister()
			gone = append(gone, name)
		}
	}
	sort.Strings(gone)
	if len(gone) > 0 {
		p.observers.NotifyObservers(Event{PluginName: p.Name(), Type: EventReaderDisconnected, ReaderNames: gone})
	}
}
