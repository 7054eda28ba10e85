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
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ZaparooProject/go-cardsvc"
	"github.com/ZaparooProject/go-cardsvc/observation"
	"github.com/ZaparooProject/go-cardsvc/spi"
)

// ObservableLocalPlugin wraps a LocalPlugin with a background goroutine that
// periodically diffs spi.ObservablePluginSpi.SearchAvailableReaderNames
// snapshots, emitting READER_CONNECTED/READER_DISCONNECTED for the
// difference, following the teacher's polling-loop-plus-diff shape
// (internal/transport/retry.go's ticker loop is the closest analogue in the
// retrieved pack; hot-plug polling itself has no teacher precedent, so this
// loop is modeled on that shape rather than copied from it).
type ObservableLocalPlugin struct {
	*LocalPlugin

	driver    spi.ObservablePluginSpi
	observers *observation.Manager[Event]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewObservableLocalPlugin builds the plugin and starts its monitoring loop.
func NewObservableLocalPlugin(ctx context.Context, driver spi.ObservablePluginSpi) (*ObservableLocalPlugin, error) {
	base, err := NewLocalPlugin(ctx, driver)
	if err != nil {
		return nil, err
	}
	p := &ObservableLocalPlugin{
		LocalPlugin: base,
		driver:      driver,
		observers:   observation.NewManager[Event](driver.Name()),
	}
	p.startMonitoring()
	return p, nil
}

// AddObserver registers obs to receive plugin hot-plug events.
func (p *ObservableLocalPlugin) AddObserver(obs observation.Observer[Event]) {
	p.observers.AddObserver(obs)
}

// RemoveObserver unregisters obs.
func (p *ObservableLocalPlugin) RemoveObserver(obs observation.Observer[Event]) {
	p.observers.RemoveObserver(obs)
}

func (p *ObservableLocalPlugin) startMonitoring() {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	interval := time.Duration(p.driver.MonitoringCycleDuration()) * time.Millisecond
	if interval <= 0 {
		interval = 1000 * time.Millisecond
	}

	go p.monitorLoop(ctx, interval)
}

func (p *ObservableLocalPlugin) monitorLoop(ctx context.Context, interval time.Duration) {
	defer close(p.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *ObservableLocalPlugin) pollOnce(ctx context.Context) {
	names, err := p.driver.SearchAvailableReaderNames(ctx)
	if err != nil {
		log.WithField("plugin", p.Name()).WithError(err).Warn("reader enumeration failed")
		ioErr := &cardsvc.PluginIOError{Plugin: p.Name(), Err: err}
		p.reportException(ioErr)
		p.observers.NotifyObservers(Event{PluginName: p.Name(), Type: EventUnavailable})
		return
	}
	current := make(map[string]struct{}, len(names))
	for _, n := range names {
		current[n] = struct{}{}
	}

	known := p.readerNamesSnapshot()

	var connected, disconnected []string
	for n := range current {
		if _, ok := known[n]; !ok {
			connected = append(connected, n)
		}
	}
	for n := range known {
		if _, ok := current[n]; !ok {
			disconnected = append(disconnected, n)
		}
	}
	sort.Strings(connected)
	sort.Strings(disconnected)

	for _, name := range connected {
		spec, err := p.driver.SearchReader(ctx, name)
		if err != nil {
			log.WithField("plugin", p.Name()).WithField("reader", name).WithError(err).Warn("reader appeared but could not be opened")
			continue
		}
		p.putReader(name, wrapReader(spec))
	}
	for _, name := range disconnected {
		if r, ok := p.dropReader(name); ok {
			r.unregister()
		}
	}

	if len(connected) > 0 {
		p.observers.NotifyObservers(Event{PluginName: p.Name(), Type: EventReaderConnected, ReaderNames: connected})
	}
	if len(disconnected) > 0 {
		p.observers.NotifyObservers(Event{PluginName: p.Name(), Type: EventReaderDisconnected, ReaderNames: disconnected})
	}
}

// Unregister stops the monitoring loop before tearing down the underlying
// LocalPlugin.
func (p *ObservableLocalPlugin) Unregister() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	p.LocalPlugin.Unregister()
}
