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

	log "github.com/sirupsen/logrus"

	"github.com/ZaparooProject/go-cardsvc"
	"github.com/ZaparooProject/go-cardsvc/observation"
	"github.com/ZaparooProject/go-cardsvc/spi"
)

// LocalPlugin is a static reader set: SearchAvailableReaders is called once,
// at registration, and the reader set never changes on its own afterward.
type LocalPlugin struct {
	mu         sync.RWMutex
	name       string
	driver     spi.PluginSpi
	readers    map[string]*Reader
	registered bool

	handlerMu        sync.RWMutex
	exceptionHandler observation.ExceptionHandler
}

// NewLocalPlugin enumerates driver's readers once and wraps each.
func NewLocalPlugin(ctx context.Context, driver spi.PluginSpi) (*LocalPlugin, error) {
	p := &LocalPlugin{name: driver.Name(), driver: driver, readers: make(map[string]*Reader), registered: true}
	specs, err := driver.SearchAvailableReaders(ctx)
	if err != nil {
		return nil, &cardsvc.PluginIOError{Plugin: p.name, Err: err}
	}
	for _, spec := range specs {
		p.readers[spec.Name()] = wrapReader(spec)
	}
	return p, nil
}

// Name returns the plugin's driver-reported name.
func (p *LocalPlugin) Name() string { return p.name }

// SetExceptionHandler installs handler to receive plugin-level I/O errors
// that occur outside any single call a caller is blocked on — background
// enumeration failures, in particular (SPEC_FULL.md MODULE J). A nil
// handler means such errors are only logged.
func (p *LocalPlugin) SetExceptionHandler(handler observation.ExceptionHandler) {
	p.handlerMu.Lock()
	defer p.handlerMu.Unlock()
	p.exceptionHandler = handler
}

func (p *LocalPlugin) reportException(err error) {
	p.handlerMu.RLock()
	handler := p.exceptionHandler
	p.handlerMu.RUnlock()
	if handler != nil {
		handler.OnException(p.name, err)
		return
	}
	log.WithField("plugin", p.name).WithError(err).Warn("unhandled plugin exception")
}

// ReaderNames returns the currently known reader names, sorted is not
// guaranteed; callers that need a stable order should sort themselves.
func (p *LocalPlugin) ReaderNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.readers))
	for name := range p.readers {
		names = append(names, name)
	}
	return names
}

// GetReader returns the named reader, or cardsvc.ErrReaderNotFound.
func (p *LocalPlugin) GetReader(name string) (*Reader, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.readers[name]
	if !ok {
		return nil, cardsvc.ErrReaderNotFound
	}
	return r, nil
}

// Unregister tears down every reader and the plugin driver itself. Safe to
// call more than once.
func (p *LocalPlugin) Unregister() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.registered {
		return
	}
	for _, r := range p.readers {
		r.unregister()
	}
	p.readers = make(map[string]*Reader)
	p.registered = false
	p.driver.OnUnregister()
}

func (p *LocalPlugin) putReader(name string, r *Reader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readers[name] = r
}

func (p *LocalPlugin) dropReader(name string) (*Reader, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.readers[name]
	if ok {
		delete(p.readers, name)
	}
	return r, ok
}

func (p *LocalPlugin) readerNamesSnapshot() map[string]struct{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]struct{}, len(p.readers))
	for name := range p.readers {
		out[name] = struct{}{}
	}
	return out
}
