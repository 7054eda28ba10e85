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

// Package observation implements the generic observer-set-plus-exception-
// handler shared by reader and plugin observability (SPEC_FULL.md MODULE
// D). It is generic over the event type so that one implementation backs
// both polling.ReaderEvent and plugin.Event observers, following the teacher's one
// use of generics (internal/transport/retry.go's RetryOperation[T]) rather
// than hand-duplicating the same set logic twice.
package observation

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Observer receives events of type E.
type Observer[E any] interface {
	OnEvent(event E)
}

// ExceptionHandler is notified when an Observer.OnEvent call panics or
// when a caller reports an error that occurred while producing an event.
type ExceptionHandler interface {
	OnException(source string, err error)
}

// ExceptionHandlerFunc adapts a function to ExceptionHandler.
type ExceptionHandlerFunc func(source string, err error)

func (f ExceptionHandlerFunc) OnException(source string, err error) { f(source, err) }

// Manager owns a set of observers (identity-equality, adding the same
// observer twice is a no-op) and an optional exception handler. It is safe
// for concurrent use.
type Manager[E any] struct {
	mu       sync.RWMutex
	observers map[Observer[E]]struct{}
	handler  ExceptionHandler
	source   string
}

// NewManager returns an empty Manager. source identifies the owning
// reader/plugin in log messages and exception-handler calls.
func NewManager[E any](source string) *Manager[E] {
	return &Manager[E]{observers: make(map[Observer[E]]struct{}), source: source}
}

// AddObserver adds obs to the set. A no-op if obs is already present.
func (m *Manager[E]) AddObserver(obs Observer[E]) {
	if obs == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers[obs] = struct{}{}
}

// RemoveObserver removes obs from the set. A no-op if obs was never added.
func (m *Manager[E]) RemoveObserver(obs Observer[E]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, obs)
}

// Count returns the number of distinct observers currently registered.
func (m *Manager[E]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers)
}

// Snapshot returns the current observer set as a slice, safe to iterate
// after releasing the manager's lock so that a concurrent RemoveObserver
// during notification cannot deadlock or skip observers inconsistently.
func (m *Manager[E]) Snapshot() []Observer[E] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Observer[E], 0, len(m.observers))
	for obs := range m.observers {
		out = append(out, obs)
	}
	return out
}

// SetExceptionHandler installs handler, replacing any previous one. A nil
// handler means exceptions are logged and swallowed.
func (m *Manager[E]) SetExceptionHandler(handler ExceptionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

func (m *Manager[E]) currentHandler() ExceptionHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handler
}

// NotifyObservers calls OnEvent(event) on every currently-registered
// observer, serially, in the snapshot iteration order. A panic from one
// observer is recovered, forwarded to the exception handler (or logged if
// none is set), and notification continues with the remaining observers.
func (m *Manager[E]) NotifyObservers(event E) {
	for _, obs := range m.Snapshot() {
		m.notifyOne(obs, event)
	}
}

func (m *Manager[E]) notifyOne(obs Observer[E], event E) {
	defer func() {
		if r := recover(); r != nil {
			m.reportException(fmt.Errorf("observer panic: %v", r))
		}
	}()
	obs.OnEvent(event)
}

func (m *Manager[E]) reportException(err error) {
	if handler := m.currentHandler(); handler != nil {
		handler.OnException(m.source, err)
		return
	}
	log.WithField("source", m.source).WithError(err).Warn("unhandled observer exception")
}

// ReportException forwards err to the installed exception handler, or logs
// it if none is set. Exported so that callers outside this package — a
// monitoring job reporting a driver error, a plugin reporting a failed
// enumeration — can reuse the same handler-or-log fallback that observer
// panics already go through, rather than reimplementing it.
func (m *Manager[E]) ReportException(err error) {
	m.reportException(err)
}
