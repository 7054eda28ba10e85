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

	"github.com/ZaparooProject/go-cardsvc/spi"
)

// mockReader is the minimum spi.ReaderSpi a plugin test needs; it never
// talks to a real card.
type mockReader struct {
	name string
}

func newMockReader(name string) *mockReader { return &mockReader{name: name} }

func (r *mockReader) Name() string                                    { return r.name }
func (*mockReader) OpenPhysicalChannel(context.Context) error         { return nil }
func (*mockReader) ClosePhysicalChannel() error                       { return nil }
func (*mockReader) IsPhysicalChannelOpen() bool                       { return true }
func (*mockReader) CheckCardPresence(context.Context) (bool, error)   { return false, nil }
func (*mockReader) PowerOnData() string                               { return "" }
func (*mockReader) IsContactless() bool                               { return true }
func (*mockReader) TransmitAPDU(context.Context, []byte) ([]byte, error) {
	return []byte{0x90, 0x00}, nil
}
func (*mockReader) OnUnregister() {}

// mockStaticPluginDriver implements spi.PluginSpi with a fixed reader list,
// for LocalPlugin tests.
type mockStaticPluginDriver struct {
	name        string
	readers     []spi.ReaderSpi
	unregistered bool
}

func (d *mockStaticPluginDriver) Name() string { return d.name }
func (d *mockStaticPluginDriver) SearchAvailableReaders(context.Context) ([]spi.ReaderSpi, error) {
	return d.readers, nil
}
func (d *mockStaticPluginDriver) OnUnregister() { d.unregistered = true }

// mockObservablePluginDriver implements spi.ObservablePluginSpi with a
// mutable reader-name list a test can change between polls.
type mockObservablePluginDriver struct {
	mu      sync.Mutex
	name    string
	readers map[string]spi.ReaderSpi
	enumErr error
}

func newMockObservablePluginDriver(name string) *mockObservablePluginDriver {
	return &mockObservablePluginDriver{name: name, readers: make(map[string]spi.ReaderSpi)}
}

func (d *mockObservablePluginDriver) setReaders(readers ...spi.ReaderSpi) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readers = make(map[string]spi.ReaderSpi, len(readers))
	for _, r := range readers {
		d.readers[r.Name()] = r
	}
}

// setEnumErr makes every subsequent SearchAvailableReaderNames call fail.
func (d *mockObservablePluginDriver) setEnumErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enumErr = err
}

func (d *mockObservablePluginDriver) Name() string { return d.name }

func (d *mockObservablePluginDriver) SearchAvailableReaders(context.Context) ([]spi.ReaderSpi, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]spi.ReaderSpi, 0, len(d.readers))
	for _, r := range d.readers {
		out = append(out, r)
	}
	return out, nil
}

func (d *mockObservablePluginDriver) SearchAvailableReaderNames(context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enumErr != nil {
		return nil, d.enumErr
	}
	names := make([]string, 0, len(d.readers))
	for name := range d.readers {
		names = append(names, name)
	}
	return names, nil
}

func (d *mockObservablePluginDriver) SearchReader(_ context.Context, name string) (spi.ReaderSpi, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readers[name], nil
}

func (*mockObservablePluginDriver) MonitoringCycleDuration() int { return 10 }

func (*mockObservablePluginDriver) OnUnregister() {}

// mockAutonomousPluginDriver implements spi.AutonomousObservablePluginSpi,
// letting a test push connect/disconnect events directly.
type mockAutonomousPluginDriver struct {
	name         string
	onConnected  func([]spi.ReaderSpi)
	onDisconnected func([]string)
}

func (d *mockAutonomousPluginDriver) Name() string { return d.name }
func (*mockAutonomousPluginDriver) SearchAvailableReaders(context.Context) ([]spi.ReaderSpi, error) {
	return nil, nil
}
func (*mockAutonomousPluginDriver) OnUnregister() {}
func (d *mockAutonomousPluginDriver) SetReaderConnectedCallback(cb func([]spi.ReaderSpi)) {
	d.onConnected = cb
}
func (d *mockAutonomousPluginDriver) SetReaderDisconnectedCallback(cb func([]string)) {
	d.onDisconnected = cb
}

// recordingPluginObserver collects every Event it receives, in order.
type recordingPluginObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingPluginObserver) OnEvent(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingPluginObserver) snapshot() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Event, len(o.events))
	copy(out, o.events)
	return out
}
