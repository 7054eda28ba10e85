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

package polling

import (
	"context"
	"sync/atomic"
)

// baseMockDriver implements spi.ReaderSpi and spi.ObservableReaderSpi with
// trivial bodies, following the teacher's BlockingMockTransport pattern of
// a small struct exposing hand-driven test hooks rather than a mocking
// framework.
type baseMockDriver struct {
	name        string
	present     atomic.Bool
	presenceErr atomic.Pointer[error]
}

func (d *baseMockDriver) Name() string                            { return d.name }
func (*baseMockDriver) OpenPhysicalChannel(context.Context) error { return nil }
func (*baseMockDriver) ClosePhysicalChannel() error               { return nil }
func (*baseMockDriver) IsPhysicalChannelOpen() bool                { return true }
func (d *baseMockDriver) CheckCardPresence(context.Context) (bool, error) {
	if p := d.presenceErr.Load(); p != nil {
		return false, *p
	}
	return d.present.Load(), nil
}
func (*baseMockDriver) PowerOnData() string { return "3B8001FF" }
func (*baseMockDriver) IsContactless() bool { return true }
func (*baseMockDriver) TransmitAPDU(context.Context, []byte) ([]byte, error) {
	return []byte{0x90, 0x00}, nil
}
func (*baseMockDriver) OnUnregister()     {}
func (*baseMockDriver) OnStartDetection() {}
func (*baseMockDriver) OnStopDetection()  {}

// setPresenceErr makes every subsequent CheckCardPresence call fail with err.
func (d *baseMockDriver) setPresenceErr(err error) {
	d.presenceErr.Store(&err)
}

// asyncMockDriver pushes insertion/removal via stored callbacks, modeling
// spi.CardInsertionWaiterAsynchronous / spi.CardRemovalWaiterAsynchronous.
type asyncMockDriver struct {
	baseMockDriver
	onInserted func()
	onRemoved  func()
}

func newAsyncMockDriver(name string) *asyncMockDriver {
	return &asyncMockDriver{baseMockDriver: baseMockDriver{name: name}}
}

func (d *asyncMockDriver) SetCardInsertionCallback(cb func()) { d.onInserted = cb }
func (d *asyncMockDriver) SetCardRemovalCallback(cb func())   { d.onRemoved = cb }

func (d *asyncMockDriver) TriggerInserted() {
	d.present.Store(true)
	if d.onInserted != nil {
		d.onInserted()
	}
}

func (d *asyncMockDriver) TriggerRemoved() {
	d.present.Store(false)
	if d.onRemoved != nil {
		d.onRemoved()
	}
}

// blockingMockDriver blocks WaitForInsertion/WaitForRemoval until
// Simulate*/Stop* is called, the same unblock-on-demand shape as the
// teacher's BlockingMockTransport.
type blockingMockDriver struct {
	baseMockDriver
	insertChan chan struct{}
	removeChan chan struct{}
}

func newBlockingMockDriver(name string) *blockingMockDriver {
	return &blockingMockDriver{
		baseMockDriver: baseMockDriver{name: name},
		insertChan:     make(chan struct{}, 1),
		removeChan:     make(chan struct{}, 1),
	}
}

func (d *blockingMockDriver) WaitForInsertion(ctx context.Context) error {
	select {
	case <-d.insertChan:
		d.present.Store(true)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *blockingMockDriver) StopWaitForInsertion() {
	select {
	case d.insertChan <- struct{}{}:
	default:
	}
}

func (d *blockingMockDriver) SimulateInsertion() { d.insertChan <- struct{}{} }

func (d *blockingMockDriver) WaitForRemoval(ctx context.Context) error {
	select {
	case <-d.removeChan:
		d.present.Store(false)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *blockingMockDriver) StopWaitForRemoval() {
	select {
	case d.removeChan <- struct{}{}:
	default:
	}
}

func (d *blockingMockDriver) SimulateRemoval() { d.removeChan <- struct{}{} }

// pollMockDriver exposes no waiter interfaces at all, forcing the
// active-insertion/active-removal polling jobs.
type pollMockDriver struct {
	baseMockDriver
}

func newPollMockDriver(name string) *pollMockDriver {
	return &pollMockDriver{baseMockDriver: baseMockDriver{name: name}}
}

// recordingObserver collects every ReaderEvent it receives, in order.
type recordingReaderObserver struct {
	mu     chan struct{} // binary semaphore, avoids pulling in sync for a one-field guard
	events []ReaderEvent
}

func newRecordingReaderObserver() *recordingReaderObserver {
	o := &recordingReaderObserver{mu: make(chan struct{}, 1)}
	o.mu <- struct{}{}
	return o
}

func (o *recordingReaderObserver) OnEvent(event ReaderEvent) {
	<-o.mu
	o.events = append(o.events, event)
	o.mu <- struct{}{}
}

func (o *recordingReaderObserver) snapshot() []ReaderEvent {
	<-o.mu
	defer func() { o.mu <- struct{}{} }()
	out := make([]ReaderEvent, len(o.events))
	copy(out, o.events)
	return out
}
