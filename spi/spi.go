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

// Package spi defines the contracts a reader or plugin driver implements.
// The service core never imports a concrete driver; it discovers which of
// these optional interfaces a driver satisfies through type assertions,
// the same capability-checker idiom the teacher uses for
// TransportCapabilityChecker.
package spi

import "context"

// ReaderSpi is the minimum interface every reader driver must implement.
type ReaderSpi interface {
	Name() string
	OpenPhysicalChannel(ctx context.Context) error
	ClosePhysicalChannel() error
	IsPhysicalChannelOpen() bool
	CheckCardPresence(ctx context.Context) (bool, error)
	PowerOnData() string
	IsContactless() bool
	TransmitAPDU(ctx context.Context, apdu []byte) ([]byte, error)
	OnUnregister()
}

// ConfigurableReaderSpi is implemented by readers whose reader-level
// protocol activation can be toggled (multi-protocol RF front ends).
type ConfigurableReaderSpi interface {
	ReaderSpi
	IsProtocolSupported(readerProtocol string) bool
	ActivateProtocol(readerProtocol string) error
	DeactivateProtocol(readerProtocol string) error
	IsCurrentProtocol(readerProtocol string) bool
}

// ObservableReaderSpi is implemented by readers that participate in the
// insertion/removal state machine.
type ObservableReaderSpi interface {
	ReaderSpi
	OnStartDetection()
	OnStopDetection()
}

// CardInsertionWaiterAsynchronous is implemented by drivers that push
// insertion notifications through the callback registered by
// SetCardInsertionCallback, rather than being polled or waited on.
type CardInsertionWaiterAsynchronous interface {
	SetCardInsertionCallback(onCardInserted func())
}

// CardInsertionWaiterBlocking is implemented by drivers whose
// WaitForInsertion blocks until a card arrives and can be unblocked from
// another goroutine by StopWaitForInsertion.
type CardInsertionWaiterBlocking interface {
	WaitForInsertion(ctx context.Context) error
	StopWaitForInsertion()
}

// CardInsertionWaiterNonBlocking is implemented by drivers that must be
// polled for insertion; GetCardInsertionMonitoringSleepDuration gives the
// poll interval.
type CardInsertionWaiterNonBlocking interface {
	GetCardInsertionMonitoringSleepDuration() int // milliseconds
}

// CardRemovalWaiterAsynchronous is the removal-side symmetric of
// CardInsertionWaiterAsynchronous.
type CardRemovalWaiterAsynchronous interface {
	SetCardRemovalCallback(onCardRemoved func())
}

// CardRemovalWaiterBlocking is the removal-side symmetric of
// CardInsertionWaiterBlocking.
type CardRemovalWaiterBlocking interface {
	WaitForRemoval(ctx context.Context) error
	StopWaitForRemoval()
}

// CardRemovalWaiterNonBlocking is the removal-side symmetric of
// CardInsertionWaiterNonBlocking.
type CardRemovalWaiterNonBlocking interface {
	GetCardRemovalMonitoringSleepDuration() int // milliseconds
}

// CardPresenceMonitorBlocking is used during WAIT_FOR_CARD_PROCESSING by
// drivers that can block waiting for presence to change without a full
// removal-waiter implementation.
type CardPresenceMonitorBlocking interface {
	WaitForCardPresent(ctx context.Context) error
	WaitForCardAbsent(ctx context.Context) error
	StopPresenceMonitor()
}

// PluginSpi is the minimum interface every plugin driver implements.
type PluginSpi interface {
	Name() string
	SearchAvailableReaders(ctx context.Context) ([]ReaderSpi, error)
	OnUnregister()
}

// ObservablePluginSpi is implemented by plugins that can be polled for
// hot-plug changes.
type ObservablePluginSpi interface {
	PluginSpi
	SearchAvailableReaderNames(ctx context.Context) ([]string, error)
	SearchReader(ctx context.Context, name string) (ReaderSpi, error)
	MonitoringCycleDuration() int // milliseconds
}

// AutonomousObservablePluginSpi is implemented by plugins that push
// hot-plug changes themselves by calling back into the callbacks the
// service registers, rather than being polled.
type AutonomousObservablePluginSpi interface {
	PluginSpi
	SetReaderConnectedCallback(onReadersConnected func([]ReaderSpi))
	SetReaderDisconnectedCallback(onReadersDisconnected func([]string))
}

// PoolPluginSpi is implemented by plugins backed by a reader pool rather
// than a fixed reader set.
type PoolPluginSpi interface {
	Name() string
	ReaderGroupReferences(ctx context.Context) ([]string, error)
	AllocateReader(ctx context.Context, groupReference string) (ReaderSpi, error)
	ReleaseReader(ctx context.Context, reader ReaderSpi) error
	// SelectedSmartCardPowerOnData returns the power-on data of whatever
	// card the pool backend pre-selected on this reader, or "" if none.
	SelectedSmartCardPowerOnData(reader ReaderSpi) string
	OnUnregister()
}
