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

// Package plugin implements the plugin/reader lifecycle registry and the
// hot-plug observation fan-out for observable, autonomous and pool
// plugins (SPEC_FULL.md MODULE J).
package plugin

// EventType identifies the kind of Event delivered to observers.
type EventType int

const (
	EventReaderConnected EventType = iota
	EventReaderDisconnected
	EventUnavailable
)

func (t EventType) String() string {
	switch t {
	case EventReaderConnected:
		return "READER_CONNECTED"
	case EventReaderDisconnected:
		return "READER_DISCONNECTED"
	case EventUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to observers registered on an ObservablePlugin or
// AutonomousPlugin.
type Event struct {
	PluginName  string
	Type        EventType
	ReaderNames []string
}
