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

// Package polling implements the observable-reader card-insertion/removal
// state machine, its monitoring jobs, and the executor-backed adapter that
// ties them to a LocalReader (SPEC_FULL.md MODULES E, F, G, I).
package polling

import "github.com/ZaparooProject/go-cardsvc"

// ReaderState is one of the four states of the observable reader state
// machine (SPEC_FULL.md MODULE G).
type ReaderState int

const (
	StateWaitForStartDetection ReaderState = iota
	StateWaitForCardInsertion
	StateWaitForCardProcessing
	StateWaitForCardRemoval
)

func (s ReaderState) String() string {
	switch s {
	case StateWaitForStartDetection:
		return "WAIT_FOR_START_DETECTION"
	case StateWaitForCardInsertion:
		return "WAIT_FOR_CARD_INSERTION"
	case StateWaitForCardProcessing:
		return "WAIT_FOR_CARD_PROCESSING"
	case StateWaitForCardRemoval:
		return "WAIT_FOR_CARD_REMOVAL"
	default:
		return "UNKNOWN"
	}
}

// event is one of the six internal events of the state machine.
// ObservableReader.Unregister does not deliver eventUnregister; it stops
// the current job directly and leaves the state as it was.
type event int

const (
	eventStartDetect event = iota
	eventStopDetect
	eventCardInserted
	eventCardProcessed
	eventCardRemoved
	eventUnregister
)

// DetectionMode controls what happens after a card is processed:
// REPEATING returns to watching for removal then re-arms; SINGLE_SHOT
// returns straight to WAIT_FOR_START_DETECTION.
type DetectionMode int

const (
	DetectionRepeating DetectionMode = iota
	DetectionSingleShot
)

// ReaderEventType identifies the kind of ReaderEvent delivered to observers.
type ReaderEventType int

const (
	ReaderEventCardInserted ReaderEventType = iota
	ReaderEventCardMatched
	ReaderEventCardRemoved
	ReaderEventUnavailable
)

func (t ReaderEventType) String() string {
	switch t {
	case ReaderEventCardInserted:
		return "CARD_INSERTED"
	case ReaderEventCardMatched:
		return "CARD_MATCHED"
	case ReaderEventCardRemoved:
		return "CARD_REMOVED"
	case ReaderEventUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// ReaderEvent is delivered to observers registered on an ObservableReader.
type ReaderEvent struct {
	ReaderName string
	Type       ReaderEventType
	// SelectionResponses is set on CARD_INSERTED/CARD_MATCHED events when
	// a scenario was scheduled and ran during WAIT_FOR_CARD_PROCESSING.
	SelectionResponses []*cardsvc.CardSelectionResponse
}
