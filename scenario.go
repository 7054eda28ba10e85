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

package cardsvc

// MultiSelectionPolicy controls whether the per-case selection loop stops
// at the first match or runs every case.
type MultiSelectionPolicy int

const (
	MultiSelectionFirstMatch MultiSelectionPolicy = iota
	MultiSelectionProcessAll
)

// ChannelControlPolicy controls whether the logical and physical channels
// are left open or closed once a selection scenario finishes.
type ChannelControlPolicy int

const (
	ChannelControlKeepOpen ChannelControlPolicy = iota
	ChannelControlCloseAfter
)

// NotificationMode controls which CARD_INSERTED-family events an
// observable reader delivers to observers once a scheduled
// CardSelectionScenario has run (SPEC_FULL.md MODULE G).
type NotificationMode int

const (
	NotifyAlways NotificationMode = iota
	NotifyMatchedOnly
)

// ApduRequest is a single command APDU to send to a card, already encoded
// (CLA/INS/P1/P2/[Lc/data]/[Le]).
type ApduRequest struct {
	RawData []byte
	// Info is a free-form label used only for logging.
	Info string
}

// NewApduRequest wraps raw as an ApduRequest.
func NewApduRequest(raw []byte) *ApduRequest {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &ApduRequest{RawData: cp}
}

// CardRequest is the optional APDU exchange bundled with a selection case,
// executed on the logical channel once selection/filtering succeeds.
type CardRequest struct {
	ApduRequests        []*ApduRequest
	AcceptedStatusWords map[uint16]bool
	// StopOnUnsuccessful halts remaining APDUs in this request once one
	// returns a status word outside AcceptedStatusWords.
	StopOnUnsuccessful bool
}

// DefaultAcceptedStatusWords is {0x9000: success, 0x6283: invalidated but
// matched}, the default success set for SELECT APPLICATION per
// SPEC_FULL.md MODULE H step 3.
func DefaultAcceptedStatusWords() map[uint16]bool {
	return map[uint16]bool{0x9000: true, 0x6283: true}
}

func (r *CardRequest) accepts(sw uint16) bool {
	if len(r.AcceptedStatusWords) == 0 {
		return sw == 0x9000
	}
	return r.AcceptedStatusWords[sw]
}

// SmartCard is the result of successfully parsing a matched
// CardSelectionResponse. Concrete card-protocol libraries (Calypso,
// MIFARE, ...) provide richer implementations; this package only requires
// PowerOnData() for its own bookkeeping.
type SmartCard interface {
	PowerOnData() string
}

// SelectionExtension produces the optional CardRequest for a selection
// case and parses a matched CardSelectionResponse into a SmartCard.
// Extensions are supplied by card-protocol libraries, out of this
// package's scope (SPEC_FULL.md DOMAIN STACK); DefaultSelectionExtension
// below is the trivial extension used when the caller only needs
// ISO-7816-4 selection plumbing with no higher protocol on top.
type SelectionExtension interface {
	CreateCardRequest() *CardRequest
	ParseResponse(resp *CardSelectionResponse) (SmartCard, error)
}

// basicSmartCard is the SmartCard produced by DefaultSelectionExtension:
// a thin wrapper exposing the raw CardSelectionResponse.
type basicSmartCard struct {
	resp *CardSelectionResponse
}

func (c *basicSmartCard) PowerOnData() string { return c.resp.PowerOnData() }

// Response returns the CardSelectionResponse this smart card was built
// from, for callers that need the raw select-application/card response.
func (c *basicSmartCard) Response() *CardSelectionResponse { return c.resp }

// DefaultSelectionExtension is a no-op SelectionExtension: it issues no
// extra APDUs beyond selection, and wraps a matched response as a
// basicSmartCard without further parsing.
type DefaultSelectionExtension struct {
	Request *CardRequest
}

func (e *DefaultSelectionExtension) CreateCardRequest() *CardRequest { return e.Request }

func (*DefaultSelectionExtension) ParseResponse(resp *CardSelectionResponse) (SmartCard, error) {
	if resp == nil || !resp.HasMatched() {
		return nil, &InvalidCardResponseError{Reason: "response did not match selector"}
	}
	return &basicSmartCard{resp: resp}, nil
}

// PowerOnOnlySmartCard is a SmartCard carrying nothing but power-on data,
// used where a card was pre-selected by something other than this
// package's own selection engine (e.g. a pool plugin backend).
type PowerOnOnlySmartCard struct {
	powerOnData string
}

// NewPowerOnOnlySmartCard wraps powerOnData as a SmartCard.
func NewPowerOnOnlySmartCard(powerOnData string) *PowerOnOnlySmartCard {
	return &PowerOnOnlySmartCard{powerOnData: powerOnData}
}

func (c *PowerOnOnlySmartCard) PowerOnData() string { return c.powerOnData }

// selectionCase pairs one selector with the extension that will build its
// optional request and parse a match.
type selectionCase struct {
	selector  Selector
	extension SelectionExtension
}

// CardSelectionScenario is the immutable plan executed against a card: an
// ordered list of selection cases plus the policies governing how many of
// them run and what happens to the logical channel afterward.
type CardSelectionScenario struct {
	cases        []selectionCase
	multiPolicy  MultiSelectionPolicy
	channelCtrl  ChannelControlPolicy
}

func newCardSelectionScenario(
	cases []selectionCase, multi MultiSelectionPolicy, channel ChannelControlPolicy,
) *CardSelectionScenario {
	cp := make([]selectionCase, len(cases))
	copy(cp, cases)
	return &CardSelectionScenario{cases: cp, multiPolicy: multi, channelCtrl: channel}
}
