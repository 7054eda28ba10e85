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

import "fmt"

// ApduResponse is the immutable result of transmitting a single APDU to a
// card: the raw bytes the driver returned, with the trailing status word
// split off for convenience.
type ApduResponse struct {
	raw []byte
}

// NewApduResponse builds an ApduResponse from raw driver output. raw must
// be at least 2 bytes (the status word); a shorter response is a driver
// bug, not a recoverable condition, so this panics rather than returning an
// error the way the teacher's internal/frame validation panics on an
// impossible frame length.
func NewApduResponse(raw []byte) *ApduResponse {
	if len(raw) < 2 {
		panic(fmt.Sprintf("cardsvc: apdu response too short: %d bytes", len(raw)))
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &ApduResponse{raw: cp}
}

// RawData returns the full response, data plus the two status-word bytes.
func (r *ApduResponse) RawData() []byte { return r.raw }

// StatusWord returns SW1<<8|SW2.
func (r *ApduResponse) StatusWord() uint16 {
	n := len(r.raw)
	return uint16(r.raw[n-2])<<8 | uint16(r.raw[n-1])
}

// DataOut returns the response bytes preceding the status word. Never nil,
// even when there is no data (an empty, non-nil slice).
func (r *ApduResponse) DataOut() []byte {
	n := len(r.raw)
	out := make([]byte, n-2)
	copy(out, r.raw[:n-2])
	return out
}

// HasMoreData reports SW1 == 0x61 (GET RESPONSE chaining available).
func (r *ApduResponse) HasMoreData() bool {
	return len(r.raw) >= 2 && r.raw[len(r.raw)-2] == 0x61
}

// NeedsLeCorrection reports SW1 == 0x6C (reissue with SW2 as the correct Le).
func (r *ApduResponse) NeedsLeCorrection() bool {
	return len(r.raw) >= 2 && r.raw[len(r.raw)-2] == 0x6C
}

// IsSuccess reports StatusWord() == 0x9000.
func (r *ApduResponse) IsSuccess() bool {
	return r.StatusWord() == 0x9000
}

func (r *ApduResponse) String() string {
	return fmt.Sprintf("ApduResponse{sw=%04X, data=%d bytes}", r.StatusWord(), len(r.raw)-2)
}

// CardResponse is the immutable result of transmitting an ordered set of
// APDUs to a card (a CardRequest), one ApduResponse per APDU, plus whether
// the logical channel used remained open afterwards.
type CardResponse struct {
	apduResponses        []*ApduResponse
	isLogicalChannelOpen bool
}

// NewCardResponse builds a CardResponse. responses is retained as-is; the
// caller must not mutate the backing slice afterward.
func NewCardResponse(responses []*ApduResponse, logicalChannelOpen bool) *CardResponse {
	return &CardResponse{apduResponses: responses, isLogicalChannelOpen: logicalChannelOpen}
}

// ApduResponses returns the responses in request order.
func (r *CardResponse) ApduResponses() []*ApduResponse { return r.apduResponses }

// IsLogicalChannelOpen reports whether the logical channel was open when
// this response was built; a close applied afterwards by the
// channel-control policy or a release request is not reflected.
func (r *CardResponse) IsLogicalChannelOpen() bool { return r.isLogicalChannelOpen }

// CardSelectionResponse is the immutable outcome of attempting one
// selection case from a CardSelectionScenario against a card.
type CardSelectionResponse struct {
	powerOnData                string
	selectApplicationResponse  *ApduResponse
	cardResponse               *CardResponse
	hasMatched                 bool
}

// NewCardSelectionResponse builds a CardSelectionResponse. selectResp may
// be nil (the selector had no AID, so no SELECT APPLICATION was sent); a
// non-nil selectResp and hasMatched=false both occur together when the
// card answered SELECT APPLICATION with a status word the selector
// rejected (see SPEC_FULL.md, supplement 2).
func NewCardSelectionResponse(
	powerOnData string, selectResp *ApduResponse, hasMatched bool, cardResp *CardResponse,
) *CardSelectionResponse {
	return &CardSelectionResponse{
		powerOnData:               powerOnData,
		selectApplicationResponse: selectResp,
		hasMatched:                hasMatched,
		cardResponse:              cardResp,
	}
}

// PowerOnData returns the card's ATR/ATS as observed at channel opening.
func (r *CardSelectionResponse) PowerOnData() string { return r.powerOnData }

// SelectApplicationResponse returns the raw SELECT APPLICATION response,
// or nil if the selector carried no AID.
func (r *CardSelectionResponse) SelectApplicationResponse() *ApduResponse {
	return r.selectApplicationResponse
}

// HasMatched reports whether this selection case is considered successful:
// the power-on data matched the selector's regex (if any) and, if an AID
// was supplied, SELECT APPLICATION returned a status word in
// DefaultAcceptedStatusWords. That set is used for every case; neither
// the selector nor its extension can supply a different one.
func (r *CardSelectionResponse) HasMatched() bool { return r.hasMatched }

// CardResponse returns the response to the optional CardRequest bundled
// with this selection case, or nil if none was executed (selection did not
// match, or no CardRequest was supplied).
func (r *CardSelectionResponse) CardResponse() *CardResponse { return r.cardResponse }
