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

import "regexp"

// FileOccurrence selects which instance of a named application/file the
// card should return when more than one matches.
type FileOccurrence int

const (
	FileOccurrenceFirst FileOccurrence = iota
	FileOccurrenceLast
	FileOccurrenceNext
	FileOccurrencePrevious
)

// FileControlInformation selects the shape of the data the card returns
// from a SELECT APPLICATION command.
type FileControlInformation int

const (
	FileControlInformationFCI FileControlInformation = iota
	FileControlInformationFCP
	FileControlInformationFMCI
	FileControlInformationNoResponse
)

// p2Table is indexed [FileOccurrence][FileControlInformation], mirroring
// the table in SPEC_FULL.md MODULE H.
var p2Table = [4][4]byte{
	{0x00, 0x04, 0x08, 0x0C}, // FIRST
	{0x01, 0x05, 0x09, 0x0D}, // LAST
	{0x02, 0x06, 0x0A, 0x0E}, // NEXT
	{0x03, 0x07, 0x0B, 0x0F}, // PREVIOUS
}

// p2For computes the P2 byte of a SELECT APPLICATION command for the given
// occurrence/control-information pair. Panics on an out-of-range value,
// which can only happen from a bug in this package since the enums above
// are closed.
func p2For(occ FileOccurrence, fci FileControlInformation) byte {
	return p2Table[occ][fci]
}

// Selector is implemented by BasicCardSelector and IsoCardSelector. It is
// the tagged-variant collapse of the original's selector class hierarchy
// (SPEC_FULL.md, design note on inheritance flattening).
type Selector interface {
	protocol() string
	powerOnDataRegexp() *regexp.Regexp
	aid() []byte
	fileOccurrence() FileOccurrence
	fileControlInformation() FileControlInformation
}

// BasicCardSelector filters card selection cases on logical protocol name
// and/or a regular expression over the card's power-on data, without any
// application (AID) selection step.
type BasicCardSelector struct {
	protocolName string
	powerOnRegex *regexp.Regexp
}

// NewBasicCardSelector returns a selector with no filters set: every card
// matches it.
func NewBasicCardSelector() *BasicCardSelector {
	return &BasicCardSelector{}
}

// WithProtocol restricts matching to cards whose resolved logical protocol
// equals name.
func (s *BasicCardSelector) WithProtocol(name string) *BasicCardSelector {
	s.protocolName = name
	return s
}

// WithPowerOnDataRegex restricts matching to cards whose power-on data
// matches pattern. The pattern is compiled immediately; a malformed
// pattern is rejected here rather than at match time, matching the
// original's eager regex construction (SPEC_FULL.md, supplement 1).
func (s *BasicCardSelector) WithPowerOnDataRegex(pattern string) (*BasicCardSelector, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &IllegalArgumentError{Arg: "powerOnDataRegex", Reason: err.Error()}
	}
	s.powerOnRegex = re
	return s, nil
}

func (s *BasicCardSelector) protocol() string                   { return s.protocolName }
func (s *BasicCardSelector) powerOnDataRegexp() *regexp.Regexp   { return s.powerOnRegex }
func (*BasicCardSelector) aid() []byte                           { return nil }
func (*BasicCardSelector) fileOccurrence() FileOccurrence        { return FileOccurrenceFirst }
func (*BasicCardSelector) fileControlInformation() FileControlInformation {
	return FileControlInformationFCI
}

// IsoCardSelector adds ISO-7816-4 application selection (AID, file
// occurrence, file control information) on top of BasicCardSelector's
// protocol/power-on-data filters.
type IsoCardSelector struct {
	BasicCardSelector
	applicationID []byte
	occurrence    FileOccurrence
	controlInfo   FileControlInformation
}

// NewIsoCardSelector returns a selector defaulting to
// FileOccurrenceFirst/FileControlInformationFCI with no AID set (which
// means no SELECT APPLICATION is issued unless WithAID is called).
func NewIsoCardSelector() *IsoCardSelector {
	return &IsoCardSelector{
		occurrence:  FileOccurrenceFirst,
		controlInfo: FileControlInformationFCI,
	}
}

// WithAID sets the application identifier to select. aid must be 5-16
// bytes.
func (s *IsoCardSelector) WithAID(aid []byte) (*IsoCardSelector, error) {
	if len(aid) < 5 || len(aid) > 16 {
		return nil, &IllegalArgumentError{Arg: "aid", Reason: "must be 5-16 bytes"}
	}
	cp := make([]byte, len(aid))
	copy(cp, aid)
	s.applicationID = cp
	return s, nil
}

// WithFileOccurrence overrides the default FIRST occurrence.
func (s *IsoCardSelector) WithFileOccurrence(occ FileOccurrence) *IsoCardSelector {
	s.occurrence = occ
	return s
}

// WithFileControlInformation overrides the default FCI control info.
func (s *IsoCardSelector) WithFileControlInformation(fci FileControlInformation) *IsoCardSelector {
	s.controlInfo = fci
	return s
}

func (s *IsoCardSelector) aid() []byte                           { return s.applicationID }
func (s *IsoCardSelector) fileOccurrence() FileOccurrence        { return s.occurrence }
func (s *IsoCardSelector) fileControlInformation() FileControlInformation {
	return s.controlInfo
}
