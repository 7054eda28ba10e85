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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestP2For_MatchesSpecTable(t *testing.T) {
	t.Parallel()
	assert.Equal(t, byte(0x00), p2For(FileOccurrenceFirst, FileControlInformationFCI))
	assert.Equal(t, byte(0x09), p2For(FileOccurrenceLast, FileControlInformationFMCI))
	assert.Equal(t, byte(0x0F), p2For(FileOccurrencePrevious, FileControlInformationNoResponse))
	assert.Equal(t, byte(0x0A), p2For(FileOccurrenceNext, FileControlInformationFMCI))
}

func TestBasicCardSelector_DefaultsMatchEverything(t *testing.T) {
	t.Parallel()
	s := NewBasicCardSelector()
	assert.Empty(t, s.protocol())
	assert.Nil(t, s.powerOnDataRegexp())
	assert.Nil(t, s.aid())
}

func TestBasicCardSelector_WithPowerOnDataRegex_RejectsMalformedPattern(t *testing.T) {
	t.Parallel()
	s := NewBasicCardSelector()
	_, err := s.WithPowerOnDataRegex("(unterminated")
	require.Error(t, err)
	var argErr *IllegalArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestBasicCardSelector_WithPowerOnDataRegex_CompilesAndMatches(t *testing.T) {
	t.Parallel()
	s, err := NewBasicCardSelector().WithPowerOnDataRegex("^3B8")
	require.NoError(t, err)
	require.NotNil(t, s.powerOnDataRegexp())
	assert.True(t, s.powerOnDataRegexp().MatchString("3B8001FF"))
	assert.False(t, s.powerOnDataRegexp().MatchString("3C8001FF"))
}

func TestIsoCardSelector_Defaults(t *testing.T) {
	t.Parallel()
	s := NewIsoCardSelector()
	assert.Equal(t, FileOccurrenceFirst, s.fileOccurrence())
	assert.Equal(t, FileControlInformationFCI, s.fileControlInformation())
	assert.Nil(t, s.aid())
}

func TestIsoCardSelector_WithAID_ValidatesLength(t *testing.T) {
	t.Parallel()
	s := NewIsoCardSelector()

	_, err := s.WithAID([]byte{0x01, 0x02})
	assert.Error(t, err)

	_, err = s.WithAID(make([]byte, 17))
	assert.Error(t, err)

	withAID, err := s.WithAID([]byte{0xA0, 0x00, 0x00, 0x00, 0x03})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA0, 0x00, 0x00, 0x00, 0x03}, withAID.aid())
}

func TestIsoCardSelector_OverridesOccurrenceAndControlInfo(t *testing.T) {
	t.Parallel()
	s := NewIsoCardSelector().
		WithFileOccurrence(FileOccurrenceLast).
		WithFileControlInformation(FileControlInformationFCP)
	assert.Equal(t, FileOccurrenceLast, s.fileOccurrence())
	assert.Equal(t, FileControlInformationFCP, s.fileControlInformation())
}
