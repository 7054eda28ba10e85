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

func TestDefaultAcceptedStatusWords(t *testing.T) {
	t.Parallel()
	req := &CardRequest{AcceptedStatusWords: DefaultAcceptedStatusWords()}
	assert.True(t, req.accepts(0x9000))
	assert.True(t, req.accepts(0x6283))
	assert.False(t, req.accepts(0x6A82))
}

func TestCardRequest_AcceptsDefaultsTo9000WhenUnset(t *testing.T) {
	t.Parallel()
	req := &CardRequest{}
	assert.True(t, req.accepts(0x9000))
	assert.False(t, req.accepts(0x6283))
}

func TestNewApduRequest_CopiesInput(t *testing.T) {
	t.Parallel()
	raw := []byte{0x00, 0xA4, 0x04, 0x00}
	req := NewApduRequest(raw)
	raw[0] = 0xFF
	assert.Equal(t, byte(0x00), req.RawData[0])
}

func TestDefaultSelectionExtension_ParseResponse(t *testing.T) {
	t.Parallel()
	ext := &DefaultSelectionExtension{}

	_, err := ext.ParseResponse(NewCardSelectionResponse("", nil, false, nil))
	assert.Error(t, err)

	resp := NewCardSelectionResponse("3B8001FF", nil, true, nil)
	card, err := ext.ParseResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "3B8001FF", card.PowerOnData())
}

func TestPowerOnOnlySmartCard(t *testing.T) {
	t.Parallel()
	card := NewPowerOnOnlySmartCard("3B8001FF")
	assert.Equal(t, "3B8001FF", card.PowerOnData())
}
