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

func TestApduResponse_PanicsOnShortRaw(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewApduResponse([]byte{0x90}) })
}

func TestApduResponse_StatusWordAndDataOut(t *testing.T) {
	t.Parallel()
	resp := NewApduResponse([]byte{0x01, 0x02, 0x90, 0x00})
	assert.Equal(t, uint16(0x9000), resp.StatusWord())
	assert.Equal(t, []byte{0x01, 0x02}, resp.DataOut())
	assert.True(t, resp.IsSuccess())
}

func TestApduResponse_TwoByteSuccessResponseHasEmptyData(t *testing.T) {
	t.Parallel()
	resp := NewApduResponse([]byte{0x90, 0x00})
	assert.Empty(t, resp.DataOut())
	assert.True(t, resp.IsSuccess())
}

func TestApduResponse_MoreDataAndLeCorrectionFlags(t *testing.T) {
	t.Parallel()
	assert.True(t, NewApduResponse([]byte{0x61, 0x05}).HasMoreData())
	assert.True(t, NewApduResponse([]byte{0x6C, 0x05}).NeedsLeCorrection())
	assert.False(t, NewApduResponse([]byte{0x90, 0x00}).HasMoreData())
}

func TestCardResponse_ExposesResponsesAndChannelState(t *testing.T) {
	t.Parallel()
	r1 := NewApduResponse([]byte{0x90, 0x00})
	cr := NewCardResponse([]*ApduResponse{r1}, true)
	require.Len(t, cr.ApduResponses(), 1)
	assert.True(t, cr.IsLogicalChannelOpen())
}

func TestCardSelectionResponse_AccessorsRoundTrip(t *testing.T) {
	t.Parallel()
	sel := NewApduResponse([]byte{0x90, 0x00})
	card := NewCardResponse(nil, true)
	resp := NewCardSelectionResponse("3B8001FF", sel, true, card)

	assert.Equal(t, "3B8001FF", resp.PowerOnData())
	assert.Same(t, sel, resp.SelectApplicationResponse())
	assert.True(t, resp.HasMatched())
	assert.Same(t, card, resp.CardResponse())
}
