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

// CardSelectionResult maps selection-case index to the SmartCard parsed
// from a matched response, plus which index (if any) is considered
// "active" — the first match, by construction of
// CardSelectionManager.ProcessCardSelectionScenario.
type CardSelectionResult struct {
	smartCards   map[int]SmartCard
	activeIndex  int
}

// NewCardSelectionResult returns an empty result with no active index.
func NewCardSelectionResult() *CardSelectionResult {
	return &CardSelectionResult{smartCards: make(map[int]SmartCard), activeIndex: -1}
}

func (r *CardSelectionResult) put(index int, card SmartCard) {
	r.smartCards[index] = card
	if r.activeIndex == -1 {
		r.activeIndex = index
	}
}

// SmartCards returns the index-to-SmartCard map. Callers must not mutate
// the returned map.
func (r *CardSelectionResult) SmartCards() map[int]SmartCard { return r.smartCards }

// ActiveSelectionIndex returns the index of the first matched case, or -1
// if nothing matched.
func (r *CardSelectionResult) ActiveSelectionIndex() int { return r.activeIndex }

// ActiveSmartCard returns the SmartCard at ActiveSelectionIndex(), or nil
// if nothing matched.
func (r *CardSelectionResult) ActiveSmartCard() SmartCard {
	if r.activeIndex < 0 {
		return nil
	}
	return r.smartCards[r.activeIndex]
}
