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

package plugin

import (
	"github.com/ZaparooProject/go-cardsvc"
	"github.com/ZaparooProject/go-cardsvc/polling"
	"github.com/ZaparooProject/go-cardsvc/spi"
)

// Reader is either a plain LocalReader or, when the driver implements
// spi.ObservableReaderSpi, an ObservableReader — the flattened
// "capability set" SPEC_FULL.md's design notes call for in place of the
// original's abstract/local/observable/configurable inheritance chain.
type Reader struct {
	Local      *cardsvc.LocalReader
	Observable *polling.ObservableReader

	driver spi.ReaderSpi
}

// wrapReader chooses the richest wrapper the driver's capabilities allow.
func wrapReader(driver spi.ReaderSpi) *Reader {
	local := cardsvc.NewLocalReader(driver)
	if obs, ok := driver.(spi.ObservableReaderSpi); ok {
		return &Reader{Local: local, Observable: polling.NewObservableReader(local, obs), driver: driver}
	}
	return &Reader{Local: local, driver: driver}
}

// Name returns the reader's driver-reported name.
func (r *Reader) Name() string { return r.Local.Name() }

// IsObservable reports whether this reader supports insertion/removal
// observation.
func (r *Reader) IsObservable() bool { return r.Observable != nil }

// unregister tears down whichever wrapper is present.
func (r *Reader) unregister() {
	if r.Observable != nil {
		r.Observable.Unregister()
		return
	}
	r.Local.Unregister()
}
