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

package observation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	events []int
}

func (o *recordingObserver) OnEvent(event int) { o.events = append(o.events, event) }

type panickingObserver struct{}

func (panickingObserver) OnEvent(int) { panic("boom") }

func TestManager_AddObserverIsIdempotent(t *testing.T) {
	t.Parallel()

	m := NewManager[int]("reader1")
	obs := &recordingObserver{}

	m.AddObserver(obs)
	m.AddObserver(obs)

	assert.Equal(t, 1, m.Count())
}

func TestManager_RemoveNeverAddedIsNoOp(t *testing.T) {
	t.Parallel()

	m := NewManager[int]("reader1")
	m.RemoveObserver(&recordingObserver{})

	assert.Equal(t, 0, m.Count())
}

func TestManager_NotifyObserversInvokesAll(t *testing.T) {
	t.Parallel()

	m := NewManager[int]("reader1")
	obs1 := &recordingObserver{}
	obs2 := &recordingObserver{}
	m.AddObserver(obs1)
	m.AddObserver(obs2)

	m.NotifyObservers(42)

	assert.Equal(t, []int{42}, obs1.events)
	assert.Equal(t, []int{42}, obs2.events)
}

func TestManager_PanickingObserverDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	m := NewManager[int]("reader1")
	var gotSource string
	var gotErr error
	m.SetExceptionHandler(ExceptionHandlerFunc(func(source string, err error) {
		gotSource, gotErr = source, err
	}))

	ok := &recordingObserver{}
	m.AddObserver(panickingObserver{})
	m.AddObserver(ok)

	require.NotPanics(t, func() { m.NotifyObservers(1) })

	assert.Equal(t, []int{1}, ok.events)
	assert.Equal(t, "reader1", gotSource)
	require.Error(t, gotErr)
}

func TestManager_RemoveDuringNotificationDoesNotPanic(t *testing.T) {
	t.Parallel()

	m := NewManager[int]("reader1")
	var self *recordingObserver
	removing := &removingObserver{manager: m, get: func() Observer[int] { return self }}
	self = &recordingObserver{}
	m.AddObserver(removing)
	m.AddObserver(self)

	assert.NotPanics(t, func() { m.NotifyObservers(7) })
}

type removingObserver struct {
	manager *Manager[int]
	get     func() Observer[int]
}

func (r removingObserver) OnEvent(int) { r.manager.RemoveObserver(r.get()) }

func TestManager_NoHandlerSwallowsException(t *testing.T) {
	t.Parallel()

	m := NewManager[int]("reader1")
	m.AddObserver(panickingObserver{})

	assert.NotPanics(t, func() { m.NotifyObservers(1) })
}
