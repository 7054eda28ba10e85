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

// Package executor provides the single-worker task queue that hosts one
// observable reader's monitoring job at a time (SPEC_FULL.md MODULE F).
package executor

import (
	"context"
	"time"
)

// Task is a unit of work submitted to an Executor.
type Task func(ctx context.Context)

// Executor runs submitted tasks one at a time, in submission order, on a
// single background goroutine.
type Executor struct {
	tasks  chan Task
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts the worker goroutine and returns an Executor ready to accept
// tasks. queueDepth bounds how many pending tasks Submit may buffer before
// blocking; a monitoring job's typical queue depth is 1.
func New(queueDepth int) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		tasks:  make(chan Task, queueDepth),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go e.run(ctx)
	return e
}

func (e *Executor) run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-e.tasks:
			if !ok {
				return
			}
			task(ctx)
		}
	}
}

// Submit enqueues task. It returns false without enqueuing if the executor
// has already been shut down.
func (e *Executor) Submit(task Task) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.tasks <- task:
		return true
	case <-e.done:
		return false
	}
}

// Shutdown cancels the running task (via its context) and stops accepting
// new tasks, then waits up to grace for the worker to exit.
func (e *Executor) Shutdown(grace time.Duration) {
	e.cancel()
	select {
	case <-e.done:
	case <-time.After(grace):
	}
}
