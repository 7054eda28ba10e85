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

package polling

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ZaparooProject/go-cardsvc/spi"
)

const defaultPollInterval = 100 * time.Millisecond

// monitoringJob is run on the reader's executor while the state machine is
// in a state that owns one (SPEC_FULL.md MODULE E). Each implementation
// checks its own stop flag cooperatively and, for blocking variants, also
// requires the driver to support a matching stop-wait method.
type monitoringJob interface {
	run(ctx context.Context)
	cancel()
}

// reportJobError forwards err to onError if one was supplied. Monitoring
// jobs run on the reader's executor, off any caller's goroutine, so this is
// the only path an operational error has to reach an installed exception
// handler (SPEC_FULL.md MODULE E/G: "errors are caught, logged, and
// forwarded to the handler; jobs do not kill the worker thread").
func reportJobError(onError func(error), err error) {
	if onError != nil {
		onError(err)
	}
}

// activeInsertionJob polls CheckCardPresence until it reports true.
type activeInsertionJob struct {
	driver  spi.ReaderSpi
	onFound func()
	onError func(error)
	stop    chan struct{}
}

func newActiveInsertionJob(driver spi.ReaderSpi, onFound func(), onError func(error)) *activeInsertionJob {
	return &activeInsertionJob{driver: driver, onFound: onFound, onError: onError, stop: make(chan struct{})}
}

func (j *activeInsertionJob) cancel() { close(j.stop) }

func (j *activeInsertionJob) run(ctx context.Context) {
	interval := defaultPollInterval
	if np, ok := j.driver.(spi.CardInsertionWaiterNonBlocking); ok {
		if ms := np.GetCardInsertionMonitoringSleepDuration(); ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stop:
			return
		case <-ticker.C:
			present, err := j.driver.CheckCardPresence(ctx)
			if err != nil {
				log.WithField("reader", j.driver.Name()).WithError(err).Debug("active insertion poll failed")
				reportJobError(j.onError, err)
				continue
			}
			if present {
				j.onFound()
				return
			}
		}
	}
}

// passiveInsertionJob blocks on the driver's WaitForInsertion.
type passiveInsertionJob struct {
	driver  spi.CardInsertionWaiterBlocking
	onFound func()
	onError func(error)
}

func newPassiveInsertionJob(
	driver spi.CardInsertionWaiterBlocking, onFound func(), onError func(error),
) *passiveInsertionJob {
	return &passiveInsertionJob{driver: driver, onFound: onFound, onError: onError}
}

func (j *passiveInsertionJob) cancel() { j.driver.StopWaitForInsertion() }

func (j *passiveInsertionJob) run(ctx context.Context) {
	if err := j.driver.WaitForInsertion(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Debug("wait for insertion returned an error")
		reportJobError(j.onError, err)
		return
	}
	j.onFound()
}

// activeRemovalJob polls the driver's CheckCardPresence until it reports
// the card gone, the fallback removal detector for drivers that implement
// neither spi.CardRemovalWaiterAsynchronous nor
// spi.CardRemovalWaiterBlocking (SPEC_FULL.md MODULE G). Every
// spi.ReaderSpi must implement CheckCardPresence, so this job always has
// something to poll.
type activeRemovalJob struct {
	driver  spi.ReaderSpi
	onGone  func()
	onError func(error)
	stop    chan struct{}
}

func newActiveRemovalJob(driver spi.ReaderSpi, onGone func(), onError func(error)) *activeRemovalJob {
	return &activeRemovalJob{driver: driver, onGone: onGone, onError: onError, stop: make(chan struct{})}
}

func (j *activeRemovalJob) cancel() { close(j.stop) }

func (j *activeRemovalJob) run(ctx context.Context) {
	interval := defaultPollInterval
	if np, ok := j.driver.(spi.CardRemovalWaiterNonBlocking); ok {
		if ms := np.GetCardRemovalMonitoringSleepDuration(); ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stop:
			return
		case <-ticker.C:
			present, err := j.driver.CheckCardPresence(ctx)
			if err != nil {
				log.WithField("reader", j.driver.Name()).WithError(err).Debug("active removal poll failed")
				reportJobError(j.onError, err)
				j.onGone()
				return
			}
			if !present {
				j.onGone()
				return
			}
		}
	}
}

// passiveRemovalJob blocks on the driver's WaitForRemoval.
type passiveRemovalJob struct {
	driver  spi.CardRemovalWaiterBlocking
	onGone  func()
	onError func(error)
}

func newPassiveRemovalJob(
	driver spi.CardRemovalWaiterBlocking, onGone func(), onError func(error),
) *passiveRemovalJob {
	return &passiveRemovalJob{driver: driver, onGone: onGone, onError: onError}
}

func (j *passiveRemovalJob) cancel() { j.driver.StopWaitForRemoval() }

func (j *passiveRemovalJob) run(ctx context.Context) {
	if err := j.driver.WaitForRemoval(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Debug("wait for removal returned an error")
		reportJobError(j.onError, err)
		return
	}
	j.onGone()
}

// passivePresenceMonitorJob watches for removal during
// WAIT_FOR_CARD_PROCESSING on drivers that expose
// spi.CardPresenceMonitorBlocking (SPEC_FULL.md, MODULE E supplement). When
// WaitForCardAbsent returns it calls onGone, which posts CARD_REMOVED; the
// state machine then emits the removal event and leaves
// WAIT_FOR_CARD_PROCESSING as for any other removal.
type passivePresenceMonitorJob struct {
	driver  spi.CardPresenceMonitorBlocking
	onGone  func()
	onError func(error)
}

func newPassivePresenceMonitorJob(
	driver spi.CardPresenceMonitorBlocking, onGone func(), onError func(error),
) *passivePresenceMonitorJob {
	return &passivePresenceMonitorJob{driver: driver, onGone: onGone, onError: onError}
}

func (j *passivePresenceMonitorJob) cancel() { j.driver.StopPresenceMonitor() }

func (j *passivePresenceMonitorJob) run(ctx context.Context) {
	if err := j.driver.WaitForCardAbsent(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Debug("presence monitor returned an error")
		reportJobError(j.onError, err)
		return
	}
	j.onGone()
}
