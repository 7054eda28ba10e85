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
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ZaparooProject/go-cardsvc"
	"github.com/ZaparooProject/go-cardsvc/internal/executor"
	"github.com/ZaparooProject/go-cardsvc/observation"
	"github.com/ZaparooProject/go-cardsvc/spi"
)

const shutdownGrace = 500 * time.Millisecond

// ObservableReader combines the state machine (MODULE G) with the
// executor-backed job lifecycle (MODULE F) and the event fan-out
// (MODULE I), following SPEC_FULL.md's design note that a manually
// managed port does not need the adapter indirection the original's
// inheritance chain requires.
type ObservableReader struct {
	mu sync.Mutex

	local  *cardsvc.LocalReader
	driver spi.ObservableReaderSpi
	exec   *executor.Executor

	state         ReaderState
	detectionMode DetectionMode

	scenario         *cardsvc.CardSelectionScenario
	notificationMode cardsvc.NotificationMode

	currentJob monitoringJob

	observers *observation.Manager[ReaderEvent]
}

// NewObservableReader wraps local/driver (the same physical reader seen
// from two angles: local for transmission, driver for insertion/removal
// capabilities) as an ObservableReader in WAIT_FOR_START_DETECTION.
func NewObservableReader(local *cardsvc.LocalReader, driver spi.ObservableReaderSpi) *ObservableReader {
	r := &ObservableReader{
		local:     local,
		driver:    driver,
		exec:      executor.New(1),
		state:     StateWaitForStartDetection,
		observers: observation.NewManager[ReaderEvent](local.Name()),
	}
	if async, ok := driver.(spi.CardInsertionWaiterAsynchronous); ok {
		async.SetCardInsertionCallback(func() { r.deliver(eventCardInserted) })
	}
	if async, ok := driver.(spi.CardRemovalWaiterAsynchronous); ok {
		async.SetCardRemovalCallback(func() { r.deliver(eventCardRemoved) })
	}
	return r
}

// AddObserver registers obs to receive ReaderEvents.
func (r *ObservableReader) AddObserver(obs observation.Observer[ReaderEvent]) {
	r.observers.AddObserver(obs)
}

// RemoveObserver unregisters obs.
func (r *ObservableReader) RemoveObserver(obs observation.Observer[ReaderEvent]) {
	r.observers.RemoveObserver(obs)
}

// SetExceptionHandler installs handler for observer callback panics and for
// errors surfaced by the currently running monitoring job.
func (r *ObservableReader) SetExceptionHandler(handler observation.ExceptionHandler) {
	r.observers.SetExceptionHandler(handler)
}

// CountObservers returns the number of distinct registered observers
// (SPEC_FULL.md testable property 7).
func (r *ObservableReader) CountObservers() int { return r.observers.Count() }

// CurrentState reports the state machine's current state.
func (r *ObservableReader) CurrentState() ReaderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ScheduleCardSelectionScenario stores scenario to be run on the next
// CARD_INSERTED event, with no I/O performed now (SPEC_FULL.md MODULE K).
func (r *ObservableReader) ScheduleCardSelectionScenario(
	scenario *cardsvc.CardSelectionScenario, mode cardsvc.NotificationMode,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenario = scenario
	r.notificationMode = mode
}

// StartCardDetection transitions WAIT_FOR_START_DETECTION ->
// WAIT_FOR_CARD_INSERTION and starts the insertion-watching job.
func (r *ObservableReader) StartCardDetection(mode DetectionMode) {
	r.mu.Lock()
	r.detectionMode = mode
	r.mu.Unlock()
	r.deliver(eventStartDetect)
}

// StopCardDetection posts STOP_DETECT; the state transitions immediately
// and the caller does not block waiting for the running job to notice.
func (r *ObservableReader) StopCardDetection() {
	r.deliver(eventStopDetect)
}

// FinalizeCardProcessing posts CARD_PROCESSED, ending
// WAIT_FOR_CARD_PROCESSING once the application has consumed the
// selection responses it cares about.
func (r *ObservableReader) FinalizeCardProcessing() {
	r.deliver(eventCardProcessed)
}

// Unregister emits UNAVAILABLE, stops the current job, shuts down the
// executor and closes the reader's channels silently.
func (r *ObservableReader) Unregister() {
	r.mu.Lock()
	r.stopCurrentJobLocked()
	r.mu.Unlock()

	r.exec.Shutdown(shutdownGrace)
	r.local.CloseChannelsSilently()
	r.local.Unregister()
	r.driver.OnUnregister()
	r.observers.NotifyObservers(ReaderEvent{ReaderName: r.local.Name(), Type: ReaderEventUnavailable})
}

// deliver routes one internal event through the transition table under the
// state mutex, starting/stopping jobs and emitting observer events as
// side effects specify.
func (r *ObservableReader) deliver(ev event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateWaitForStartDetection:
		r.fromWaitForStartDetectionLocked(ev)
	case StateWaitForCardInsertion:
		r.fromWaitForCardInsertionLocked(ev)
	case StateWaitForCardProcessing:
		r.fromWaitForCardProcessingLocked(ev)
	case StateWaitForCardRemoval:
		r.fromWaitForCardRemovalLocked(ev)
	}
}

func (r *ObservableReader) fromWaitForStartDetectionLocked(ev event) {
	if ev != eventStartDetect {
		r.logIgnored(ev)
		return
	}
	r.transitionToLocked(StateWaitForCardInsertion)
}

func (r *ObservableReader) fromWaitForCardInsertionLocked(ev event) {
	switch ev {
	case eventCardInserted:
		r.processInsertionLocked()
	case eventStopDetect:
		r.transitionToLocked(StateWaitForStartDetection)
	case eventCardRemoved:
		// idempotent: already not holding a card
	default:
		r.logIgnored(ev)
	}
}

func (r *ObservableReader) fromWaitForCardProcessingLocked(ev event) {
	switch ev {
	case eventCardProcessed:
		if r.detectionMode == DetectionRepeating {
			r.transitionToLocked(StateWaitForCardRemoval)
		} else {
			r.transitionToLocked(StateWaitForStartDetection)
		}
	case eventCardRemoved:
		r.emitLocked(ReaderEventCardRemoved, nil)
		r.transitionAfterRemovalLocked()
	case eventStopDetect:
		r.transitionToLocked(StateWaitForStartDetection)
	default:
		r.logIgnored(ev)
	}
}

func (r *ObservableReader) fromWaitForCardRemovalLocked(ev event) {
	switch ev {
	case eventCardRemoved:
		r.emitLocked(ReaderEventCardRemoved, nil)
		r.transitionAfterRemovalLocked()
	case eventStopDetect:
		r.transitionToLocked(StateWaitForStartDetection)
	default:
		r.logIgnored(ev)
	}
}

func (r *ObservableReader) transitionAfterRemovalLocked() {
	if r.detectionMode == DetectionRepeating {
		r.transitionToLocked(StateWaitForCardInsertion)
	} else {
		r.transitionToLocked(StateWaitForStartDetection)
	}
}

func (r *ObservableReader) logIgnored(ev event) {
	log.WithFields(log.Fields{"reader": r.local.Name(), "state": r.state, "event": ev}).
		Debug("ignoring event not valid for current state")
}

// processInsertionLocked runs the stored scenario (if any) synchronously,
// on whatever goroutine delivered CARD_INSERTED, per SPEC_FULL.md MODULE
// G: scenario execution completes before the next insertion-related event
// is accepted.
func (r *ObservableReader) processInsertionLocked() {
	r.stopCurrentJobLocked()
	r.state = StateWaitForCardProcessing

	if r.scenario == nil {
		r.emitLocked(ReaderEventCardInserted, nil)
		r.startJobForStateLocked()
		return
	}

	responses, err := r.local.TransmitCardSelectionRequests(r.scenario)
	if err != nil {
		log.WithField("reader", r.local.Name()).WithError(err).Warn("selection scenario failed")
		r.emitLocked(ReaderEventCardInserted, nil)
		r.startJobForStateLocked()
		return
	}

	matched := false
	for _, resp := range responses {
		if resp.HasMatched() {
			matched = true
			break
		}
	}

	switch {
	case matched:
		r.emitLocked(ReaderEventCardMatched, responses)
		r.startJobForStateLocked()
	case r.notificationMode == cardsvc.NotifyMatchedOnly:
		r.state = StateWaitForCardInsertion
		r.startJobForStateLocked()
	default:
		r.emitLocked(ReaderEventCardInserted, responses)
		r.startJobForStateLocked()
	}
}

func (r *ObservableReader) transitionToLocked(next ReaderState) {
	r.stopCurrentJobLocked()
	r.state = next
	r.startJobForStateLocked()
}

func (r *ObservableReader) emitLocked(t ReaderEventType, responses []*cardsvc.CardSelectionResponse) {
	r.observers.NotifyObservers(ReaderEvent{
		ReaderName:         r.local.Name(),
		Type:               t,
		SelectionResponses: responses,
	})
}

func (r *ObservableReader) stopCurrentJobLocked() {
	if r.currentJob != nil {
		r.currentJob.cancel()
		r.currentJob = nil
	}
}

// startJobForStateLocked picks and starts the monitoring job appropriate
// to r.state and the driver's capabilities, per the table in
// SPEC_FULL.md MODULE G.
func (r *ObservableReader) startJobForStateLocked() {
	var job monitoringJob

	switch r.state {
	case StateWaitForCardInsertion:
		job = r.insertionJobLocked()
	case StateWaitForCardRemoval:
		job = r.removalJobLocked()
	case StateWaitForCardProcessing:
		job = r.presenceMonitorJobLocked()
	}

	if job == nil {
		return
	}
	r.currentJob = job
	r.exec.Submit(job.run)
}

func (r *ObservableReader) insertionJobLocked() monitoringJob {
	if _, ok := r.driver.(spi.CardInsertionWaiterAsynchronous); ok {
		return nil
	}
	if blocking, ok := r.driver.(spi.CardInsertionWaiterBlocking); ok {
		return newPassiveInsertionJob(blocking, func() { r.deliver(eventCardInserted) }, r.observers.ReportException)
	}
	return newActiveInsertionJob(r.driver, func() { r.deliver(eventCardInserted) }, r.observers.ReportException)
}

func (r *ObservableReader) removalJobLocked() monitoringJob {
	if _, ok := r.driver.(spi.CardRemovalWaiterAsynchronous); ok {
		return nil
	}
	if blocking, ok := r.driver.(spi.CardRemovalWaiterBlocking); ok {
		return newPassiveRemovalJob(blocking, func() { r.deliver(eventCardRemoved) }, r.observers.ReportException)
	}
	return newActiveRemovalJob(r.driver, func() { r.deliver(eventCardRemoved) }, r.observers.ReportException)
}

func (r *ObservableReader) presenceMonitorJobLocked() monitoringJob {
	if monitor, ok := r.driver.(spi.CardPresenceMonitorBlocking); ok {
		return newPassivePresenceMonitorJob(monitor, func() { r.deliver(eventCardRemoved) }, r.observers.ReportException)
	}
	return nil
}
