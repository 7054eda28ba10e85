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
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ZaparooProject/go-cardsvc/spi"
)

const (
	claISO             = 0x00
	insSelect          = 0xA4
	insGetResponse     = 0xC0
	p1SelectByDFName   = 0x04
	sw1MoreDataAvail   = 0x61
	sw1WrongLength     = 0x6C
)

// LocalReader wraps a spi.ReaderSpi, tracking physical/logical channel
// state and implementing the ISO-7816-4 selection and APDU-exchange
// algorithms (SPEC_FULL.md MODULE H). It is safe for concurrent use: all
// driver I/O and channel-state mutation is serialized by mu, matching the
// "reader takes a mutex around any driver I/O" concurrency rule.
type LocalReader struct {
	mu sync.Mutex

	driver     spi.ReaderSpi
	registered bool

	// protocolMap associates a reader-level protocol token with the
	// application-level protocol name a selector filters on.
	protocolMap map[string]string

	physicalChannelOpen bool
	logicalChannelOpen  bool
	releaseRequested    bool

	retry *RetryConfig
}

// LocalReaderOption configures optional LocalReader behavior, the same
// functional-options shape the teacher uses for its own Option type.
type LocalReaderOption func(*LocalReader)

// WithRetryConfig overrides the default retry policy applied around
// physical-channel open and APDU transmission when the driver reports a
// retryable TransportError.
func WithRetryConfig(cfg *RetryConfig) LocalReaderOption {
	return func(r *LocalReader) { r.retry = cfg }
}

// NewLocalReader wraps driver as a registered LocalReader.
func NewLocalReader(driver spi.ReaderSpi, opts ...LocalReaderOption) *LocalReader {
	r := &LocalReader{
		driver:      driver,
		registered:  true,
		protocolMap: make(map[string]string),
		retry:       DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the driver-reported reader name.
func (r *LocalReader) Name() string { return r.driver.Name() }

// IsRegistered reports whether the reader still accepts calls.
func (r *LocalReader) IsRegistered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// Unregister marks the reader as no longer usable, closes both channels
// silently, and notifies the driver. Safe to call more than once.
func (r *LocalReader) Unregister() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.registered {
		return
	}
	r.closeChannelsSilentlyLocked()
	r.registered = false
	r.driver.OnUnregister()
}

func (r *LocalReader) requireRegisteredLocked() error {
	if !r.registered {
		return &IllegalStateError{Op: "reader " + r.driver.Name(), Reason: "not registered"}
	}
	return nil
}

// ActivateReaderProtocolContext associates readerProtocol with appProtocol
// in the protocol map. Fails unless the driver is a
// spi.ConfigurableReaderSpi that supports readerProtocol.
func (r *LocalReader) ActivateReaderProtocolContext(readerProtocol, appProtocol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRegisteredLocked(); err != nil {
		return err
	}
	cfg, ok := r.driver.(spi.ConfigurableReaderSpi)
	if !ok {
		return &IllegalStateError{Op: "activateReaderProtocol", Reason: "driver is not configurable"}
	}
	if !cfg.IsProtocolSupported(readerProtocol) {
		return &IllegalArgumentError{Arg: "readerProtocol", Reason: "not supported by driver"}
	}
	if err := cfg.ActivateProtocol(readerProtocol); err != nil {
		return &ReaderBrokenCommunicationError{Reader: r.driver.Name(), Err: err}
	}
	r.protocolMap[readerProtocol] = appProtocol
	return nil
}

// DeactivateReaderProtocol removes readerProtocol from the protocol map
// and tells the driver to deactivate it.
func (r *LocalReader) DeactivateReaderProtocol(readerProtocol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRegisteredLocked(); err != nil {
		return err
	}
	cfg, ok := r.driver.(spi.ConfigurableReaderSpi)
	if !ok {
		return &IllegalStateError{Op: "deactivateReaderProtocol", Reason: "driver is not configurable"}
	}
	if err := cfg.DeactivateProtocol(readerProtocol); err != nil {
		return &ReaderBrokenCommunicationError{Reader: r.driver.Name(), Err: err}
	}
	delete(r.protocolMap, readerProtocol)
	return nil
}

// ReleaseChannel requests that the logical (and, once all pending work is
// done, physical) channel be closed after the next successful exchange.
func (r *LocalReader) ReleaseChannel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseRequested = true
}

// IsCardPresentContext delegates to the driver's presence check.
func (r *LocalReader) IsCardPresentContext(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRegisteredLocked(); err != nil {
		return false, err
	}
	present, err := r.driver.CheckCardPresence(ctx)
	if err != nil {
		return false, &ReaderBrokenCommunicationError{Reader: r.driver.Name(), Err: err}
	}
	return present, nil
}

// IsCardPresent is IsCardPresentContext with context.Background().
func (r *LocalReader) IsCardPresent() (bool, error) {
	return r.IsCardPresentContext(context.Background())
}

func (r *LocalReader) openPhysicalChannelLocked(ctx context.Context) error {
	if r.physicalChannelOpen {
		return nil
	}
	err := RetryWithConfig(ctx, r.retry, func() error { return r.driver.OpenPhysicalChannel(ctx) })
	if err != nil {
		return &ReaderBrokenCommunicationError{Reader: r.driver.Name(), Err: err}
	}
	r.physicalChannelOpen = true
	return nil
}

func (r *LocalReader) closeChannelsSilentlyLocked() {
	if r.physicalChannelOpen {
		if err := r.driver.ClosePhysicalChannel(); err != nil {
			log.WithField("reader", r.driver.Name()).WithError(err).Debug("ignoring error closing physical channel")
		}
	}
	r.physicalChannelOpen = false
	r.logicalChannelOpen = false
	r.releaseRequested = false
}

// CloseChannelsSilently is the exported form of
// closeLogicalAndPhysicalChannelsSilently (SPEC_FULL.md MODULE H),
// used by callers (e.g. the unregister path and fatal-I/O recovery).
func (r *LocalReader) CloseChannelsSilently() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeChannelsSilentlyLocked()
}

// resolveLogicalProtocol implements step 1 of the per-case selection loop:
// find the first protocol-map entry whose reader-level token the driver
// confirms is current. An empty map means "any protocol" always passes.
func (r *LocalReader) resolveLogicalProtocol() (string, bool) {
	if len(r.protocolMap) == 0 {
		return "", true
	}
	cfg, ok := r.driver.(spi.ConfigurableReaderSpi)
	if !ok {
		return "", true
	}
	for readerToken, appToken := range r.protocolMap {
		if cfg.IsCurrentProtocol(readerToken) {
			return appToken, true
		}
	}
	return "", false
}

// TransmitCardSelectionRequestsContext runs the per-case selection loop of
// scenario against the card currently on this reader.
func (r *LocalReader) TransmitCardSelectionRequestsContext(
	ctx context.Context, scenario *CardSelectionScenario,
) ([]*CardSelectionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRegisteredLocked(); err != nil {
		return nil, err
	}
	if err := r.openPhysicalChannelLocked(ctx); err != nil {
		return nil, err
	}

	responses := make([]*CardSelectionResponse, 0, len(scenario.cases))
	powerOnData := r.driver.PowerOnData()

	for _, c := range scenario.cases {
		resp, err := r.runSelectionCaseLocked(ctx, c, powerOnData)
		if err != nil {
			if resp != nil {
				responses = append(responses, resp)
			}
			r.closeChannelsSilentlyLocked()
			return responses, err
		}
		responses = append(responses, resp)

		if resp.HasMatched() && scenario.multiPolicy == MultiSelectionFirstMatch {
			break
		}
	}

	if scenario.channelCtrl == ChannelControlCloseAfter || r.releaseRequested {
		r.closeChannelsSilentlyLocked()
	}
	return responses, nil
}

// TransmitCardSelectionRequests is TransmitCardSelectionRequestsContext
// with context.Background().
func (r *LocalReader) TransmitCardSelectionRequests(
	scenario *CardSelectionScenario,
) ([]*CardSelectionResponse, error) {
	return r.TransmitCardSelectionRequestsContext(context.Background(), scenario)
}

func (r *LocalReader) runSelectionCaseLocked(
	ctx context.Context, c selectionCase, powerOnData string,
) (*CardSelectionResponse, error) {
	if proto := c.selector.protocol(); proto != "" {
		appProto, ok := r.resolveLogicalProtocol()
		if !ok {
			return NewCardSelectionResponse(powerOnData, nil, false, nil), nil
		}
		if len(r.protocolMap) > 0 && appProto != proto {
			return NewCardSelectionResponse(powerOnData, nil, false, nil), nil
		}
	}

	if re := c.selector.powerOnDataRegexp(); re != nil {
		if powerOnData == "" || !re.MatchString(powerOnData) {
			return NewCardSelectionResponse(powerOnData, nil, false, nil), nil
		}
	}

	var selectResp *ApduResponse
	matched := true
	if aid := c.selector.aid(); len(aid) > 0 {
		var err error
		selectResp, err = r.selectApplicationLocked(ctx, aid, c.selector.fileOccurrence(), c.selector.fileControlInformation())
		if err != nil {
			return nil, err
		}
		matched = DefaultAcceptedStatusWords()[selectResp.StatusWord()]
		if matched {
			r.logicalChannelOpen = true
		}
	}

	var cardResp *CardResponse
	if matched && c.extension != nil {
		if req := c.extension.CreateCardRequest(); req != nil {
			var err error
			cardResp, err = r.runCardRequestLocked(ctx, req)
			if err != nil {
				return NewCardSelectionResponse(powerOnData, selectResp, matched, cardResp), err
			}
		}
	}

	return NewCardSelectionResponse(powerOnData, selectResp, matched, cardResp), nil
}

func (r *LocalReader) selectApplicationLocked(
	ctx context.Context, aid []byte, occ FileOccurrence, fci FileControlInformation,
) (*ApduResponse, error) {
	apdu := make([]byte, 0, 6+len(aid))
	apdu = append(apdu, claISO, insSelect, p1SelectByDFName, p2For(occ, fci), byte(len(aid)))
	apdu = append(apdu, aid...)
	apdu = append(apdu, 0x00) // Le = 0x00 (Ne = 256)
	return r.transmitOneAPDULocked(ctx, apdu)
}

// TransmitCardRequestContext executes req on the currently open logical
// channel, opening it first if necessary.
func (r *LocalReader) TransmitCardRequestContext(
	ctx context.Context, req *CardRequest, channelPolicy ChannelControlPolicy,
) (*CardResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRegisteredLocked(); err != nil {
		return nil, err
	}
	if err := r.openPhysicalChannelLocked(ctx); err != nil {
		return nil, err
	}
	r.logicalChannelOpen = true

	resp, err := r.runCardRequestLocked(ctx, req)
	if err != nil {
		r.closeChannelsSilentlyLocked()
		return resp, err
	}
	if channelPolicy == ChannelControlCloseAfter || r.releaseRequested {
		r.closeChannelsSilentlyLocked()
	}
	return resp, nil
}

// TransmitCardRequest is TransmitCardRequestContext with context.Background().
func (r *LocalReader) TransmitCardRequest(req *CardRequest, channelPolicy ChannelControlPolicy) (*CardResponse, error) {
	return r.TransmitCardRequestContext(context.Background(), req, channelPolicy)
}

func (r *LocalReader) runCardRequestLocked(ctx context.Context, req *CardRequest) (*CardResponse, error) {
	responses := make([]*ApduResponse, 0, len(req.ApduRequests))
	for _, apduReq := range req.ApduRequests {
		resp, err := r.transmitOneAPDULocked(ctx, apduReq.RawData)
		if err != nil {
			return NewCardResponse(responses, r.logicalChannelOpen), err
		}
		responses = append(responses, resp)

		if req.StopOnUnsuccessful && !req.accepts(resp.StatusWord()) {
			return NewCardResponse(responses, r.logicalChannelOpen),
				&UnexpectedStatusWordError{StatusWord: resp.StatusWord()}
		}
	}
	return NewCardResponse(responses, r.logicalChannelOpen), nil
}

// transmitWithRetryLocked sends apdu, retrying through RetryWithConfig on a
// retryable TransportError from the driver.
func (r *LocalReader) transmitWithRetryLocked(ctx context.Context, apdu []byte) ([]byte, error) {
	var raw []byte
	err := RetryWithConfig(ctx, r.retry, func() error {
		var txErr error
		raw, txErr = r.driver.TransmitAPDU(ctx, apdu)
		return txErr
	})
	if err != nil {
		return nil, &CardBrokenCommunicationError{Reader: r.driver.Name(), Err: err}
	}
	return raw, nil
}

// transmitOneAPDULocked implements the APDU loop of SPEC_FULL.md MODULE H:
// case-4 GET RESPONSE chaining on 0x61xx, Le correction on 0x6Cxx.
func (r *LocalReader) transmitOneAPDULocked(ctx context.Context, apdu []byte) (*ApduResponse, error) {
	raw, err := r.transmitWithRetryLocked(ctx, apdu)
	if err != nil {
		return nil, err
	}
	resp := NewApduResponse(raw)

	if resp.NeedsLeCorrection() {
		correctedLe := raw[len(raw)-1]
		reissued := make([]byte, len(apdu))
		copy(reissued, apdu)
		reissued[len(reissued)-1] = correctedLe
		raw, err = r.transmitWithRetryLocked(ctx, reissued)
		if err != nil {
			return nil, err
		}
		resp = NewApduResponse(raw)
	}

	if resp.HasMoreData() && isCase4(apdu) {
		return r.chainGetResponseLocked(ctx, resp)
	}
	return resp, nil
}

func isCase4(apdu []byte) bool {
	// CLA INS P1 P2 Lc <data...> Le: at least header + Lc + 1 data byte + Le.
	return len(apdu) >= 7 && apdu[4] > 0
}

func (r *LocalReader) chainGetResponseLocked(ctx context.Context, first *ApduResponse) (*ApduResponse, error) {
	dataOut := first.DataOut()
	sw := first.StatusWord()

	for sw>>8 == sw1MoreDataAvail {
		le := byte(sw & 0xFF)
		getResp := []byte{claISO, insGetResponse, 0x00, 0x00, le}
		raw, err := r.transmitWithRetryLocked(ctx, getResp)
		if err != nil {
			return nil, err
		}
		next := NewApduResponse(raw)
		dataOut = append(dataOut, next.DataOut()...)
		sw = next.StatusWord()
	}

	final := append(append([]byte{}, dataOut...), byte(sw>>8), byte(sw&0xFF))
	return NewApduResponse(final), nil
}
