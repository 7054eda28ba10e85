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
	"errors"
)

var errOpenFailed = errors.New("scriptedDriver: open failed")

// scriptedDriver implements spi.ReaderSpi, answering TransmitAPDU from a
// queue of scripted responses in call order, the same "hand-fed script"
// shape as the teacher's BlockingMockTransport test double.
type scriptedDriver struct {
	name           string
	powerOnData    string
	responses      [][]byte
	calls          [][]byte
	physicalOpen   bool
	protoSupported map[string]bool
	currentProto   string
	openAttempts   int
	openFailures   int
}

func newScriptedDriver(name string, responses ...[]byte) *scriptedDriver {
	return &scriptedDriver{name: name, powerOnData: "3B8001FF", responses: responses}
}

func (d *scriptedDriver) Name() string { return d.name }

// OpenPhysicalChannel fails with a retryable error openFailures times
// before succeeding, exercising LocalReader's RetryWithConfig wiring.
func (d *scriptedDriver) OpenPhysicalChannel(context.Context) error {
	d.openAttempts++
	if d.openAttempts <= d.openFailures {
		return NewTransportError("OpenPhysicalChannel", d.name, errOpenFailed)
	}
	d.physicalOpen = true
	return nil
}

func (d *scriptedDriver) ClosePhysicalChannel() error {
	d.physicalOpen = false
	return nil
}

func (d *scriptedDriver) IsPhysicalChannelOpen() bool { return d.physicalOpen }

func (*scriptedDriver) CheckCardPresence(context.Context) (bool, error) { return true, nil }

func (d *scriptedDriver) PowerOnData() string { return d.powerOnData }

func (*scriptedDriver) IsContactless() bool { return true }

func (d *scriptedDriver) TransmitAPDU(_ context.Context, apdu []byte) ([]byte, error) {
	d.calls = append(d.calls, apdu)
	if len(d.responses) == 0 {
		return []byte{0x90, 0x00}, nil
	}
	resp := d.responses[0]
	d.responses = d.responses[1:]
	return resp, nil
}

func (*scriptedDriver) OnUnregister() {}

func (d *scriptedDriver) IsProtocolSupported(proto string) bool { return d.protoSupported[proto] }

func (d *scriptedDriver) ActivateProtocol(proto string) error {
	d.currentProto = proto
	return nil
}

func (d *scriptedDriver) DeactivateProtocol(string) error {
	d.currentProto = ""
	return nil
}

func (d *scriptedDriver) IsCurrentProtocol(proto string) bool { return d.currentProto == proto }
