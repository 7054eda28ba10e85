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

import "encoding/json"

// Scheduler is implemented by an observable reader adapter capable of
// running a CardSelectionScenario during WAIT_FOR_CARD_PROCESSING. Declared
// here, structurally, rather than importing package polling, since polling
// already imports this package for CardSelectionScenario and
// CardSelectionResponse.
type Scheduler interface {
	ScheduleCardSelectionScenario(scenario *CardSelectionScenario, mode NotificationMode)
}

// ImmediateReader is implemented by a reader capable of running a
// CardSelectionScenario synchronously against whatever card is already
// seated (LocalReader satisfies this).
type ImmediateReader interface {
	TransmitCardSelectionRequests(scenario *CardSelectionScenario) ([]*CardSelectionResponse, error)
}

// CardSelectionManager builds a CardSelectionScenario from an ordered list
// of (selector, extension) cases and runs it against a reader, either
// immediately (ProcessCardSelectionScenario) or by arming an observable
// reader for the next card insertion (ScheduleCardSelectionScenario).
type CardSelectionManager struct {
	cases       []selectionCase
	multiPolicy MultiSelectionPolicy
	channelCtrl ChannelControlPolicy
}

// NewCardSelectionManager returns a manager with no cases yet, defaulting
// to FIRST_MATCH/KEEP_OPEN.
func NewCardSelectionManager() *CardSelectionManager {
	return &CardSelectionManager{channelCtrl: ChannelControlKeepOpen}
}

// SetMultipleSelectionMode switches between stopping at the first matched
// case and running every case regardless of earlier matches.
func (m *CardSelectionManager) SetMultipleSelectionMode(policy MultiSelectionPolicy) {
	m.multiPolicy = policy
}

// PrepareReleaseChannel marks the scenario to close the logical and
// physical channels once it finishes running.
func (m *CardSelectionManager) PrepareReleaseChannel() {
	m.channelCtrl = ChannelControlCloseAfter
}

// PrepareSelection appends a (selector, extension) case to the scenario and
// returns its index, used to look the case's SmartCard up afterward in the
// CardSelectionResult.
func (m *CardSelectionManager) PrepareSelection(selector Selector, extension SelectionExtension) int {
	m.cases = append(m.cases, selectionCase{selector: selector, extension: extension})
	return len(m.cases) - 1
}

func (m *CardSelectionManager) buildScenario() *CardSelectionScenario {
	return newCardSelectionScenario(m.cases, m.multiPolicy, m.channelCtrl)
}

// ProcessCardSelectionScenario runs the prepared cases against reader's
// currently seated card (stopping after the first match under
// MultiSelectionFirstMatch) and parses each match through its extension.
func (m *CardSelectionManager) ProcessCardSelectionScenario(reader ImmediateReader) (*CardSelectionResult, error) {
	responses, err := reader.TransmitCardSelectionRequests(m.buildScenario())
	if err != nil {
		return nil, err
	}
	return m.parseResponses(responses), nil
}

func (m *CardSelectionManager) parseResponses(responses []*CardSelectionResponse) *CardSelectionResult {
	result := NewCardSelectionResult()
	for i, resp := range responses {
		if i >= len(m.cases) || !resp.HasMatched() {
			continue
		}
		ext := m.cases[i].extension
		if ext == nil {
			continue
		}
		card, err := ext.ParseResponse(resp)
		if err != nil {
			continue
		}
		result.put(i, card)
	}
	return result
}

// ScheduleCardSelectionScenario arms an observable reader to run the
// prepared scenario on its next CARD_INSERTED event, instead of running it
// synchronously.
func (m *CardSelectionManager) ScheduleCardSelectionScenario(scheduler Scheduler, mode NotificationMode) {
	scheduler.ScheduleCardSelectionScenario(m.buildScenario(), mode)
}

// exportedSelectionCase is the JSON wire shape for one scheduled case. Only
// the selector fields are exported; a case's SelectionExtension is not,
// so a case built with a card-protocol library's own extension comes back
// from ImportScenario with DefaultSelectionExtension instead.
type exportedSelectionCase struct {
	Protocol       string `json:"protocol,omitempty"`
	PowerOnDataRgx string `json:"powerOnDataRegex,omitempty"`
	AID            []byte `json:"aid,omitempty"`
	Occurrence     int    `json:"fileOccurrence"`
	ControlInfo    int    `json:"fileControlInformation"`
}

type exportedScenario struct {
	Cases       []exportedSelectionCase `json:"cases"`
	MultiPolicy int                     `json:"multiSelectionPolicy"`
	ChannelCtrl int                     `json:"channelControlPolicy"`
}

// ExportScenario serializes the manager's prepared cases as an opaque JSON
// string, for handing a scenario to a process that will later import it and
// run it against a different reader. encoding/json is used rather than a
// third-party codec because this is the one place the service needs a
// stable, inspectable interchange format, not a high-throughput wire
// protocol (see DESIGN.md).
func (m *CardSelectionManager) ExportScenario() (string, error) {
	out := exportedScenario{MultiPolicy: int(m.multiPolicy), ChannelCtrl: int(m.channelCtrl)}
	for _, c := range m.cases {
		ec := exportedSelectionCase{
			Protocol:    c.selector.protocol(),
			AID:         c.selector.aid(),
			Occurrence:  int(c.selector.fileOccurrence()),
			ControlInfo: int(c.selector.fileControlInformation()),
		}
		if re := c.selector.powerOnDataRegexp(); re != nil {
			ec.PowerOnDataRgx = re.String()
		}
		out.Cases = append(out.Cases, ec)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ImportScenario rebuilds a CardSelectionManager from the JSON a prior
// ExportScenario produced. Every imported case uses DefaultSelectionExtension
// with no bundled CardRequest; a caller needing richer per-case extensions
// must re-attach them with PrepareSelection after import.
func ImportScenario(data string) (*CardSelectionManager, error) {
	if data == "" || data == "null" {
		return nil, &IllegalArgumentError{Arg: "data", Reason: "empty or null scenario export"}
	}
	var in exportedScenario
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return nil, &IllegalArgumentError{Arg: "data", Reason: "malformed scenario export: " + err.Error()}
	}
	m := &CardSelectionManager{
		multiPolicy: MultiSelectionPolicy(in.MultiPolicy),
		channelCtrl: ChannelControlPolicy(in.ChannelCtrl),
	}
	for _, ec := range in.Cases {
		sel := NewIsoCardSelector().WithFileOccurrence(FileOccurrence(ec.Occurrence)).
			WithFileControlInformation(FileControlInformation(ec.ControlInfo))
		basic := &sel.BasicCardSelector
		if ec.Protocol != "" {
			basic.WithProtocol(ec.Protocol)
		}
		if ec.PowerOnDataRgx != "" {
			if _, err := basic.WithPowerOnDataRegex(ec.PowerOnDataRgx); err != nil {
				return nil, err
			}
		}
		var selector Selector = sel
		if len(ec.AID) > 0 {
			withAID, err := sel.WithAID(ec.AID)
			if err != nil {
				return nil, err
			}
			selector = withAID
		}
		m.cases = append(m.cases, selectionCase{
			selector:  selector,
			extension: &DefaultSelectionExtension{},
		})
	}
	return m, nil
}
