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

/*
Package cardsvc provides a driver-agnostic smart card reader service: reader
and plugin lifecycle, card insertion/removal observation, and ISO-7816-4
application selection and APDU exchange on top of pluggable reader drivers.

The service itself never talks to hardware. Drivers implement the small set
of interfaces in package spi (ReaderSpi, PluginSpi and their observable
variants); this package supplies the selection engine and value objects,
package polling supplies the observable reader state machine, and package
plugin supplies the plugin registry and process-wide Service facade that
ties them together.

Basic Usage:

	svc := plugin.GetService()
	p, err := plugin.NewLocalPlugin(ctx, myDriver)
	if err != nil {
	    log.Fatal(err)
	}
	if err := svc.RegisterPlugin(p); err != nil {
	    log.Fatal(err)
	}

	reader, err := svc.GetReader(p.Name(), "Demo Reader")
	if err != nil {
	    log.Fatal(err)
	}

	mgr := plugin.NewCardSelectionManager()
	aidSelector, err := cardsvc.NewIsoCardSelector().WithAID(aid)
	if err != nil {
	    log.Fatal(err)
	}
	mgr.PrepareSelection(aidSelector, &cardsvc.DefaultSelectionExtension{})

	result, err := mgr.ProcessCardSelectionScenario(reader.Local)
	if err != nil {
	    log.Fatal(err)
	}
	if result.ActiveSmartCard() != nil {
	    fmt.Println("selected:", result.ActiveSmartCard())
	}

Observable readers additionally support asynchronous notification of card
insertion, selection and removal through package polling (reader.Observable
when the driver supports it), and plugins support hot-plug notification
through the ObservableLocalPlugin and AutonomousLocalPlugin variants in
package plugin.

Error Handling:

All operations return errors that can be inspected with errors.As against
the taxonomy defined in errors.go (IllegalStateError, IllegalArgumentError,
ReaderBrokenCommunicationError, CardBrokenCommunicationError,
UnexpectedStatusWordError, InvalidCardResponseError, PluginIOError).

Thread Safety:

Reader and plugin registries are safe for concurrent use. A single
LocalReader serializes its selection, transmission and channel operations
on one internal mutex, so calls made from several goroutines (including
the observable reader's monitoring goroutine, see polling.ObservableReader)
run one after another against the driver.
*/
package cardsvc
