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

// cardmon is a small demo CLI that registers a PC/SC plugin, watches a
// reader for card insertion/removal, and runs an ISO-7816-4 application
// selection against whatever card arrives.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	cardsvc "github.com/ZaparooProject/go-cardsvc"
	"github.com/ZaparooProject/go-cardsvc/examples/pcscreader"
	"github.com/ZaparooProject/go-cardsvc/plugin"
	"github.com/ZaparooProject/go-cardsvc/polling"
)

type config struct {
	readerName *string
	aidHex     *string
	timeout    *time.Duration
	debug      *bool
}

func parseFlags() *config {
	cfg := &config{
		readerName: flag.String("reader", "",
			"Reader name to monitor. Leave empty to use the first reader found."),
		aidHex: flag.String("aid", "",
			"Hex-encoded application identifier to select on insertion. Leave empty to accept any card."),
		timeout: flag.Duration("timeout", 30*time.Second,
			"How long to wait for a reader to appear before giving up."),
		debug: flag.Bool("debug", false, "Enable debug logging."),
	}
	flag.Parse()

	if *cfg.debug {
		log.SetLevel(log.DebugLevel)
	}
	return cfg
}

func buildSelector(aidHex string) (cardsvc.Selector, error) {
	if aidHex == "" {
		return cardsvc.NewBasicCardSelector(), nil
	}
	aid, err := hex.DecodeString(strings.TrimSpace(aidHex))
	if err != nil {
		return nil, fmt.Errorf("invalid -aid value: %w", err)
	}
	sel, err := cardsvc.NewIsoCardSelector().WithAID(aid)
	if err != nil {
		return nil, fmt.Errorf("invalid AID: %w", err)
	}
	return sel, nil
}

func pickReaderName(cfg *config, p *plugin.ObservableLocalPlugin, deadline time.Time) (string, error) {
	if *cfg.readerName != "" {
		return *cfg.readerName, nil
	}
	for {
		if names := p.ReaderNames(); len(names) > 0 {
			return names[0], nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("no PC/SC readers found within %s", cfg.timeout.String())
		}
		time.Sleep(200 * time.Millisecond)
	}
}

type printingObserver struct{}

func (printingObserver) OnEvent(ev polling.ReaderEvent) {
	switch ev.Type {
	case polling.ReaderEventCardInserted:
		fmt.Printf("card inserted on %s\n", ev.ReaderName)
	case polling.ReaderEventCardMatched:
		fmt.Printf("card matched on %s (%d selection response(s))\n", ev.ReaderName, len(ev.SelectionResponses))
	case polling.ReaderEventCardRemoved:
		fmt.Printf("card removed from %s\n", ev.ReaderName)
	case polling.ReaderEventUnavailable:
		fmt.Printf("reader %s became unavailable\n", ev.ReaderName)
	}
}

func run() error {
	cfg := parseFlags()

	sel, err := buildSelector(*cfg.aidHex)
	if err != nil {
		return err
	}

	ctx, err := pcsc.NewContext()
	if err != nil {
		return fmt.Errorf("failed to open PC/SC context: %w", err)
	}

	driver := pcsc.NewPlugin(ctx)
	p, err := plugin.NewObservableLocalPlugin(context.Background(), driver)
	if err != nil {
		return fmt.Errorf("failed to register PC/SC plugin: %w", err)
	}

	svc := plugin.GetService()
	if err := svc.RegisterPlugin(p); err != nil {
		return fmt.Errorf("failed to register plugin with service: %w", err)
	}
	defer func() { _ = svc.UnregisterPlugin(p.Name()) }()

	readerName, err := pickReaderName(cfg, p, time.Now().Add(*cfg.timeout))
	if err != nil {
		return err
	}

	reader, err := svc.GetReader(p.Name(), readerName)
	if err != nil {
		return fmt.Errorf("failed to fetch reader %q: %w", readerName, err)
	}
	if !reader.IsObservable() {
		return fmt.Errorf("reader %q does not support observation", readerName)
	}

	mgr := plugin.NewCardSelectionManager()
	mgr.PrepareSelection(sel, &cardsvc.DefaultSelectionExtension{})
	mgr.ScheduleCardSelectionScenario(reader.Observable, cardsvc.NotifyMatchedOnly)

	reader.Observable.AddObserver(printingObserver{})
	reader.Observable.StartCardDetection(polling.DetectionRepeating)
	defer reader.Observable.StopCardDetection()

	fmt.Printf("watching %q; press Ctrl+C to stop\n", readerName)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "cardmon: %v\n", err)
		os.Exit(1)
	}
}
