// OMNIDEMOD - An rtl-sdr receiver for 13.56MHz Manchester coded bursts.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bemasher/omnidemod/demod"
	"github.com/bemasher/omnidemod/sdr"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Samples read from the source per block.
const BlockSize = 1 << 14

type Receiver struct {
	src sdr.Source
	d   *demod.Demodulator

	timeLimit time.Duration

	stop chan struct{}
}

// NewReceiver opens the sample source and sets up the demodulator as
// described by opts.
func NewReceiver(opts *Options) (rcvr *Receiver, err error) {
	rep, err := demod.ParseRepresentation(opts.Representation)
	if err != nil {
		return nil, err
	}

	format, err := demod.ParseReportFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	rcvr = &Receiver{
		timeLimit: opts.TimeLimit,
		stop:      make(chan struct{}, 1),
	}

	var clock float64
	if opts.InputFile != "" {
		clock, err = rcvr.openFile(opts)
	} else {
		clock, err = rcvr.openDevice(opts)
	}
	if err != nil {
		return nil, err
	}

	// Close the source if anything past here fails.
	defer func() {
		if err != nil {
			rcvr.Close()
		}
	}()

	rcvr.d, err = demod.New(clock, opts.Decimation)
	if err != nil {
		return nil, err
	}

	rcvr.d.SetRepresentation(rep)
	rcvr.d.SetFormat(format)
	if opts.Hex {
		rcvr.d.ShowHex()
	}
	if opts.ShowPower {
		rcvr.d.ShowPower()
	}
	if opts.ShowSamples {
		rcvr.d.ShowSamples()
	}
	if opts.OutputFile != "" {
		if err = rcvr.d.SetOutput(opts.OutputFile); err != nil {
			return nil, err
		}
	}
	if opts.CaptureFile != "" {
		if err = rcvr.d.SetCapture(opts.CaptureFile); err != nil {
			return nil, err
		}
	}

	rcvr.d.Log()

	return rcvr, nil
}

func (rcvr *Receiver) openFile(opts *Options) (float64, error) {
	format, err := sdr.ParseFormat(opts.InputFormat)
	if err != nil {
		return 0, err
	}

	src, err := sdr.OpenFile(opts.InputFile, format)
	if err != nil {
		return 0, err
	}
	rcvr.src = src

	clock := float64(sdr.DefaultMasterClock)
	if opts.Given("clock-speed") {
		clock = opts.ClockSpeed.Float64()
	}

	log.WithFields(log.Fields{
		"file":   opts.InputFile,
		"format": format,
	}).Info("replaying")

	return clock, nil
}

func (rcvr *Receiver) openDevice(opts *Options) (clock float64, err error) {
	cfg := DefaultConfig(opts.Server)
	if opts.ConfigFile != "" {
		if cfg, err = LoadConfig(opts.ConfigFile); err != nil {
			return 0, err
		}
	}

	rc, err := cfg.Receiver(opts.Which)
	if err != nil {
		return 0, err
	}

	dev, err := sdr.NewRTLTCP(rc.Server, opts.Decimation)
	if err != nil {
		return 0, err
	}
	rcvr.src = dev

	defer func() {
		if err != nil {
			dev.Close()
		}
	}()

	if opts.Given("clock-speed") {
		if err = dev.SetMasterClock(opts.ClockSpeed.Float64()); err != nil {
			return 0, err
		}
	}
	clock = dev.MasterClock()

	side := opts.Subdev.Side
	if !opts.Subdev.Given {
		side, err = sdr.PickSubdev(dev)
		if err == sdr.ErrNoFrontend {
			log.Fatal(err)
		}
		if err != nil {
			return 0, err
		}
	}

	if err = dev.Select(side); err != nil {
		return 0, err
	}

	lo, hi := dev.GainRange()
	gain := sdr.ScaleGain(opts.Gain.Float64(), lo, hi)
	if err = dev.SetGain(gain); err != nil {
		return 0, err
	}

	if err = dev.Tune(opts.CenterFreq.Float64()); err != nil {
		return 0, errors.Wrap(err, "failed to set frequency")
	}

	log.WithFields(log.Fields{
		"receiver":   rc.Name,
		"server":     rc.Server,
		"side":       side,
		"gain":       gain,
		"centerfreq": opts.CenterFreq.Float64(),
	}).Info("tuned")

	return clock, nil
}

func (rcvr *Receiver) Close() {
	select {
	case rcvr.stop <- struct{}{}:
	default:
	}

	if rcvr.d != nil {
		if err := rcvr.d.Close(); err != nil {
			log.WithError(err).Error("closing demodulator")
		}
	}
	if rcvr.src != nil {
		rcvr.src.Close()
	}
}

// Run feeds the demodulator until the source is exhausted, the time limit
// passes or the process is interrupted.
func (rcvr *Receiver) Run() error {
	// Setup signal channel for interruption.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigint)

	// Setup time limit channel
	tLimit := make(<-chan time.Time, 1)
	if rcvr.timeLimit != 0 {
		tLimit = time.After(rcvr.timeLimit)
	}

	start := time.Now()

	// Allocate a channel of blocks.
	blockCh := make(chan []complex64)

	// Read and send sample blocks to the demodulator.
	go func() {
		// Make two sample blocks, one for reading, and one for the
		// demodulator, these are exchanged each time we read a new block.
		blockA := make([]complex64, BlockSize)
		blockB := make([]complex64, BlockSize)

		// When exiting this goroutine, close the block channel.
		defer close(blockCh)

		for {
			select {
			// Exit if we've been told to stop.
			case <-rcvr.stop:
				return
			default:
				// Read new sample block.
				n, err := rcvr.src.Read(blockA)

				// Send whatever was read, even if the read failed part way.
				if n > 0 {
					select {
					case blockCh <- blockA[:n]:
					case <-rcvr.stop:
						return
					}

					// Exchange blocks for next read.
					blockA, blockB = blockB, blockA
				}

				if err == nil {
					continue
				}

				// If we get an EOF, exit.
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					log.WithError(err).Info("encountered eof")
					return
				}

				// If we get a network operation error.
				if opErr, ok := err.(*net.OpError); ok {
					// If temporary, keep reading.
					if opErr.Temporary() {
						log.WithError(opErr).Warn("operr: temporary")
						continue
					}
				}

				// Otherwise exit.
				log.WithError(err).Error("reading samples")
				return
			}
		}
	}()

	for {
		// Exit on interrupt or time limit, otherwise receive.
		select {
		case <-sigint:
			return nil
		case <-tLimit:
			log.WithField("elapsed", time.Since(start)).Info("time limit reached")
			return nil
		case block, ok := <-blockCh:
			// If blockCh is closed, exit.
			if !ok {
				return nil
			}

			if err := rcvr.d.Write(block); err != nil {
				return err
			}
		}
	}
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func main() {
	opts := NewOptions(os.Args[0])
	if err := opts.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		opts.Usage()
		os.Exit(1)
	}

	// Do we still have arguments left over?
	if len(opts.Args()) != 0 {
		opts.Usage()
		os.Exit(1)
	}

	if opts.Version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	rcvr, err := NewReceiver(opts)
	if err != nil {
		log.Fatal(err)
	}

	err = rcvr.Run()
	rcvr.Close()
	if err != nil {
		log.Fatal(err)
	}
}
