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

// Package demod slices on-off keyed bursts into symbols by comparing each
// sample's magnitude against a running average, and reports each burst in
// one of several representations.
package demod

import (
	"io"
	"math/cmplx"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// From documentation. Manchester coded, so the bit rate is half this.
	SymbolRate = 4000

	// Averages span this many symbols. At most AverageSymbols-2 sequential
	// symbols of the same level can be detected.
	AverageSymbols = 8

	// Maximum error in the width of a symbol, in symbols.
	SymbolError = 0.25

	// Symbols held before a burst is reported regardless of whether it
	// has ended.
	MaxSymbols = 8192

	// Length of the raw and burst sample buffers.
	BufferLength = 1 << 20
)

// A Demodulator consumes a stream of samples and reports the bursts found
// in it. It is not safe for concurrent use.
type Demodulator struct {
	clock      float64
	decimation int

	sampleRate float64
	sps        int // samples per symbol
	jitter     int // a level must hold at least this many samples to count
	avgLen     int

	// Samples not yet processed plus history of 2*avgLen+1. The history
	// starts out as silence so the first sample of the stream is sliced and
	// sample numbers count from it.
	window []complex64
	seeded bool

	avgA float64 // sum of magnitudes after the current sample
	avgB float64 // sum of magnitudes before the current sample

	sign        int // last sample was over or under average
	count       int // length of the current run
	changeCount int // samples seen on the other side of the average

	symbols []Symbol
	raw     *Ring
	signal  []complex64

	sampleNumber    uint64
	signalStart     uint64
	lastSignalStart uint64

	rep         Representation
	hex         bool
	showPower   bool
	showSamples bool
	format      ReportFormat

	out     io.Writer
	outFile *os.File
	enc     Encoder
	capture *Capture

	err error
}

// New returns a demodulator for samples at clock/decimation.
func New(clock float64, decimation int) (*Demodulator, error) {
	if decimation <= 0 {
		return nil, errors.Errorf("invalid decimation: %d", decimation)
	}

	d := &Demodulator{
		clock:      clock,
		decimation: decimation,
		sampleRate: clock / float64(decimation),
		sign:       -1,
		rep:        Manchester,
		out:        os.Stdout,
	}

	d.sps = int(d.sampleRate / SymbolRate)
	if d.sps < 1 {
		return nil, errors.Errorf("sample rate %.0f too low for %d symbols per second", d.sampleRate, SymbolRate)
	}
	d.jitter = d.sps / 4
	d.avgLen = AverageSymbols * d.sps

	d.window = make([]complex64, d.History())
	d.symbols = make([]Symbol, 0, MaxSymbols)
	d.raw = NewRing(BufferLength)

	return d, nil
}

func (d *Demodulator) SampleRate() float64 {
	return d.sampleRate
}

func (d *Demodulator) SymbolLength() int {
	return d.sps
}

func (d *Demodulator) Jitter() int {
	return d.jitter
}

func (d *Demodulator) AverageLength() int {
	return d.avgLen
}

// History is the number of samples held back between calls to Write.
func (d *Demodulator) History() int {
	return 2*d.avgLen + 1
}

func (d *Demodulator) SetRepresentation(rep Representation) {
	d.rep = rep
}

func (d *Demodulator) ShowHex() {
	d.hex = true
}

func (d *Demodulator) ShowPower() {
	d.showPower = true
	d.enc = nil
}

func (d *Demodulator) ShowSamples() {
	d.showSamples = true
	d.enc = nil
}

func (d *Demodulator) SetFormat(format ReportFormat) {
	d.format = format
	d.enc = nil
}

// SetWriter sends reports to w instead of stdout.
func (d *Demodulator) SetWriter(w io.Writer) {
	d.out = w
	d.enc = nil
}

// SetOutput appends reports to filename as well as stdout.
func (d *Demodulator) SetOutput(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, "opening output file")
	}

	d.outFile = f
	d.SetWriter(io.MultiWriter(os.Stdout, f))

	return nil
}

// SetCapture saves reported bursts to a file named after base, the clock
// and the decimation.
func (d *Demodulator) SetCapture(base string) error {
	c, err := OpenCapture(CaptureFilename(base, d.clock, d.decimation), d.avgLen)
	if err != nil {
		return err
	}
	d.capture = c
	return nil
}

func (d *Demodulator) encoder() Encoder {
	if d.enc == nil {
		d.enc = NewEncoder(d.format, d.out, d.showSamples, d.showPower)
	}
	return d.enc
}

func (d *Demodulator) Log() {
	log.WithFields(log.Fields{
		"clock":          d.clock,
		"decimation":     d.decimation,
		"samplerate":     d.sampleRate,
		"symbollength":   d.sps,
		"jitter":         d.jitter,
		"averagelength":  d.avgLen,
		"representation": d.rep,
		"format":         d.format,
	}).Info("demodulator")
}

// Write processes samples, reporting any bursts that end within them. The
// last History samples are held until the next call. The first error
// encountered writing a report or capture is returned.
func (d *Demodulator) Write(samples []complex64) error {
	d.window = append(d.window, samples...)
	w := d.window
	L := d.avgLen

	i := 0
	for ; i+2*L+1 < len(w); i++ {
		// Seed the averages from the first full window.
		if !d.seeded {
			d.avgA, d.avgB = 0, 0
			for j := 0; j < L; j++ {
				d.avgA += mag(w[L+1+j])
				d.avgB += mag(w[j])
			}
			d.sampleNumber = uint64(L)
			d.seeded = true
		}

		d.sampleNumber++

		d.raw.Write(w[i+L+1])

		cur := mag(w[i+L+1])
		d.avgA = d.avgA - cur + mag(w[i+2*L+1])
		d.avgB = d.avgB - mag(w[i]) + mag(w[i+L])

		// The start of a burst uses the average after the current sample,
		// the rest of the burst uses the average before it.
		var avg float64
		if len(d.symbols) <= 2*AverageSymbols {
			avg = d.avgA / float64(L)
		} else {
			avg = d.avgB / float64(L)
		}

		level := 1
		if cur < avg {
			level = -1
		}
		d.step(level)
	}

	d.window = d.window[:copy(d.window, w[i:])]

	err := d.err
	d.err = nil
	return err
}

// step advances the run length state machine by one sample on the given
// side of the average.
func (d *Demodulator) step(level int) {
	if d.sign == level {
		d.count += d.changeCount + 1
		d.changeCount = 0
		return
	}

	if d.changeCount < d.jitter {
		d.changeCount++
		return
	}

	d.slice()
	d.sign = level
	d.count = d.changeCount + 1
	d.changeCount = 0
}

func mag(s complex64) float64 {
	return cmplx.Abs(complex128(s))
}

// Close flushes and closes the output and capture files.
func (d *Demodulator) Close() error {
	var err error
	if d.capture != nil {
		err = d.capture.Close()
		d.capture = nil
	}
	if d.outFile != nil {
		if cerr := d.outFile.Close(); err == nil {
			err = errors.Wrap(cerr, "closing output file")
		}
		d.outFile = nil
	}
	return err
}
