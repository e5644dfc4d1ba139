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

package demod

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// CaptureFilename names a capture file after the settings it was recorded
// with, so it can be replayed with the same clock and decimation.
func CaptureFilename(base string, clock float64, decimation int) string {
	return fmt.Sprintf("%s-%.1fMHz-%d.omnidump", base, clock/1e6, decimation)
}

// A Capture appends bursts to a file as little-endian complex64 samples.
// The file opens with silence and every burst is followed by silence and a
// run of ones, so that replaying it ends each burst before the next.
type Capture struct {
	c io.Closer
	b *bufio.Writer

	lead, tail int
	started    bool

	zeros, ones []complex64
}

// OpenCapture opens filename for appending.
func OpenCapture(filename string, avgLen int) (*Capture, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "opening capture file")
	}

	c := NewCapture(f, avgLen)
	c.c = f

	return c, nil
}

// NewCapture writes bursts to w. Silence and ones are sized from the
// demodulator's averaging length.
func NewCapture(w io.Writer, avgLen int) *Capture {
	c := &Capture{
		b:    bufio.NewWriter(w),
		lead: 2 * avgLen,
		tail: 4 * avgLen,
	}
	c.zeros = make([]complex64, c.tail)
	c.ones = make([]complex64, c.tail)
	for idx := range c.ones {
		c.ones[idx] = 1
	}

	return c
}

// Save writes one burst.
func (c *Capture) Save(samples []complex64) error {
	if !c.started {
		if err := binary.Write(c.b, binary.LittleEndian, c.zeros[:c.lead]); err != nil {
			return errors.Wrap(err, "writing capture")
		}
		c.started = true
	}

	for _, s := range [][]complex64{samples, c.zeros, c.ones} {
		if err := binary.Write(c.b, binary.LittleEndian, s); err != nil {
			return errors.Wrap(err, "writing capture")
		}
	}

	return nil
}

func (c *Capture) Close() error {
	err := c.b.Flush()
	if c.c != nil {
		if cerr := c.c.Close(); err == nil {
			err = cerr
		}
	}
	return errors.Wrap(err, "closing capture")
}
