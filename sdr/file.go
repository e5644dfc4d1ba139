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

package sdr

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Sample file formats.
type Format int

const (
	// Interleaved little-endian float32 I/Q, also the capture file format.
	FormatCF32 Format = iota
	// Interleaved unsigned 8-bit I/Q as written by rtl_sdr.
	FormatCU8
)

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(value) {
	case "cf32", "fc32", "complex":
		return FormatCF32, nil
	case "cu8", "u8", "rtlsdr":
		return FormatCU8, nil
	}
	return 0, errors.Errorf("invalid input format: %q", value)
}

func (f Format) String() string {
	switch f {
	case FormatCF32:
		return "cf32"
	case FormatCU8:
		return "cu8"
	}
	return "unknown"
}

// sampleSize in bytes of one complex sample.
func (f Format) sampleSize() int {
	if f == FormatCU8 {
		return 2
	}
	return 8
}

// FileSource replays samples from a file or any other reader.
type FileSource struct {
	r      io.Reader
	c      io.Closer
	format Format
	lut    IQLUT
	buf    []byte
}

// OpenFile opens filename for replay.
func OpenFile(filename string, format Format) (*FileSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening input file")
	}

	src := NewFileSource(bufio.NewReaderSize(f, 1<<16), format)
	src.c = f

	return src, nil
}

// NewFileSource reads samples of the given format from r.
func NewFileSource(r io.Reader, format Format) *FileSource {
	src := &FileSource{r: r, format: format}
	if format == FormatCU8 {
		src.lut = NewIQLUT()
	}
	return src
}

// Read returns io.EOF once the file is exhausted. A trailing partial sample
// is dropped.
func (src *FileSource) Read(samples []complex64) (int, error) {
	size := src.format.sampleSize()
	if n := len(samples) * size; cap(src.buf) < n {
		src.buf = make([]byte, n)
	}
	buf := src.buf[:len(samples)*size]

	n, err := io.ReadFull(src.r, buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	n /= size
	if n == 0 && err == nil {
		err = io.EOF
	}

	switch src.format {
	case FormatCU8:
		src.lut.Execute(buf[:n*size], samples[:n])
	default:
		for idx := range samples[:n] {
			b := buf[idx*size:]
			re := math.Float32frombits(binary.LittleEndian.Uint32(b))
			im := math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
			samples[idx] = complex(re, im)
		}
	}

	return n, err
}

func (src *FileSource) Close() error {
	if src.c == nil {
		return nil
	}
	return src.c.Close()
}
