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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bemasher/omnidemod/csv"
	"github.com/pkg/errors"
)

// A Burst is one reported run of valid symbols.
type Burst struct {
	// Sample number the burst started at.
	Start uint64
	// Milliseconds since the previous burst started.
	Interval float64
	// Mean magnitude of the burst's samples.
	Power float64

	Representation Representation
	Hex            string   `json:",omitempty"`
	Data           string   `json:",omitempty"`
	Message        *Message `json:",omitempty"`
}

// Text is the burst's data as it is displayed.
func (b Burst) Text() string {
	switch b.Representation {
	case Manchester:
		return groupBits(b.Data)
	case Decode:
		if b.Message == nil {
			return ""
		}
		return b.Message.String()
	}
	return b.Data
}

// groupBits spaces runs of bits into groups of four and surrounds anything
// else with spaces.
func groupBits(data string) string {
	var b strings.Builder

	n := 0
	for idx := 0; idx < len(data); idx++ {
		c := data[idx]
		if c == '0' || c == '1' {
			if n > 0 && n%4 == 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(c)
			n++
			continue
		}

		b.WriteByte(' ')
		b.WriteByte(c)
		b.WriteByte(' ')
		n = 0
	}

	return b.String()
}

func (b Burst) Record() []string {
	return []string{
		strconv.FormatUint(b.Start, 10),
		strconv.FormatFloat(b.Interval, 'f', 1, 64),
		strconv.FormatFloat(b.Power, 'f', 1, 64),
		b.Representation.String(),
		b.Hex,
		b.Text(),
	}
}

// JSON and CSV encoders both implement this interface so we can simplify
// report formatting.
type Encoder interface {
	Encode(interface{}) error
}

// PlainEncoder writes one line of text per burst.
type PlainEncoder struct {
	w io.Writer

	ShowSamples bool
	ShowPower   bool
}

func NewPlainEncoder(w io.Writer) *PlainEncoder {
	return &PlainEncoder{w: w}
}

func (enc *PlainEncoder) Encode(v interface{}) error {
	b, ok := v.(Burst)
	if !ok {
		return errors.Errorf("plain encoder: unsupported type %T", v)
	}

	var line strings.Builder
	if enc.ShowSamples {
		fmt.Fprintf(&line, "sample: %9d (%.1fms)\t", b.Start, b.Interval)
	}
	if enc.ShowPower {
		fmt.Fprintf(&line, "power: %.1f", b.Power)
		// Decoded representations separate power with a colon.
		if b.Representation >= ManchesterStrict {
			line.WriteByte(':')
		}
		line.WriteByte('\t')
	}
	if b.Hex != "" {
		line.WriteString(b.Hex)
		line.WriteString(":\t")
	}
	line.WriteString(b.Text())
	line.WriteByte('\n')

	_, err := io.WriteString(enc.w, line.String())
	return err
}

// Report output formats.
type ReportFormat int

const (
	FormatPlain ReportFormat = iota
	FormatJSON
	FormatCSV
)

func ParseReportFormat(value string) (ReportFormat, error) {
	switch strings.ToLower(value) {
	case "plain":
		return FormatPlain, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return 0, errors.Errorf("invalid format: %q", value)
}

func (f ReportFormat) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	}
	return "unknown"
}

// NewEncoder returns an encoder of the given format writing to w.
func NewEncoder(format ReportFormat, w io.Writer, showSamples, showPower bool) Encoder {
	switch format {
	case FormatJSON:
		return json.NewEncoder(w)
	case FormatCSV:
		return csv.NewEncoder(w)
	}

	enc := NewPlainEncoder(w)
	enc.ShowSamples = showSamples
	enc.ShowPower = showPower
	return enc
}
