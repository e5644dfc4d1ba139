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
	"strings"

	"github.com/pkg/errors"
)

// A Symbol is the sliced value of one run of samples. Full-width runs are
// stored as one Low or High per symbol period. Runs of 0.5, 1.5 and 2.5
// symbol periods are violations and get their own codes.
type Symbol byte

const (
	Low      Symbol = iota // 0
	High                   // 1
	HalfLow                // v
	HalfHigh               // ^
	LowHalf                // 0 v
	HighHalf               // 1 ^
	LowHalfLow             // 0 v 0
	HighHalfHigh           // 1 ^ 1
)

// halfSymbol returns the code for a run of k+0.5 symbol periods.
func halfSymbol(k int, level Symbol) Symbol {
	return Symbol((k+1)*2) + level
}

var (
	compressedGlyphs = [...]string{"_", "-", "v", "^", "_v", "-^", "_v_", "-^-"}
	nrzGlyphs        = [...]string{"0", "1", "v", "^", "0v", "1^", "0v0", "1^1"}
)

func render(symbols []Symbol, glyphs []string) string {
	var b strings.Builder
	for _, s := range symbols {
		if int(s) < len(glyphs) {
			b.WriteString(glyphs[s])
		} else {
			b.WriteByte('*')
		}
	}
	return b.String()
}

// CompressedString draws lows as '_' and highs as '-'.
func CompressedString(symbols []Symbol) string {
	return render(symbols, compressedGlyphs[:])
}

// NRZString writes lows as '0' and highs as '1'.
func NRZString(symbols []Symbol) string {
	return render(symbols, nrzGlyphs[:])
}

// Representation selects how bursts are reported.
type Representation int

const (
	Compressed Representation = iota
	NRZ
	ManchesterStrict
	Manchester
	Decode
)

var representationNames = [...]string{"compressed", "nrz", "strict", "manchester", "decode"}

func (r Representation) String() string {
	if r < 0 || int(r) >= len(representationNames) {
		return "unknown"
	}
	return representationNames[r]
}

func (r Representation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ErrUnknownRepresentation is returned for representation names not
// starting with one of c, n, s, m or d.
var ErrUnknownRepresentation = errors.New("unknown representation")

// ParseRepresentation maps a name to its representation by the first
// letter, case-insensitively: compressed, NRZ, StrictManchester, Manchester
// or Decode.
func ParseRepresentation(name string) (Representation, error) {
	name = strings.ToLower(name)
	if name == "" {
		return 0, ErrUnknownRepresentation
	}

	switch name[0] {
	case 'c':
		return Compressed, nil
	case 'n':
		return NRZ, nil
	case 's':
		return ManchesterStrict, nil
	case 'm':
		return Manchester, nil
	case 'd':
		return Decode, nil
	}

	return 0, errors.Wrapf(ErrUnknownRepresentation, "%q", name)
}
