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

	log "github.com/sirupsen/logrus"
)

// Decoded text is limited to this many bytes.
const MaxData = 2 * 8192

// One decoder step: emit out, advance by adv symbols and, when rewrite is
// not none, replace the second symbol of the pair before continuing.
type step struct {
	out     string
	adv     int
	rewrite Symbol
}

const none Symbol = 0xFF

// Decoder steps indexed by the current and the next symbol. A '*' marks a
// missing phase change or a violation in the center of a bit. A '#' marks a
// pair that cannot come out of the slicer. Violations are assumed to come
// before the symbol they are attached to.
var manchesterSteps = [8][8]step{
	Low: {
		{"*", 1, none}, {"0", 2, none}, {"#", 1, none}, {"*", 1, none},
		{"#", 1, none}, {"0^", 2, none}, {"#", 1, none}, {"0^", 1, High},
	},
	High: {
		{"1", 2, none}, {"*", 1, none}, {"*", 1, none}, {"#", 1, none},
		{"1v", 2, none}, {"#", 1, none}, {"1v", 1, Low}, {"#", 1, none},
	},
	LowHalf: {
		{"#", 1, none}, {"v0", 2, none}, {"#", 1, none}, {"v*", 1, none},
		{"#", 1, none}, {"v0^", 2, none}, {"#", 1, none}, {"v0^", 1, High},
	},
	HighHalf: {
		{"^1", 2, none}, {"#", 1, none}, {"^*", 1, none}, {"#", 1, none},
		{"^1v", 2, none}, {"#", 1, none}, {"^1v", 1, Low}, {"#", 1, none},
	},
	LowHalfLow: {
		{"#", 1, none}, {"*v0", 2, none}, {"#", 1, none}, {"*", 1, none},
		{"#", 1, none}, {"*v0v", 2, none}, {"#", 1, none}, {"*v0^", 1, High},
	},
	HighHalfHigh: {
		{"*^1", 2, none}, {"#", 1, none}, {"*", 1, none}, {"#", 1, none},
		{"*^1v", 2, none}, {"#", 1, none}, {"*^1v", 1, Low}, {"#", 1, none},
	},
}

// ManchesterDecode pairs up symbols into bits, 01 is 0 and 10 is 1. It
// tolerates phase errors and violations, marking them in the output rather
// than giving up. A trailing unpaired symbol is dropped.
func ManchesterDecode(symbols []Symbol) string {
	// Some steps rewrite the next symbol.
	s := make([]Symbol, len(symbols))
	copy(s, symbols)

	var data strings.Builder
	put := func(c string) {
		if data.Len()+len(c) < MaxData-1 {
			data.WriteString(c)
		}
	}

	for i := 0; i+1 < len(s); {
		switch s[i] {
		case HalfLow:
			put("v")
			i++
		case HalfHigh:
			put("^")
			i++
		case Low, High, LowHalf, HighHalf, LowHalfLow, HighHalfHigh:
			if s[i+1] > HighHalfHigh {
				put("X")
				i += 2
				continue
			}

			st := manchesterSteps[s[i]][s[i+1]]
			put(st.out)
			if st.rewrite != none {
				s[i+1] = st.rewrite
			}
			i += st.adv
		default:
			put("X")
			i++
		}
	}

	return data.String()
}

// StrictPreamble must appear in the symbol stream before any data. It is
// followed by a 1.5 symbol high (HighHalf) or, when the first data symbol is
// also high, a 2.5 symbol high (HighHalfHigh).
var StrictPreamble = []Symbol{1, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 0}

// StrictDecode decodes the bits following the preamble, stopping at the
// first violation. The result holds one '0' or '1' per bit. An empty result
// means no preamble was found.
func StrictDecode(symbols []Symbol) string {
	n := len(symbols)
	pl := len(StrictPreamble)
	if n < pl {
		return ""
	}

	i := 0
	for ; i < n-pl; i++ {
		if hasPrefix(symbols[i:], StrictPreamble) {
			break
		}
	}
	if i >= n-pl {
		return ""
	}

	s := make([]Symbol, n)
	copy(s, symbols)

	i += pl
	switch s[i] {
	case HighHalf:
		i++
	case HighHalfHigh:
		s[i] = High
	default:
		log.WithField("symbol", s[i]).Debug("preamble end not found")
		return ""
	}

	var data strings.Builder
	for ; i+1 < n; i += 2 {
		if s[i] > High || s[i+1] > High {
			break
		}

		switch {
		case s[i] == Low && s[i+1] == High:
			data.WriteByte('0')
		case s[i] == High && s[i+1] == Low:
			data.WriteByte('1')
		default:
			log.WithField("symbol", i).Warn("manchester decoding error")
		}
	}

	return data.String()
}

func hasPrefix(s, prefix []Symbol) bool {
	if len(s) < len(prefix) {
		return false
	}
	for idx := range prefix {
		if s[idx] != prefix[idx] {
			return false
		}
	}
	return true
}
