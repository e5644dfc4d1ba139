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
	"fmt"
	"strings"
)

// HexBytes packs runs of '0' and '1' MSB first into bytes, four bytes to a
// group. Any other character ends the current byte, zero padding it, and is
// copied through on its own.
func HexBytes(data string) string {
	var (
		b       strings.Builder
		h, bits int
		count   int
	)

	emit := func() {
		h <<= 8 - bits
		if count > 0 && count%4 == 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", h)
		count++
		h, bits = 0, 0
	}

	for idx := 0; idx < len(data); idx++ {
		c := data[idx]
		if c == '0' || c == '1' {
			h = h<<1 | int(c-'0')
			bits++
			if bits == 8 {
				emit()
			}
			continue
		}

		if bits > 0 {
			emit()
		}
		if count > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(c)
		// Start a new group after a marker.
		count = 4
	}

	if bits > 0 {
		emit()
	}

	return b.String()
}

// HexWords packs bits MSB first into space separated 32-bit words, the last
// word zero padded on the right.
func HexWords(data string) string {
	var (
		words []string
		h     uint32
		bits  int
	)

	for idx := 0; idx < len(data); idx++ {
		h = h<<1 | uint32(data[idx]-'0')&1
		bits++
		if bits == 32 {
			words = append(words, fmt.Sprintf("%08x", h))
			h, bits = 0, 0
		}
	}

	if bits > 0 {
		words = append(words, fmt.Sprintf("%08x", h<<uint(32-bits)))
	}

	return strings.Join(words, " ")
}
