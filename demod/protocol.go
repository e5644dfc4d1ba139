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

// MessagePreamble marks the start of a message in Manchester decoded text.
const MessagePreamble = "1101111110^"

// Field widths in bits following the preamble: more bursts expected,
// message type, sequence number, four words, a short and four nibbles.
var MessageFields = []int{1, 2, 5, 32, 32, 32, 32, 16, 4, 4, 4, 4}

// A Field is one fixed width value of a message. Fields containing anything
// other than bits are invalid.
type Field struct {
	Bits  int
	Value uint32
	Valid bool
}

func (f Field) String() string {
	digits := (f.Bits + 3) / 4
	if !f.Valid {
		return strings.Repeat("X", digits)
	}
	return fmt.Sprintf("%0*x", digits, f.Value)
}

// A Message is the fields found after the preamble. Complete is false when
// the data ran out before the last field.
type Message struct {
	Fields   []Field
	Complete bool
}

func (msg Message) String() string {
	var b strings.Builder
	b.WriteString("P:")
	for _, f := range msg.Fields {
		b.WriteByte(' ')
		b.WriteString(f.String())
	}
	if msg.Complete {
		b.WriteString(" !")
	}
	return b.String()
}

// ParseMessage looks for the preamble in Manchester decoded text and reads
// the message fields following it. It returns nil if there is no preamble.
func ParseMessage(data string) *Message {
	idx := strings.Index(data, MessagePreamble)
	if idx == -1 {
		return nil
	}

	msg := &Message{}
	p := idx + len(MessagePreamble)

	for _, bits := range MessageFields {
		value, next, missing := readBits(data, p, bits)
		if missing < 0 {
			return msg
		}
		msg.Fields = append(msg.Fields, Field{bits, value, missing == 0})
		p = next
	}
	msg.Complete = true

	return msg
}

// readBits reads up to bits characters of '0' and '1' starting at p. If a
// non-bit character interrupts the field, the remainder of the field's width
// is skipped and the number of missing bits returned. Running off the end of
// data returns -1.
func readBits(data string, p, bits int) (value uint32, next, missing int) {
	if bits > 32 {
		bits = 32
	}

	i := 0
	for ; p < len(data) && i < bits && (data[p] == '0' || data[p] == '1'); i++ {
		value = value<<1 | uint32(data[p]-'0')
		p++
	}

	if i >= bits {
		return value, p, 0
	}
	if p >= len(data) {
		return value, p, -1
	}

	return value, p + bits - i, bits - i
}
