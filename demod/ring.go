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

// Ring holds the most recent samples, overwriting the oldest when full.
type Ring struct {
	buf  []complex64
	head int // next write position
	n    int
}

func NewRing(size int) *Ring {
	return &Ring{buf: make([]complex64, size)}
}

func (r *Ring) Len() int {
	return r.n
}

func (r *Ring) Write(s complex64) {
	r.buf[r.head] = s
	r.head++
	if r.head == len(r.buf) {
		r.head = 0
	}
	if r.n < len(r.buf) {
		r.n++
	}
}

// Tail appends n samples to dst starting back samples before the newest
// sample, oldest first. back must not exceed Len.
func (r *Ring) Tail(dst []complex64, back, n int) []complex64 {
	idx := r.head - back
	if idx < 0 {
		idx += len(r.buf)
	}

	for ; n > 0; n-- {
		dst = append(dst, r.buf[idx])
		idx++
		if idx == len(r.buf) {
			idx = 0
		}
	}

	return dst
}
