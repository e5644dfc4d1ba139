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

// slice converts the run that just ended into symbols. Runs of a whole
// number of symbol widths append that many symbols of the run's level. Runs
// of 0.5, 1.5 and 2.5 widths are violations, usually separating preamble and
// data, and append a single half symbol code. Any other width ends the
// current burst.
func (d *Demodulator) slice() {
	symbols := float64(d.count) / float64(d.sps)

	level := Low
	if d.sign >= 0 {
		level = High
	}

	for i := 1; i < AverageSymbols-1 && float64(i)-SymbolError < symbols; i++ {
		if symbols > float64(i)+SymbolError {
			continue
		}

		d.keep(d.count)
		d.markStart()

		for j := 0; j < i; j++ {
			d.symbols = append(d.symbols, level)
			if len(d.symbols) >= MaxSymbols {
				d.flush()
			}
		}
		return
	}

	for k := 0; k <= 2 && float64(k)+0.5-SymbolError < symbols; k++ {
		if symbols > float64(k)+0.5+SymbolError {
			continue
		}

		d.keep(d.count)
		d.markStart()

		d.symbols = append(d.symbols, halfSymbol(k, level))
		if len(d.symbols) >= MaxSymbols {
			d.flush()
		}
		return
	}

	if len(d.symbols) == 0 {
		return
	}

	// This run is the first invalid one, keep some of it with the burst.
	// There could be a lot of junk here so limit it.
	n := d.count + d.jitter
	if limit := 8 * d.avgLen; n > limit {
		n = limit
	}
	d.keep(n)

	d.flush()
}

// keep copies n samples of the run that just ended from the raw buffer to
// the burst buffer. Samples past the burst buffer's capacity are dropped.
func (d *Demodulator) keep(n int) {
	back := d.count + d.jitter + 1
	if back > d.raw.Len() {
		return
	}

	if room := BufferLength - len(d.signal); n > room {
		n = room
	}
	d.signal = d.raw.Tail(d.signal, back, n)
}

// markStart records the start of a burst on its first valid symbol.
func (d *Demodulator) markStart() {
	if len(d.symbols) > 0 {
		return
	}

	d.lastSignalStart = d.signalStart

	offset := uint64(d.count + d.jitter + 1 + 2*d.avgLen)
	if d.sampleNumber > offset {
		d.signalStart = d.sampleNumber - offset
	} else {
		d.signalStart = 0
	}
}

// flush reports the current burst and resets the symbol and burst buffers.
func (d *Demodulator) flush() {
	if err := d.represent(); err != nil && d.err == nil {
		d.err = err
	}

	d.symbols = d.symbols[:0]
	d.signal = d.signal[:0]
}
