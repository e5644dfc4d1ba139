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
	"github.com/pkg/errors"
)

// burst describes the current burst without its data.
func (d *Demodulator) burst() Burst {
	b := Burst{
		Start:          d.signalStart,
		Interval:       1000 * (float64(d.signalStart) - float64(d.lastSignalStart)) / d.sampleRate,
		Representation: d.rep,
	}

	if len(d.signal) > 0 {
		for _, s := range d.signal {
			b.Power += mag(s)
		}
		b.Power /= float64(len(d.signal))
	}

	return b
}

// represent reports the current burst. Compressed and NRZ bursts are always
// reported and captured since there is no telling whether they are any
// good. The decoding representations report and capture only bursts that
// decode to something.
func (d *Demodulator) represent() error {
	b := d.burst()

	switch d.rep {
	case Compressed:
		b.Data = CompressedString(d.symbols)
	case NRZ:
		b.Data = NRZString(d.symbols)
	case Manchester:
		b.Data = ManchesterDecode(d.symbols)
		if b.Data == "" {
			return nil
		}
		if d.hex {
			b.Hex = HexBytes(b.Data)
		}
	case ManchesterStrict:
		b.Data = StrictDecode(d.symbols)
		if b.Data == "" {
			return nil
		}
		if d.hex {
			b.Hex = HexWords(b.Data)
		}
	case Decode:
		b.Data = ManchesterDecode(d.symbols)
		if b.Data == "" {
			return nil
		}

		// Capture anything that decodes, even without a message.
		if err := d.save(); err != nil {
			return err
		}

		b.Message = ParseMessage(b.Data)
		if b.Message == nil {
			return nil
		}

		return errors.Wrap(d.encoder().Encode(b), "encoding burst")
	default:
		return errors.Errorf("unknown representation: %d", d.rep)
	}

	if err := d.encoder().Encode(b); err != nil {
		return errors.Wrap(err, "encoding burst")
	}

	return d.save()
}

// save writes the current burst's samples to the capture file.
func (d *Demodulator) save() error {
	if d.capture == nil {
		return nil
	}
	return d.capture.Save(d.signal)
}
