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
	"io"
	"math"
	"net"

	"github.com/bemasher/rtltcp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultMasterClock is the nominal clock the sample rate is derived
	// from. 64MHz / 256 = 250kHz, which the RTL2832U supports.
	DefaultMasterClock = 64e6

	// RTL2832U crystal, direct sampling covers DC to half of this.
	rtlXtalFreq = 28.8e6

	// Valid sample rates fall in one of two bands:
	// http://cgit.osmocom.org/rtl-sdr/tree/src/librtlsdr.c#n1069
	LowerMin = 225e3
	LowerMax = 300e3
	UpperMin = 900e3
	UpperMax = 3.2e6
)

// ValidSampleRate reports whether the RTL2832U can sample at rate.
func ValidSampleRate(rate float64) bool {
	return (LowerMin < rate && rate <= LowerMax) || (UpperMin < rate && rate <= UpperMax)
}

// Tuning and gain limits of each tuner rtl_tcp may report.
type tunerRange struct {
	minFreq, maxFreq float64
	minGain, maxGain float64
}

var tunerRanges = map[rtltcp.Tuner]tunerRange{
	1: {52e6, 2200e6, -1.0, 42.0},  // E4000
	2: {22e6, 948.6e6, -9.9, 15.9}, // FC0012
	3: {22e6, 1100e6, -9.9, 19.7},  // FC0013
	4: {146e6, 924e6, 0, 0},        // FC2580
	5: {24e6, 1766e6, 0, 49.6},     // R820T
	6: {24e6, 1766e6, 0, 49.6},     // R828D
}

var directSamplingRange = tunerRange{0, rtlXtalFreq / 2, 0, 0}

// RTLTCP is a Device backed by an rtl_tcp server. Side A is the tuner, side
// B is the RTL2832U direct sampling path.
type RTLTCP struct {
	sdr rtltcp.SDR

	clock      float64
	decimation int
	side       Side

	lut   IQLUT
	block []byte
}

// NewRTLTCP connects to the rtl_tcp server at addr and sets the sample rate
// from the default master clock and the given decimation.
func NewRTLTCP(addr string, decimation int) (*RTLTCP, error) {
	if decimation <= 0 {
		return nil, errors.Errorf("invalid decimation: %d", decimation)
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolving rtl_tcp address")
	}

	dev := &RTLTCP{
		clock:      DefaultMasterClock,
		decimation: decimation,
		lut:        NewIQLUT(),
	}

	if err := dev.sdr.Connect(tcpAddr); err != nil {
		return nil, errors.Wrap(err, "connecting to rtl_tcp")
	}

	log.WithFields(log.Fields{
		"server":    addr,
		"tuner":     dev.sdr.Info.Tuner,
		"gaincount": dev.sdr.Info.GainCount,
	}).Info("connected")

	if err := dev.applySampleRate(); err != nil {
		dev.Close()
		return nil, err
	}

	return dev, nil
}

func (dev *RTLTCP) applySampleRate() error {
	rate := dev.clock / float64(dev.decimation)
	if !ValidSampleRate(rate) {
		return errors.Errorf("sample rate %.0f (%.0f / %d) not supported by RTL2832U", rate, dev.clock, dev.decimation)
	}

	return errors.Wrap(dev.sdr.SetSampleRate(uint32(rate)), "setting sample rate")
}

func (dev *RTLTCP) MasterClock() float64 {
	return dev.clock
}

func (dev *RTLTCP) SetMasterClock(hz float64) error {
	prev := dev.clock
	dev.clock = hz
	if err := dev.applySampleRate(); err != nil {
		dev.clock = prev
		return err
	}
	return nil
}

func (dev *RTLTCP) Decimation() int {
	return dev.decimation
}

func (dev *RTLTCP) Frontend(side Side) Frontend {
	switch side {
	case SideA:
		return Frontend{SideA, IDTuner, dev.sdr.Info.Tuner.String()}
	case SideB:
		return Frontend{SideB, IDLFRX, "RTL2832U direct sampling"}
	}
	return Frontend{side, IDNone, ""}
}

func (dev *RTLTCP) Select(side Side) error {
	if side != SideA && side != SideB {
		return errors.Errorf("invalid side: %s", side)
	}
	dev.side = side

	return errors.Wrap(dev.sdr.SetDirectSampling(side == SideB), "setting direct sampling")
}

func (dev *RTLTCP) limits() tunerRange {
	if dev.side == SideB {
		return directSamplingRange
	}
	return tunerRanges[dev.sdr.Info.Tuner]
}

func (dev *RTLTCP) GainRange() (min, max float64) {
	r := dev.limits()
	return r.minGain, r.maxGain
}

// SetGain switches the tuner to manual gain. The direct sampling path has no
// gain stage, so this is a no-op on side B.
func (dev *RTLTCP) SetGain(db float64) error {
	if dev.side == SideB {
		return nil
	}

	if err := dev.sdr.SetGainMode(false); err != nil {
		return errors.Wrap(err, "setting gain mode")
	}

	// Gain in tenths of dB, rtl_tcp reads the parameter as a signed int.
	tenths := int32(math.Round(db * 10))
	return errors.Wrap(dev.sdr.SetGain(uint32(tenths)), "setting gain")
}

func (dev *RTLTCP) Tune(hz float64) error {
	r := dev.limits()
	if hz < r.minFreq || hz > r.maxFreq {
		return errors.Errorf("%.3fMHz outside of side %s range %.1f-%.1fMHz",
			hz/1e6, dev.side, r.minFreq/1e6, r.maxFreq/1e6,
		)
	}

	return errors.Wrap(dev.sdr.SetCenterFreq(uint32(hz)), "setting center frequency")
}

// Read fills samples from the unsigned 8-bit interleaved stream.
func (dev *RTLTCP) Read(samples []complex64) (int, error) {
	if n := len(samples) << 1; cap(dev.block) < n {
		dev.block = make([]byte, n)
	}
	block := dev.block[:len(samples)<<1]

	n, err := io.ReadFull(dev.sdr, block)
	n >>= 1
	dev.lut.Execute(block[:n<<1], samples[:n])

	return n, err
}

func (dev *RTLTCP) Close() error {
	if dev.sdr.TCPConn == nil {
		return nil
	}
	return dev.sdr.Close()
}

// IQLUT converts unsigned 8-bit I/Q, centered on the most common DC offset
// for rtl-sdr dongles, to floating point.
type IQLUT []float32

func NewIQLUT() (lut IQLUT) {
	lut = make([]float32, 0x100)
	for idx := range lut {
		lut[idx] = (float32(idx) - 127.5) / 127.5
	}
	return
}

func (lut IQLUT) Execute(input []byte, output []complex64) {
	i := 0
	for idx := range output {
		output[idx] = complex(lut[input[i]], lut[input[i+1]])
		i += 2
	}
}
