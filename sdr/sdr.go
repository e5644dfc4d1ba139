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

// Package sdr provides the sample sources the demodulator reads from: an
// rtl_tcp backed receiver and a file replay source.
package sdr

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// A Source produces complex baseband samples at a fixed rate.
type Source interface {
	Read(samples []complex64) (int, error)
	Close() error
}

// A Device is a tunable hardware Source with two receive front ends.
type Device interface {
	Source

	MasterClock() float64
	SetMasterClock(hz float64) error
	Decimation() int

	Frontend(side Side) Frontend
	Select(side Side) error

	// Gain range of the selected front end in dB.
	GainRange() (min, max float64)
	SetGain(db float64) error

	Tune(hz float64) error
}

// Side identifies one of the two receive front ends.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	}
	return "?"
}

// ParseSide accepts "A", "b", "A:0" and the like.
func ParseSide(value string) (Side, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if idx := strings.IndexByte(v, ':'); idx != -1 {
		if v[idx+1:] != "0" {
			return 0, errors.Errorf("invalid subdevice: %q", value)
		}
		v = v[:idx]
	}

	switch v {
	case "A":
		return SideA, nil
	case "B":
		return SideB, nil
	}

	return 0, errors.Errorf("invalid subdevice: %q", value)
}

// SideValue is a pflag.Value for an optional subdevice spec.
type SideValue struct {
	Side  Side
	Given bool
}

func (sv *SideValue) String() string {
	if !sv.Given {
		return ""
	}
	return sv.Side.String()
}

func (sv *SideValue) Set(value string) (err error) {
	sv.Side, err = ParseSide(value)
	sv.Given = err == nil
	return
}

func (sv *SideValue) Type() string {
	return "subdev"
}

// Front end identifiers.
type ID int

const (
	IDNone    ID = -1
	IDBasicRX ID = 1
	IDLFRX    ID = 15
	IDTuner   ID = 0x100
)

// Frontend describes a receive front end.
type Frontend struct {
	Side Side
	ID   ID
	Name string
}

// Suitable reports whether the front end can receive at HF baseband.
func (f Frontend) Suitable() bool {
	return f.ID == IDBasicRX || f.ID == IDLFRX
}

// ErrNoFrontend is returned by PickSubdev when neither side is usable.
var ErrNoFrontend = errors.New("no suitable daughterboard found")

// PickSubdev chooses the first suitable front end, side A before side B.
func PickSubdev(dev Device) (Side, error) {
	for _, side := range []Side{SideA, SideB} {
		fe := dev.Frontend(side)
		if fe.Suitable() {
			log.Infof("Using Side %s: %s", side, fe.Name)
			return side, nil
		}
	}

	return 0, ErrNoFrontend
}

// ScaleGain maps a fraction of the gain range onto dB.
func ScaleGain(fraction, min, max float64) float64 {
	return fraction*(max-min) + min
}
