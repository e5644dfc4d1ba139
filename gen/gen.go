// Package gen synthesizes on-off keyed Manchester bursts for testing the
// demodulator and producing replay files.
package gen

import (
	"crypto/rand"
	"fmt"
	"math"
	mrand "math/rand"
	"strings"
)

// NewRandBits returns n random bits, one per byte.
func NewRandBits(n int) (bits []byte, err error) {
	buf := make([]byte, (n+7)>>3)
	if _, err = rand.Read(buf); err != nil {
		return nil, err
	}
	return UnpackBits(buf)[:n], nil
}

// ParseBits converts a string of '0' and '1' to bits, one per byte. Spaces
// are ignored.
func ParseBits(s string) ([]byte, error) {
	bits := make([]byte, 0, len(s))
	for idx, c := range s {
		switch c {
		case '0', '1':
			bits = append(bits, byte(c-'0'))
		case ' ':
		default:
			return nil, fmt.Errorf("invalid bit %q at %d", c, idx)
		}
	}
	return bits, nil
}

// ManchesterLUT maps a nibble to its Manchester encoded byte, 1 is 10 and 0
// is 01.
type ManchesterLUT [16]byte

func NewManchesterLUT() ManchesterLUT {
	return ManchesterLUT{
		85, 86, 89, 90, 101, 102, 105, 106, 149, 150, 153, 154, 165, 166, 169, 170,
	}
}

func (lut ManchesterLUT) Encode(data []byte) (manchester []byte) {
	manchester = make([]byte, len(data)<<1)

	for idx := range data {
		manchester[idx<<1] = lut[data[idx]>>4]
		manchester[idx<<1+1] = lut[data[idx]&0x0F]
	}

	return
}

var manchesterLUT = NewManchesterLUT()

// ManchesterBytes encodes whole bytes, MSB first, as chips, one per byte.
func ManchesterBytes(data []byte) []byte {
	return UnpackBits(manchesterLUT.Encode(data))
}

// Manchester encodes bits of any length as chips, one per byte.
func Manchester(bits []byte) []byte {
	chips := make([]byte, len(bits)<<1)
	for idx, b := range bits {
		chips[idx<<1] = b & 1
		chips[idx<<1+1] = ^b & 1
	}
	return chips
}

// Chips formats chips the way the NRZ representation does.
func Chips(chips []byte) string {
	var b strings.Builder
	for _, c := range chips {
		b.WriteByte('0' + c&1)
	}
	return b.String()
}

func UnpackBits(data []byte) []byte {
	bits := make([]byte, len(data)<<3)

	for idx, b := range data {
		offset := idx << 3
		for bit := 7; bit >= 0; bit-- {
			bits[offset+(7-bit)] = (b >> uint8(bit)) & 0x01
		}
	}

	return bits
}

func Upsample(bits []byte, factor int) []byte {
	signal := make([]byte, len(bits)*factor)

	for idx, b := range bits {
		offset := idx * factor
		for i := 0; i < factor; i++ {
			signal[offset+i] = b
		}
	}

	return signal
}

// A Burst describes an on-off keyed transmission and the silence around it.
type Burst struct {
	Chips      []byte
	ChipLength int // samples per chip

	Amplitude  float64
	Freq       float64 // carrier offset in Hz, 0 for DC
	SampleRate float64

	Lead, Tail int // samples of silence before and after

	Noise float64 // peak noise amplitude
	Rand  *mrand.Rand
}

// Samples renders the burst.
func (b Burst) Samples() []complex64 {
	keyed := Upsample(b.Chips, b.ChipLength)
	signal := make([]complex64, b.Lead+len(keyed)+b.Tail)

	var carrier []complex64
	if b.Freq != 0 {
		carrier = CmplxOscillatorC64(len(keyed), b.Freq, b.SampleRate)
	}

	for idx, k := range keyed {
		if k == 0 {
			continue
		}
		s := complex(float32(b.Amplitude), 0)
		if carrier != nil {
			s = carrier[idx] * s
		}
		signal[b.Lead+idx] = s
	}

	if b.Noise > 0 && b.Rand != nil {
		for idx := range signal {
			re := (b.Rand.Float64() - 0.5) * 2.0 * b.Noise
			im := (b.Rand.Float64() - 0.5) * 2.0 * b.Noise
			signal[idx] += complex(float32(re), float32(im))
		}
	}

	return signal
}

func CmplxOscillatorC64(samples int, freq float64, samplerate float64) []complex64 {
	signal := make([]complex64, samples)

	for idx := range signal {
		s, c := math.Sincos(2 * math.Pi * float64(idx) * freq / samplerate)
		signal[idx] = complex(float32(c), float32(s))
	}

	return signal
}

// C64toU8 converts samples to interleaved unsigned 8-bit I/Q as rtl_sdr
// writes it. Values are clipped to [-1, 1].
func C64toU8(c64 []complex64, u8 []byte) {
	if len(c64)<<1 != len(u8) {
		panic(fmt.Errorf("arrays must have matching dimensions: %d != %d", len(c64)<<1, len(u8)))
	}

	for idx, val := range c64 {
		u8[idx<<1] = toU8(real(val))
		u8[idx<<1+1] = toU8(imag(val))
	}
}

func toU8(v float32) uint8 {
	f := math.Max(-1, math.Min(1, float64(v)))
	return uint8(math.Round(f*127.5 + 127.5))
}
