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

// omnigen writes synthetic Manchester coded bursts for replay with
// omnidemod --input-file-name.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"io"
	mrand "math/rand"
	"os"
	"time"

	"github.com/bemasher/omnidemod/demod"
	"github.com/bemasher/omnidemod/gen"
	"github.com/bemasher/omnidemod/sdr"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type Options struct {
	Output     string
	Format     string
	Bits       string
	Hex        string
	RandBits   int
	Count      int
	Gap        int
	Clock      float64
	Decimation int
	Amplitude  float64
	Freq       float64
	Noise      float64
	Seed       int64
}

// bursts returns the chips of each burst.
func (opts Options) bursts() ([][]byte, error) {
	bursts := make([][]byte, opts.Count)
	for idx := range bursts {
		switch {
		case opts.Bits != "":
			bits, err := gen.ParseBits(opts.Bits)
			if err != nil {
				return nil, err
			}
			bursts[idx] = gen.Manchester(bits)
		case opts.Hex != "":
			data, err := hex.DecodeString(opts.Hex)
			if err != nil {
				return nil, errors.Wrap(err, "parsing hex")
			}
			bursts[idx] = gen.ManchesterBytes(data)
		default:
			bits, err := gen.NewRandBits(opts.RandBits)
			if err != nil {
				return nil, err
			}
			bursts[idx] = gen.Manchester(bits)
		}
	}
	return bursts, nil
}

// Generate writes every burst to w in the given format.
func Generate(w io.Writer, opts Options) error {
	format, err := sdr.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	if opts.Decimation <= 0 {
		return errors.Errorf("invalid decimation: %d", opts.Decimation)
	}
	if opts.Gap < 0 {
		return errors.Errorf("invalid gap: %d", opts.Gap)
	}

	sr := opts.Clock / float64(opts.Decimation)
	chipLength := int(sr / demod.SymbolRate)
	if chipLength < 1 {
		return errors.Errorf("sample rate too low: %.0f", sr)
	}

	bursts, err := opts.bursts()
	if err != nil {
		return err
	}

	rng := mrand.New(mrand.NewSource(opts.Seed))

	bw := bufio.NewWriter(w)
	for idx, chips := range bursts {
		b := gen.Burst{
			Chips:      chips,
			ChipLength: chipLength,
			Amplitude:  opts.Amplitude,
			Freq:       opts.Freq,
			SampleRate: sr,
			Lead:       opts.Gap,
			Noise:      opts.Noise,
			Rand:       rng,
		}
		if idx == len(bursts)-1 {
			b.Tail = opts.Gap
		}

		samples := b.Samples()

		switch format {
		case sdr.FormatCU8:
			u8 := make([]byte, len(samples)<<1)
			gen.C64toU8(samples, u8)
			_, err = bw.Write(u8)
		default:
			err = binary.Write(bw, binary.LittleEndian, samples)
		}
		if err != nil {
			return errors.Wrap(err, "writing samples")
		}

		log.WithFields(log.Fields{
			"burst": idx,
			"chips": gen.Chips(chips),
		}).Debug("generated")
	}

	return errors.Wrap(bw.Flush(), "flushing samples")
}

func run(args []string) error {
	var opts Options

	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.StringVarP(&opts.Output, "output", "o", "", "file to write, stdout if empty")
	fs.StringVar(&opts.Format, "format", "cf32", "sample format: cf32 or cu8")
	fs.StringVarP(&opts.Bits, "bits", "b", "", "bits to send")
	fs.StringVar(&opts.Hex, "hex", "", "bytes to send as hex, if --bits is empty")
	fs.IntVar(&opts.RandBits, "rand-bits", 64, "number of random bits per burst without --bits or --hex")
	fs.IntVarP(&opts.Count, "count", "n", 1, "number of bursts")
	fs.IntVar(&opts.Gap, "gap", 8192, "samples of silence between bursts")
	fs.Float64VarP(&opts.Clock, "clock-speed", "F", sdr.DefaultMasterClock, "master clock the file is recorded at")
	fs.IntVarP(&opts.Decimation, "decimation", "d", 256, "decimation")
	fs.Float64Var(&opts.Amplitude, "amplitude", 0.5, "burst amplitude")
	fs.Float64Var(&opts.Freq, "freq", 0, "carrier offset in Hz")
	fs.Float64Var(&opts.Noise, "noise", 0, "peak noise amplitude")
	fs.Int64Var(&opts.Seed, "seed", time.Now().UnixNano(), "noise seed")
	verbose := fs.BoolP("verbose", "v", false, "log each burst")

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if opts.Output == "" {
		return Generate(os.Stdout, opts)
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return errors.Wrap(err, "creating output")
	}

	if err := Generate(f, opts); err != nil {
		f.Close()
		return err
	}

	return errors.Wrap(f.Close(), "closing output")
}

func main() {
	if err := run(os.Args); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		log.Fatal(err)
	}
}
