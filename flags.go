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

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bemasher/omnidemod/sdr"
	"github.com/bemasher/rtltcp/si"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const envPrefix = "OMNIDEMOD_"

// Options holds every command line setting.
type Options struct {
	Which          int
	Subdev         sdr.SideValue
	Decimation     int
	ClockSpeed     EngFloat
	Gain           EngFloat
	InputFile      string
	InputFormat    string
	OutputFile     string
	Representation string
	Hex            bool
	ShowPower      bool
	ShowSamples    bool
	CaptureFile    string

	Format     string
	TimeLimit  time.Duration
	ConfigFile string
	LogLevel   string
	Version    bool

	Server     string
	CenterFreq EngFloat

	fs *pflag.FlagSet
}

// NewOptions registers all flags on a new flag set.
func NewOptions(name string) *Options {
	opts := &Options{
		CenterFreq: EngFloat{13.56e6},
		Gain:       EngFloat{0.5},
	}

	demodFlags := pflag.NewFlagSet("demod", pflag.ContinueOnError)
	demodFlags.IntVarP(&opts.Which, "which", "w", 0, "select which receiver to use")
	demodFlags.VarP(&opts.Subdev, "rx-subdev-spec", "R", "select receiver side A or B")
	demodFlags.IntVarP(&opts.Decimation, "decimation", "d", 256, "set decimation")
	demodFlags.VarP(&opts.ClockSpeed, "clock-speed", "F", "set master clock speed (default 64M for files, device clock otherwise)")
	demodFlags.VarP(&opts.Gain, "gain", "g", "set gain as a fraction of the gain range [0.0, 1.0]")
	demodFlags.StringVarP(&opts.InputFile, "input-file-name", "f", "", "read samples from file instead of a receiver")
	demodFlags.StringVar(&opts.InputFormat, "input-format", "cf32", "input file sample format: cf32 or cu8")
	demodFlags.StringVarP(&opts.OutputFile, "output-file-name", "o", "", "append output to file as well as the screen")
	demodFlags.StringVarP(&opts.Representation, "representation", "r", "m", "set representation: compressed, NRZ, Manchester, StrictManchester or Decode")
	demodFlags.BoolVarP(&opts.Hex, "hex", "H", false, "include hex representation of data")
	demodFlags.BoolVarP(&opts.ShowPower, "show-power", "p", false, "show average power of each burst")
	demodFlags.BoolVarP(&opts.ShowSamples, "show-samples", "s", false, "show starting sample of each burst")
	demodFlags.StringVarP(&opts.CaptureFile, "capture-file", "c", "", "save bursts in filename-clock_speed-decimation.omnidump")
	demodFlags.StringVar(&opts.Format, "format", "plain", "burst output format: plain, json or csv")
	demodFlags.DurationVar(&opts.TimeLimit, "duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")
	demodFlags.StringVar(&opts.ConfigFile, "config", "", "yaml file listing receivers to choose from with -which")
	demodFlags.StringVar(&opts.LogLevel, "log-level", "info", "log level: debug, info, warn or error")
	demodFlags.BoolVar(&opts.Version, "version", false, "display build date and commit hash")

	rtltcpFlags := pflag.NewFlagSet("rtltcp", pflag.ContinueOnError)
	rtltcpFlags.StringVar(&opts.Server, "server", "127.0.0.1:1234", "address or hostname of rtl_tcp instance")
	rtltcpFlags.Var(&opts.CenterFreq, "center-freq", "center frequency to receive on")
	rtltcpFlags.Lookup("center-freq").DefValue = "13.56M"

	opts.fs = pflag.NewFlagSet(name, pflag.ContinueOnError)
	opts.fs.AddFlagSet(demodFlags)
	opts.fs.AddFlagSet(rtltcpFlags)

	opts.fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", name)
		fmt.Fprint(os.Stderr, demodFlags.FlagUsages())

		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "rtltcp specific:")
		fmt.Fprint(os.Stderr, rtltcpFlags.FlagUsages())
	}

	return opts
}

// Parse applies environment overrides, then parses args. Flags given on the
// command line take precedence over the environment.
func (opts *Options) Parse(args []string) error {
	opts.EnvOverride()
	return opts.fs.Parse(args)
}

// Given reports whether a flag was set on the command line or by the
// environment.
func (opts *Options) Given(name string) bool {
	return opts.fs.Changed(name)
}

func (opts *Options) Args() []string {
	return opts.fs.Args()
}

func (opts *Options) Usage() {
	opts.fs.Usage()
}

// EnvName is the environment variable overriding the named flag.
func EnvName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func (opts *Options) EnvOverride() {
	opts.fs.VisitAll(func(f *pflag.Flag) {
		envName := EnvName(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" {
			return
		}

		fields := log.Fields{"env": envName, "flag": f.Name, "value": flagValue}
		if err := opts.fs.Set(f.Name, flagValue); err != nil {
			log.WithFields(fields).WithError(err).Warn("environment variable failed to override flag")
			return
		}
		log.WithFields(fields).Info("environment variable overrides flag")
	})
}

// EngFloat is a float flag accepting engineering suffixes, 13.56M or 250k,
// as well as plain and exponent notation.
type EngFloat struct {
	si.ScientificNotation
}

func (e *EngFloat) Set(value string) error {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		e.ScientificNotation = si.ScientificNotation(f)
		return nil
	}
	return e.ScientificNotation.Set(value)
}

func (e *EngFloat) Type() string {
	return "float"
}

func (e EngFloat) Float64() float64 {
	return float64(e.ScientificNotation)
}
