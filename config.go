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
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config lists the receivers -which can choose from.
type Config struct {
	Receivers []ReceiverConfig `yaml:"receivers"`
}

// ReceiverConfig describes one rtl_tcp server.
type ReceiverConfig struct {
	Name   string `yaml:"name"`
	Server string `yaml:"server"`
}

// DefaultConfig is a single receiver at the given address.
func DefaultConfig(server string) Config {
	return Config{
		Receivers: []ReceiverConfig{{Name: "default", Server: server}},
	}
}

func LoadConfig(filename string) (cfg Config, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return cfg, errors.Wrap(err, "opening config")
	}
	defer f.Close()

	return ParseConfig(f)
}

func ParseConfig(r io.Reader) (cfg Config, err error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrap(err, "parsing config")
	}

	for idx, rc := range cfg.Receivers {
		if rc.Server == "" {
			return cfg, errors.Errorf("receiver %d (%s) has no server", idx, rc.Name)
		}
	}

	return cfg, nil
}

// Receiver returns the receiver at index which.
func (cfg Config) Receiver(which int) (ReceiverConfig, error) {
	if which < 0 || which >= len(cfg.Receivers) {
		return ReceiverConfig{}, errors.Errorf("no receiver %d, %d configured", which, len(cfg.Receivers))
	}
	return cfg.Receivers[which], nil
}
