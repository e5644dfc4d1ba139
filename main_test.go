package main

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bemasher/omnidemod/gen"
	"github.com/bemasher/omnidemod/sdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
receivers:
  - name: kitchen
    server: 192.168.1.20:1234
  - name: garage
    server: 192.168.1.21:1234
`))
	require.NoError(t, err)
	require.Len(t, cfg.Receivers, 2)

	rc, err := cfg.Receiver(1)
	require.NoError(t, err)
	assert.Equal(t, ReceiverConfig{"garage", "192.168.1.21:1234"}, rc)

	_, err = cfg.Receiver(2)
	assert.Error(t, err)
	_, err = cfg.Receiver(-1)
	assert.Error(t, err)
}

func TestParseConfigInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field":  "receivers:\n  - name: a\n    server: x:1\n    gain: 3\n",
		"missing server": "receivers:\n  - name: a\n",
		"not a list":     "receivers: 3\n",
	} {
		_, err := ParseConfig(strings.NewReader(doc))
		assert.Error(t, err, name)
	}

	cfg, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Receivers)
}

func TestLoadConfig(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	filename := filepath.Join(t.TempDir(), "receivers.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("receivers:\n  - server: host:1234\n"), 0644))

	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, "host:1234", cfg.Receivers[0].Server)
}

func TestDefaultConfig(t *testing.T) {
	rc, err := DefaultConfig("127.0.0.1:1234").Receiver(0)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", rc.Server)
}

func TestEngFloat(t *testing.T) {
	cases := []struct {
		value    string
		expected float64
	}{
		{"13.56M", 13.56e6},
		{"64e6", 64e6},
		{"250k", 250e3},
		{"0.5", 0.5},
		{"1", 1},
	}

	for _, c := range cases {
		var f EngFloat
		require.NoError(t, f.Set(c.value), c.value)
		assert.InDelta(t, c.expected, f.Float64(), 1e-6, c.value)
	}

	var f EngFloat
	assert.Error(t, f.Set("fast"))
	assert.Equal(t, "float", f.Type())
}

func TestOptionsDefaults(t *testing.T) {
	opts := NewOptions("omnidemod")
	require.NoError(t, opts.Parse(nil))

	assert.Equal(t, 256, opts.Decimation)
	assert.Equal(t, "m", opts.Representation)
	assert.Equal(t, "plain", opts.Format)
	assert.Equal(t, "cf32", opts.InputFormat)
	assert.Equal(t, 13.56e6, opts.CenterFreq.Float64())
	assert.Equal(t, 0.5, opts.Gain.Float64())
	assert.False(t, opts.Subdev.Given)
	assert.False(t, opts.Given("clock-speed"))
}

func TestOptionsParse(t *testing.T) {
	opts := NewOptions("omnidemod")
	require.NoError(t, opts.Parse([]string{
		"-w", "2", "-R", "A", "-d", "128", "-F", "32M", "-g", "0.25",
		"-f", "in.cf32", "-o", "out.txt", "-r", "Decode", "-H", "-p", "-s",
		"-c", "pod", "--format", "json", "--duration", "1m",
		"--server", "10.0.0.2:1234", "--center-freq", "13.5M",
	}))

	assert.Equal(t, 2, opts.Which)
	assert.True(t, opts.Subdev.Given)
	assert.Equal(t, sdr.SideA, opts.Subdev.Side)
	assert.Equal(t, 128, opts.Decimation)
	assert.True(t, opts.Given("clock-speed"))
	assert.Equal(t, 32e6, opts.ClockSpeed.Float64())
	assert.Equal(t, 0.25, opts.Gain.Float64())
	assert.Equal(t, "in.cf32", opts.InputFile)
	assert.Equal(t, "out.txt", opts.OutputFile)
	assert.Equal(t, "Decode", opts.Representation)
	assert.True(t, opts.Hex)
	assert.True(t, opts.ShowPower)
	assert.True(t, opts.ShowSamples)
	assert.Equal(t, "pod", opts.CaptureFile)
	assert.Equal(t, "json", opts.Format)
	assert.Equal(t, time.Minute, opts.TimeLimit)
	assert.Equal(t, "10.0.0.2:1234", opts.Server)
	assert.Equal(t, 13.5e6, opts.CenterFreq.Float64())
	assert.Empty(t, opts.Args())

	opts = NewOptions("omnidemod")
	assert.Error(t, opts.Parse([]string{"-R", "C"}))

	opts = NewOptions("omnidemod")
	require.NoError(t, opts.Parse([]string{"extra"}))
	assert.Equal(t, []string{"extra"}, opts.Args())
}

func TestEnvOverride(t *testing.T) {
	assert.Equal(t, "OMNIDEMOD_CENTER_FREQ", EnvName("center-freq"))

	t.Setenv("OMNIDEMOD_DECIMATION", "64")
	t.Setenv("OMNIDEMOD_SHOW_POWER", "true")
	t.Setenv("OMNIDEMOD_SERVER", "env:1234")
	t.Setenv("OMNIDEMOD_GAIN", "not a number")

	opts := NewOptions("omnidemod")
	require.NoError(t, opts.Parse([]string{"--server", "flag:1234"}))

	assert.Equal(t, 64, opts.Decimation)
	assert.True(t, opts.Given("decimation"))
	assert.True(t, opts.ShowPower)
	assert.Equal(t, "flag:1234", opts.Server)
	assert.Equal(t, 0.5, opts.Gain.Float64())
}

func writeCF32(t *testing.T, filename string, samples []complex64) {
	f, err := os.Create(filename)
	require.NoError(t, err)
	defer f.Close()

	w := bufio.NewWriter(f)
	require.NoError(t, binary.Write(w, binary.LittleEndian, samples))
	require.NoError(t, w.Flush())
}

func TestReplayFile(t *testing.T) {
	bits, err := gen.ParseBits("1010 0101 1100 0010")
	require.NoError(t, err)

	b := gen.Burst{
		Chips:      gen.Manchester(bits),
		ChipLength: 62,
		Amplitude:  1,
		Lead:       2000,
		Tail:       3000,
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "burst.cf32")
	output := filepath.Join(dir, "bursts.txt")
	writeCF32(t, input, b.Samples())

	opts := NewOptions("omnidemod")
	require.NoError(t, opts.Parse([]string{"-f", input, "-o", output, "-s"}))

	rcvr, err := NewReceiver(opts)
	require.NoError(t, err)
	require.NoError(t, rcvr.Run())
	rcvr.Close()

	report, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "sample:      2000 (8.0ms)\t1010 0101 1100 0010\n", string(report))
}

func TestNewReceiverInvalid(t *testing.T) {
	cases := map[string][]string{
		"representation": {"-r", "x", "-f", "missing.cf32"},
		"format":         {"--format", "xml", "-f", "missing.cf32"},
		"input format":   {"--input-format", "wav", "-f", "missing.cf32"},
		"missing file":   {"-f", filepath.Join(t.TempDir(), "missing.cf32")},
		"no receiver":    {"-w", "3"},
	}

	for name, args := range cases {
		opts := NewOptions("omnidemod")
		require.NoError(t, opts.Parse(args), name)

		_, err := NewReceiver(opts)
		assert.Error(t, err, name)
	}

	// Decimation is checked once the source is open.
	input := filepath.Join(t.TempDir(), "empty.cf32")
	require.NoError(t, os.WriteFile(input, nil, 0644))

	opts := NewOptions("omnidemod")
	require.NoError(t, opts.Parse([]string{"-f", input, "-d", "0"}))
	_, err := NewReceiver(opts)
	assert.Error(t, err)
}
