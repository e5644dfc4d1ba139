/*
OMNIDEMOD is an rtl-sdr receiver for Manchester coded on-off keyed bursts
near 13.56MHz, such as those exchanged between an insulin pod and its
controller.

Samples are read from an rtl_tcp server or replayed from a file, sliced into
full and half symbols at 4000 symbols per second and reported one burst per
line.

Command-line Flags:

	-w, --which=0

Selects which receiver from the --config file to use. Without a config file
the only receiver is --server.

	-R, --rx-subdev-spec=A|B

Selects the receiver front end. Side A is the dongle's tuner, side B samples
directly. Without this flag the first front end able to receive at HF
baseband is used, which for rtl_tcp is side B.

	-d, --decimation=256

Sets the decimation. The sample rate is the master clock divided by this.

	-F, --clock-speed=64M

Sets the master clock. Files are assumed to be recorded at 64MHz, devices
otherwise keep their own clock.

	-g, --gain=0.5

Sets the gain as a fraction of the selected front end's gain range.

	-f, --input-file-name=""

Reads samples from a file instead of a receiver. See --input-format.

	--input-format=cf32

Either cf32, interleaved little-endian float32 I/Q as written by
--capture-file, or cu8, unsigned bytes as written by rtl_sdr.

	-o, --output-file-name=""

Appends reports to a file as well as the screen.

	-r, --representation=m

Sets how each burst is reported. Only the first letter is significant.

	c  compressed: _ and - for low and high, v and ^ for half symbols
	n  NRZ: 0 and 1 for low and high, v and ^ for half symbols
	s  StrictManchester: bits after the preamble, stopping at violations
	m  Manchester: bits grouped in fours, marking violations
	d  Decode: preamble and message fields in hex

	-H, --hex

Prefixes each report with the data in hex.

	-p, --show-power

Prefixes each report with the burst's average magnitude.

	-s, --show-samples

Prefixes each report with the burst's first sample and the time since the
previous burst.

	-c, --capture-file=""

Appends the samples of each reported burst to
filename-clock_speed-decimation.omnidump, separated by silence and a short run
of ones. The result can be replayed with --input-file-name.

	--format=plain

Sets the report format: plain, json or csv.

	--duration=0

Sets time to receive for, 0 for infinite.

	--config=""

Reads a yaml list of rtl_tcp servers:

	receivers:
	  - name: kitchen
	    server: 192.168.1.20:1234
	  - name: garage
	    server: 192.168.1.21:1234

	--log-level=info

Sets the logging level.

	--server=127.0.0.1:1234

Sets rtl_tcp server address or hostname and port to connect to.

	--center-freq=13.56M

Sets the center frequency.

Every flag may also be set by an environment variable named after it, for
example OMNIDEMOD_CENTER_FREQ. Flags on the command line take precedence.
*/
package main
