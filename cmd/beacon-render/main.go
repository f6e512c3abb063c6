// SPDX-License-Identifier: EPL-2.0

// beacon-render plays a YAML walk scenario through the spatial mixer and
// writes the result to a stereo WAV file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ik5/audbeacon/internal/log"
)

var (
	scenarioPath = flag.String("scenario", "scenario.yaml", "scenario file")
	outPath      = flag.String("out", "beacons.wav", "output WAV file")
	debug        = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	logger := log.New(level, "text", os.Stderr)

	sc, err := LoadScenario(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "beacon-render: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "beacon-render: %v\n", err)
		os.Exit(1)
	}

	if err := Render(sc, out, logger); err != nil {
		_ = out.Close()
		fmt.Fprintf(os.Stderr, "beacon-render: %v\n", err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "beacon-render: %v\n", err)
		os.Exit(1)
	}
}
