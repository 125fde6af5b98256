// serialrunner executes a test ROM headless and watches its serial output.
// Blargg-style ROMs report "Passed" or "Failed N tests" over the link port;
// the exit code reflects the verdict.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gophergb/gophergb/internal/emu"
)

func main() {
	frames := flag.Int("frames", 1800, "max frames to run")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s); 0 disables")
	quiet := flag.Bool("quiet", false, "do not stream serial output to stdout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] rom.gb\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	romPath := flag.Arg(0)
	if romPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	m := emu.New(emu.Config{})
	if err := m.LoadROMFromFile(romPath); err != nil {
		log.Fatalf("load ROM: %v", err)
	}
	if !*quiet {
		m.SetSerialWriter(os.Stdout)
	}

	start := time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = start.Add(*timeout)
	}

	for i := 0; i < *frames; i++ {
		if err := m.StepFrame(); err != nil {
			log.Fatalf("frame %d: %v", i, err)
		}
		switch m.SerialStatus() {
		case emu.SerialPassed:
			fmt.Printf("\nPASS after %d frames (%s)\n", i+1, time.Since(start).Truncate(time.Millisecond))
			return
		case emu.SerialFailed:
			fmt.Printf("\nFAIL after %d frames (%s)\n", i+1, time.Since(start).Truncate(time.Millisecond))
			os.Exit(1)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\ntimeout after %s\n", time.Since(start).Truncate(time.Millisecond))
			os.Exit(2)
		}
	}
	fmt.Printf("\nno verdict after %d frames; serial output:\n%s\n", *frames, m.SerialOutput())
	os.Exit(2)
}
