// Package main provides the entry point for rv5pipe, an interactive
// cycle-accurate simulator for a 5-stage in-order RISC-V pipeline.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/archsim/rv5pipe/config"
	"github.com/archsim/rv5pipe/timing/core"
)

var (
	programPath = flag.String("program", "", "Path to a hex-text program image (required)")
	mode        = flag.String("mode", "interactive", "Run mode: \"interactive\" or \"batch\"")
	steps       = flag.Uint64("steps", 0, "In batch mode, number of cycles to run (0 runs to completion or to the configured max_cycles)")
	configPath  = flag.String("config", "", "Path to a JSON run-configuration file")
)

func main() {
	flag.Parse()

	if *programPath == "" && flag.NArg() >= 1 {
		*programPath = flag.Arg(0)
	}
	if *programPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: rv5pipe -program <image.hex> [options]\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.DefaultRunConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	sim := core.New(cfg)
	if err := sim.LoadProgram(*programPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	switch *mode {
	case "batch":
		runBatch(sim, *steps)
	default:
		runInteractive(sim)
	}
}

// runBatch runs the simulator for the requested number of cycles (if 0, to
// completion or to the configured MaxCycles, whichever comes first; a
// MaxCycles of 0 means no cap) and prints a final report with no further
// prompting.
func runBatch(sim *core.Simulator, cycles uint64) {
	budget := cycles
	if budget == 0 {
		budget = sim.MaxCycles()
	}

	ran := uint64(0)
	for !sim.IsComplete() {
		if budget > 0 && ran >= budget {
			break
		}
		sim.RunCycle()
		ran++
	}

	fmt.Print(formatRegisters(sim))
	fmt.Println()
	fmt.Print(formatStatistics(sim))
}

// runInteractive implements the classic step/visualize/inspect/stats/quit
// console loop: pick a stepping granularity, run N steps at a time, and
// inspect state between runs.
func runInteractive(sim *core.Simulator) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Step mode: 1 = instruction-step, 2 = cycle-step")
	fmt.Print("> ")
	cycleStep := readLine(reader) == "2"

	for {
		fmt.Print("\nnumber of steps to run (0 to skip): ")
		n := readUint(reader)

		for i := uint64(0); i < n && !sim.IsComplete(); i++ {
			if cycleStep {
				sim.RunCycle()
				continue
			}
			before := sim.InstructionsCompleted()
			for !sim.IsComplete() && sim.InstructionsCompleted() == before {
				sim.RunCycle()
			}
		}

		fmt.Print(formatRegisters(sim))
		fmt.Print(formatPipelineDiagram(sim))

		if sim.IsComplete() {
			fmt.Println("\nProgram complete.")
			fmt.Print(formatStatistics(sim))
			return
		}

		fmt.Print("\n[c]ontinue  [v]isualize  [m]emory  [s]tatistics  [q]uit: ")
		switch readLine(reader) {
		case "v":
			fmt.Print(formatPipelineDiagram(sim))
		case "m":
			promptMemory(reader, sim)
		case "s":
			fmt.Print(formatStatistics(sim))
		case "q":
			return
		}
	}
}

func promptMemory(reader *bufio.Reader, sim *core.Simulator) {
	fmt.Print("memory type ([i]nstruction / [d]ata): ")
	isData := readLine(reader) == "d"

	fmt.Print("start word index: ")
	start := int(readUint(reader))

	fmt.Print("word count: ")
	count := int(readUint(reader))

	fmt.Print(formatMemory(sim, isData, start, count))
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func readUint(reader *bufio.Reader) uint64 {
	v, err := strconv.ParseUint(readLine(reader), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
