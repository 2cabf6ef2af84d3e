package main

import (
	"fmt"
	"strings"

	"github.com/archsim/rv5pipe/timing/core"
)

// abiNames is the RISC-V integer ABI register naming convention.
var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0/fp", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func abiName(i int) string {
	if i < 0 || i > 31 {
		return "?"
	}
	return abiNames[i]
}

func formatRegisters(sim *core.Simulator) string {
	var b strings.Builder
	regs := sim.Registers()
	for i := 0; i < 32; i += 4 {
		for j := i; j < i+4; j++ {
			fmt.Fprintf(&b, "x%-2d(%-5s)=%-12d", j, abiName(j), regs[j])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatPipelineDiagram(sim *core.Simulator) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PC=0x%08X  stall=%-5v squash=%-5v\n", sim.PC(), sim.StallAsserted(), sim.SquashAsserted())

	ifid := sim.IFID()
	idex := sim.IDEX()
	exmem := sim.EXMEM()
	memwb := sim.MEMWB()

	fmt.Fprintf(&b, "  IF/ID : %s\n", latchSummary(ifid.Valid, ifid.IR))
	fmt.Fprintf(&b, "  ID/EX : %s\n", latchSummary(idex.Valid, idex.IR))
	fmt.Fprintf(&b, "  EX/MEM: %s\n", latchSummary(exmem.Valid, exmem.IR))
	fmt.Fprintf(&b, "  MEM/WB: %s\n", latchSummary(memwb.Valid, memwb.IR))
	return b.String()
}

func latchSummary(valid bool, ir uint32) string {
	if !valid {
		return "(bubble)"
	}
	return fmt.Sprintf("0x%08X", ir)
}

func formatMemory(sim *core.Simulator, isData bool, start, count int) string {
	var b strings.Builder
	for i := start; i < start+count; i++ {
		if isData {
			v, ok := sim.DataWord(i)
			if !ok {
				fmt.Fprintf(&b, "data[%4d]: out of range\n", i)
				continue
			}
			fmt.Fprintf(&b, "data[%4d]: %d\n", i, v)
		} else {
			v, ok := sim.InstructionWord(i)
			if !ok {
				fmt.Fprintf(&b, "instr[%4d]: out of range\n", i)
				continue
			}
			fmt.Fprintf(&b, "instr[%4d]: 0x%08X\n", i, v)
		}
	}
	return b.String()
}

func formatStatistics(sim *core.Simulator) string {
	stats := sim.Stats()
	var b strings.Builder

	fmt.Fprintf(&b, "Cycles:       %d\n", stats.Cycles)
	fmt.Fprintf(&b, "Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(&b, "CPI:          %.3f\n", stats.CPI())
	fmt.Fprintf(&b, "Stalls:       %d\n", stats.Stalls)
	fmt.Fprintf(&b, "Squashes:     %d\n", stats.Squashes)

	total := stats.Cycles
	if total == 0 {
		b.WriteString("Stage utilization: n/a (no cycles simulated)\n")
		return b.String()
	}

	util := stats.Utilization
	fmt.Fprintf(&b, "Stage utilization:\n")
	fmt.Fprintf(&b, "  Fetch:     %5.1f%%\n", 100.0*float64(util.Fetch)/float64(total))
	fmt.Fprintf(&b, "  Decode:    %5.1f%%\n", 100.0*float64(util.Decode)/float64(total))
	fmt.Fprintf(&b, "  Execute:   %5.1f%%\n", 100.0*float64(util.Execute)/float64(total))
	fmt.Fprintf(&b, "  Memory:    %5.1f%%\n", 100.0*float64(util.Memory)/float64(total))
	fmt.Fprintf(&b, "  Writeback: %5.1f%%\n", 100.0*float64(util.Writeback)/float64(total))
	return b.String()
}
