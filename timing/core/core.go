// Package core provides the cycle-accurate simulator facade: it wires
// together the register file, the instruction and data memories, the
// program loader, and the pipeline, and exposes the surface a driver
// program needs.
package core

import (
	"github.com/archsim/rv5pipe/config"
	"github.com/archsim/rv5pipe/emu"
	"github.com/archsim/rv5pipe/loader"
	"github.com/archsim/rv5pipe/timing/pipeline"
)

// Simulator is a complete, runnable instance of the pipeline model.
type Simulator struct {
	cfg *config.RunConfig

	regFile  *emu.RegFile
	instrMem *emu.InstructionMemory
	dataMem  *emu.DataMemory
	pipe     *pipeline.Pipeline
}

// New creates a Simulator with memories sized per cfg. A nil cfg uses
// config.DefaultRunConfig().
func New(cfg *config.RunConfig) *Simulator {
	if cfg == nil {
		cfg = config.DefaultRunConfig()
	}

	regFile := &emu.RegFile{}
	instrMem := emu.NewInstructionMemory(cfg.InstructionMemoryWords)
	dataMem := emu.NewDataMemory(cfg.DataMemoryWords)

	return &Simulator{
		cfg:      cfg,
		regFile:  regFile,
		instrMem: instrMem,
		dataMem:  dataMem,
		pipe:     pipeline.NewPipeline(regFile, instrMem, dataMem),
	}
}

// LoadProgram reads a hex-text program image into instruction memory. It
// does not reset register or pipeline state; call Reset first if the
// simulator has already been run.
func (s *Simulator) LoadProgram(path string) error {
	return loader.LoadHex(path, s.instrMem)
}

// Reset clears the register file, both memories, and all pipeline state,
// returning the simulator to its just-constructed condition.
func (s *Simulator) Reset() {
	s.regFile.Reset()
	s.instrMem.Reset()
	s.dataMem.Reset()
	s.pipe.Reset()
}

// RunCycle advances the simulator by exactly one cycle.
func (s *Simulator) RunCycle() {
	s.pipe.Tick()
}

// IsComplete reports whether the pipeline has drained and there is no
// further instruction to fetch.
func (s *Simulator) IsComplete() bool {
	return s.pipe.IsComplete()
}

// InstructionsCompleted returns the number of instructions retired so far.
func (s *Simulator) InstructionsCompleted() uint64 {
	return s.pipe.Stats().Instructions
}

// TotalCycles returns the number of cycles simulated so far.
func (s *Simulator) TotalCycles() uint64 {
	return s.pipe.Stats().Cycles
}

// MaxCycles returns the configured cycle budget (0 means unbounded).
func (s *Simulator) MaxCycles() uint64 {
	return s.cfg.MaxCycles
}

// Registers returns a snapshot of the full register file.
func (s *Simulator) Registers() [32]int32 {
	return s.regFile.Snapshot()
}

// Register returns the value of a single register. Index 0 always reads
// as 0; an out-of-range index also reads as 0.
func (s *Simulator) Register(i int) int32 {
	if i < 0 || i > 31 {
		return 0
	}
	return s.regFile.ReadReg(uint8(i))
}

// PC returns the current program counter.
func (s *Simulator) PC() uint32 {
	return s.pipe.PC()
}

// StallAsserted reports whether the most recently run cycle stalled on a
// data hazard.
func (s *Simulator) StallAsserted() bool {
	return s.pipe.StallAsserted()
}

// SquashAsserted reports whether the most recently run cycle squashed
// IF/ID due to a branch (taken or not) or jump.
func (s *Simulator) SquashAsserted() bool {
	return s.pipe.SquashAsserted()
}

// IFID returns the current IF/ID latch.
func (s *Simulator) IFID() pipeline.IFIDLatch {
	return s.pipe.IFID()
}

// IDEX returns the current ID/EX latch.
func (s *Simulator) IDEX() pipeline.IDEXLatch {
	return s.pipe.IDEX()
}

// EXMEM returns the current EX/MEM latch.
func (s *Simulator) EXMEM() pipeline.EXMEMLatch {
	return s.pipe.EXMEM()
}

// MEMWB returns the current MEM/WB latch.
func (s *Simulator) MEMWB() pipeline.MEMWBLatch {
	return s.pipe.MEMWB()
}

// Utilization returns the accumulated per-stage utilization counters.
func (s *Simulator) Utilization() pipeline.Utilization {
	return s.pipe.Stats().Utilization
}

// Stats returns the full accumulated pipeline statistics.
func (s *Simulator) Stats() pipeline.Statistics {
	return s.pipe.Stats()
}

// InstructionWord returns the raw word at the given instruction-memory word
// index, for introspection/display.
func (s *Simulator) InstructionWord(index int) (uint32, bool) {
	return s.instrMem.ReadWord(index)
}

// DataWord returns the value at the given data-memory word index, for
// introspection/display.
func (s *Simulator) DataWord(index int) (int32, bool) {
	return s.dataMem.ReadWord(index)
}
