package pipeline

import (
	"github.com/archsim/rv5pipe/emu"
)

// Statistics holds pipeline performance counters accumulated across a run.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of cycles in which a data hazard held IF/ID in
	// place.
	Stalls uint64
	// Squashes is the number of cycles in which a branch (taken or not) or
	// a jump discarded the instruction sitting in IF/ID.
	Squashes uint64
	// Utilization carries the per-stage busy-cycle counters.
	Utilization Utilization
}

// CPI returns the cycles-per-instruction ratio for the run so far. It
// returns 0 if no instructions have completed yet.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Pipeline implements the classic 5-stage in-order pipeline: single issue,
// no operand forwarding, no branch prediction, no memory hierarchy. Hazards
// are resolved purely by stalling; control flow is resolved in EX with a
// one-cycle fetch squash.
type Pipeline struct {
	ifid  IFIDLatch
	idex  IDEXLatch
	exmem EXMEMLatch
	memwb MEMWBLatch

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	regFile  *emu.RegFile
	instrMem *emu.InstructionMemory
	dataMem  *emu.DataMemory

	pc uint32

	// stallAsserted and squashAsserted record what this cycle's decision
	// was, for introspection by the driver layer.
	stallAsserted  bool
	squashAsserted bool

	// wasStalled records whether the *previous* cycle stalled. Fetch is
	// skipped on the second and subsequent cycles of a stall.
	wasStalled bool

	stats Statistics
}

// NewPipeline creates a 5-stage pipeline bound to the given register file
// and memories.
func NewPipeline(regFile *emu.RegFile, instrMem *emu.InstructionMemory, dataMem *emu.DataMemory) *Pipeline {
	return &Pipeline{
		fetchStage:     NewFetchStage(instrMem),
		decodeStage:    NewDecodeStage(regFile),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(dataMem),
		writebackStage: NewWritebackStage(regFile),
		regFile:        regFile,
		instrMem:       instrMem,
		dataMem:        dataMem,
	}
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the program counter, for use before the first cycle or by a
// caller that wants to start execution somewhere other than address 0.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// Reset clears every latch and the program counter, leaving the register
// file and memories untouched (the caller reloads those separately).
func (p *Pipeline) Reset() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.pc = 0
	p.stallAsserted = false
	p.squashAsserted = false
	p.wasStalled = false
	p.stats = Statistics{}
}

// IFID returns a copy of the current IF/ID latch.
func (p *Pipeline) IFID() IFIDLatch { return p.ifid }

// IDEX returns a copy of the current ID/EX latch.
func (p *Pipeline) IDEX() IDEXLatch { return p.idex }

// EXMEM returns a copy of the current EX/MEM latch.
func (p *Pipeline) EXMEM() EXMEMLatch { return p.exmem }

// MEMWB returns a copy of the current MEM/WB latch.
func (p *Pipeline) MEMWB() MEMWBLatch { return p.memwb }

// StallAsserted reports whether the most recently run cycle held IF/ID and
// the program counter in place due to a detected hazard.
func (p *Pipeline) StallAsserted() bool { return p.stallAsserted }

// SquashAsserted reports whether the most recently run cycle discarded the
// instruction in IF/ID due to a branch (taken or not) or jump in EX.
func (p *Pipeline) SquashAsserted() bool { return p.squashAsserted }

// Stats returns the accumulated statistics.
func (p *Pipeline) Stats() Statistics { return p.stats }

// IsComplete reports whether the pipeline has drained: every latch is
// invalid and there is nothing left to fetch at the current PC (the word at
// PC/4 is either out of range or the zero end-of-program sentinel).
func (p *Pipeline) IsComplete() bool {
	if p.ifid.Valid || p.idex.Valid || p.exmem.Valid || p.memwb.Valid {
		return false
	}
	word, ok := p.instrMem.ReadWord(int(p.pc / 4))
	return !ok || word == 0
}

// Tick runs one cycle of the pipeline.
//
// Stages are evaluated in reverse pipeline order (WB, MEM, EX, ID, IF) so
// that each stage reads the latch values left by the *previous* cycle
// before any of them are overwritten. All four latches, plus the program
// counter, are committed atomically once every stage has been evaluated.
func (p *Pipeline) Tick() {
	p.stats.Cycles++

	wbRetired := p.writebackStage.Writeback(&p.memwb, &p.stats.Utilization)
	if wbRetired {
		p.stats.Instructions++
	}

	nextMEMWB := p.memoryStage.Access(&p.exmem, &p.stats.Utilization)

	execResult := p.executeStage.Execute(&p.idex, &p.stats.Utilization)
	nextEXMEM := execResult.Next

	decResult := p.decodeStage.Decode(&p.ifid, &p.idex, &p.exmem, execResult.SquashIFID, &p.stats.Utilization)
	nextIDEX := decResult.Next

	var nextIFID IFIDLatch
	if decResult.Stall {
		nextIFID = decResult.HeldIFID
		if !p.wasStalled {
			// First stall cycle still fetches the word at the held PC; the
			// result is discarded (IF/ID is held) but counts toward fetch
			// utilization. The second and later consecutive stall cycles
			// skip the fetch.
			p.fetchStage.Fetch(p.pc, execResult.BranchTaken, &p.stats.Utilization)
		}
	} else {
		nextIFID = p.fetchStage.Fetch(p.pc, execResult.BranchTaken, &p.stats.Utilization)
	}

	p.stallAsserted = decResult.Stall
	p.squashAsserted = execResult.SquashIFID

	if decResult.Stall {
		p.stats.Stalls++
	}
	if execResult.SquashIFID {
		p.stats.Squashes++
	}

	p.memwb = nextMEMWB
	p.exmem = nextEXMEM
	p.idex = nextIDEX
	p.ifid = nextIFID
	p.wasStalled = decResult.Stall

	if execResult.BranchTaken {
		p.pc = execResult.NewPC
	} else if !decResult.Stall {
		p.pc += 4
	}
}
