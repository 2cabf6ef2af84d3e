package pipeline

import (
	"github.com/archsim/rv5pipe/emu"
	"github.com/archsim/rv5pipe/insts"
)

// Utilization counts, per stage, the number of cycles in which that stage
// did real work (as opposed to propagating a bubble).
type Utilization struct {
	Fetch      uint64
	Decode     uint64
	Execute    uint64
	Memory     uint64
	Writeback  uint64
}

// FetchStage implements instruction fetch.
type FetchStage struct {
	instrMem *emu.InstructionMemory
}

// NewFetchStage creates a new fetch stage reading from instrMem.
func NewFetchStage(instrMem *emu.InstructionMemory) *FetchStage {
	return &FetchStage{instrMem: instrMem}
}

// Fetch computes the next IF/ID latch. If squash is asserted, the result is
// a bubble regardless of what is at pc. Otherwise a nonzero in-range word at
// pc/4 is latched; a zero word or an out-of-range index also yields a
// bubble (this is how end-of-program is detected, with no separate halt
// instruction).
func (s *FetchStage) Fetch(pc uint32, squash bool, util *Utilization) IFIDLatch {
	if squash {
		return IFIDLatch{}
	}

	word, ok := s.instrMem.ReadWord(int(pc / 4))
	if !ok || word == 0 {
		return IFIDLatch{}
	}

	util.Fetch++
	return IFIDLatch{Valid: true, IR: word, NPC: pc + 4}
}

// DecodeStage implements instruction decode, register read, hazard
// detection, and immediate formation.
type DecodeStage struct {
	regs   *emu.RegFile
	hazard *HazardUnit
}

// NewDecodeStage creates a new decode stage reading regs for operand values.
func NewDecodeStage(regs *emu.RegFile) *DecodeStage {
	return &DecodeStage{regs: regs, hazard: NewHazardUnit()}
}

// DecodeResult is the outcome of one Decode call.
type DecodeResult struct {
	Next  IDEXLatch
	Stall bool
	// HeldIFID is the value the IF/ID latch should retain for next cycle
	// when Stall is true: a stall holds IF/ID at its current contents.
	HeldIFID IFIDLatch
}

// Decode produces the next ID/EX latch from the current IF/ID latch. squash
// is the control-flow squash asserted by this cycle's EX step; when true it
// takes priority over hazard stalling and is consumed here (the caller must
// not re-assert it for the following cycle).
func (s *DecodeStage) Decode(ifid *IFIDLatch, idex *IDEXLatch, exmem *EXMEMLatch, squash bool, util *Utilization) DecodeResult {
	if squash {
		return DecodeResult{Next: IDEXLatch{}}
	}

	if !ifid.Valid {
		return DecodeResult{Next: IDEXLatch{}}
	}

	if s.hazard.DetectHazard(ifid, idex, exmem) {
		return DecodeResult{Next: IDEXLatch{}, Stall: true, HeldIFID: *ifid}
	}

	op := insts.Op(insts.Opcode(ifid.IR))
	rs1 := insts.Rs1(ifid.IR)
	rs2 := insts.Rs2(ifid.IR)

	next := IDEXLatch{
		Valid: true,
		IR:    ifid.IR,
		NPC:   ifid.NPC,
		A:     s.regs.ReadReg(rs1),
		B:     s.regs.ReadReg(rs2),
	}

	switch op {
	case insts.OpALUImm, insts.OpLoad, insts.OpJALR:
		next.Imm = insts.ImmI(ifid.IR)
	case insts.OpStore:
		next.Imm = insts.ImmS(ifid.IR)
	case insts.OpBranch:
		next.Imm = insts.ImmB(ifid.IR)
	case insts.OpLUI:
		next.Imm = insts.ImmU(ifid.IR)
	case insts.OpJAL:
		next.Imm = insts.ImmJ(ifid.IR)
	}

	util.Decode++
	return DecodeResult{Next: next}
}

// ExecuteStage implements ALU computation, branch/jump resolution, and PC
// redirection.
type ExecuteStage struct{}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// ExecuteResult is the outcome of one Execute call.
type ExecuteResult struct {
	Next IDEXEXMEM
	// BranchTaken gates the sequential PC advance for this cycle and the
	// fetch that happens later this same cycle.
	BranchTaken bool
	// SquashIFID invalidates the instruction currently in IF/ID; Decode
	// consumes it in this same cycle, before the latch commit.
	SquashIFID bool
	// NewPC is the redirected PC; only meaningful when BranchTaken is true.
	NewPC uint32
}

// IDEXEXMEM is an alias kept distinct from EXMEMLatch only for documentation
// clarity at the call site; it is the next EX/MEM latch value.
type IDEXEXMEM = EXMEMLatch

// Execute dispatches on idex's opcode/funct fields. For an invalid latch it
// emits a bubble. Unknown opcode/funct combinations pass through with
// ALUOutput left at its zero default; there is no illegal-instruction trap.
func (s *ExecuteStage) Execute(idex *IDEXLatch, util *Utilization) ExecuteResult {
	if !idex.Valid {
		return ExecuteResult{}
	}

	op := insts.Op(insts.Opcode(idex.IR))
	funct3 := insts.Funct3(idex.IR)
	funct7 := insts.Funct7(idex.IR)

	next := EXMEMLatch{Valid: true, IR: idex.IR, B: idex.B}
	util.Execute++

	result := ExecuteResult{}

	switch op {
	case insts.OpALUReg:
		next.ALUOutput = executeALUReg(funct3, funct7, idex.A, idex.B)

	case insts.OpALUImm:
		next.ALUOutput = executeALUImm(idex.IR, funct3, idex.A, idex.Imm)

	case insts.OpLoad, insts.OpStore:
		next.ALUOutput = idex.A + idex.Imm

	case insts.OpBranch:
		if funct3 == 0x0 {
			next.Cond = idex.A == idex.B
		}
		target := (idex.NPC - 4) + uint32(idex.Imm)
		if next.Cond {
			result.NewPC = target
		} else {
			result.NewPC = idex.NPC
		}
		result.BranchTaken = true
		result.SquashIFID = true

	case insts.OpLUI:
		next.ALUOutput = idex.Imm

	case insts.OpJAL:
		next.ALUOutput = int32(idex.NPC)
		result.NewPC = (idex.NPC - 4) + uint32(idex.Imm)
		result.BranchTaken = true
		result.SquashIFID = true

	case insts.OpJALR:
		next.ALUOutput = int32(idex.NPC)
		result.NewPC = uint32(idex.A+idex.Imm) &^ 1
		result.BranchTaken = true
		result.SquashIFID = true
	}

	result.Next = next
	return result
}

// executeALUReg implements the register-register ALU operations; the
// low 5 bits of B select the shift amount.
func executeALUReg(funct3, funct7 uint8, a, b int32) int32 {
	switch {
	case funct3 == 0x0 && funct7 == 0x00:
		return a + b
	case funct3 == 0x0 && funct7 == 0x20:
		return a - b
	case funct3 == 0x0 && funct7 == 0x01:
		return int32(int64(a) * int64(b))
	case funct3 == 0x4 && funct7 == 0x01:
		if b == 0 {
			return -1
		}
		return a / b
	case funct3 == 0x6 && funct7 == 0x01:
		if b == 0 {
			return a
		}
		return a % b
	case funct3 == 0x7 && funct7 == 0x00:
		return a & b
	case funct3 == 0x6 && funct7 == 0x00:
		return a | b
	case funct3 == 0x1 && funct7 == 0x00:
		return a << (uint32(b) & 0x1F)
	case funct3 == 0x5 && funct7 == 0x00:
		return int32(uint32(a) >> (uint32(b) & 0x1F))
	case funct3 == 0x2 && funct7 == 0x00:
		return boolToInt32(a < b)
	case funct3 == 0x3 && funct7 == 0x00:
		return boolToInt32(uint32(a) < uint32(b))
	default:
		return 0
	}
}

// executeALUImm implements the register-immediate ALU operations; the
// low 5 bits of Imm select the shift amount. For funct3 == 0,
// bit 30 of the raw instruction word selects sub-immediate over
// add-immediate.
func executeALUImm(ir uint32, funct3 uint8, a, imm int32) int32 {
	switch funct3 {
	case 0x0:
		if (ir>>30)&0x1 == 1 {
			return a - imm
		}
		return a + imm
	case 0x7:
		return a & imm
	case 0x6:
		return a | imm
	case 0x1:
		return a << (uint32(imm) & 0x1F)
	case 0x5:
		return int32(uint32(a) >> (uint32(imm) & 0x1F))
	case 0x2:
		return boolToInt32(a < imm)
	case 0x3:
		return boolToInt32(uint32(a) < uint32(imm))
	default:
		return 0
	}
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// MemoryStage implements load/store access.
type MemoryStage struct {
	dataMem *emu.DataMemory
}

// NewMemoryStage creates a new memory stage reading/writing dataMem.
func NewMemoryStage(dataMem *emu.DataMemory) *MemoryStage {
	return &MemoryStage{dataMem: dataMem}
}

// Access produces the next MEM/WB latch from exmem. For an invalid latch it
// emits a bubble. Out-of-range addresses are silently ignored for both
// loads and stores.
func (s *MemoryStage) Access(exmem *EXMEMLatch, util *Utilization) MEMWBLatch {
	if !exmem.Valid {
		return MEMWBLatch{}
	}

	next := MEMWBLatch{Valid: true, IR: exmem.IR, ALUOutput: exmem.ALUOutput}
	util.Memory++

	op := insts.Op(insts.Opcode(exmem.IR))
	address := int(exmem.ALUOutput / 4)

	switch op {
	case insts.OpLoad:
		if v, ok := s.dataMem.ReadWord(address); ok {
			next.LMD = v
		}
	case insts.OpStore:
		s.dataMem.WriteWord(address, exmem.B)
	}

	return next
}

// WritebackStage implements register-file commit.
type WritebackStage struct {
	regs *emu.RegFile
}

// NewWritebackStage creates a new writeback stage writing to regs.
func NewWritebackStage(regs *emu.RegFile) *WritebackStage {
	return &WritebackStage{regs: regs}
}

// Writeback commits memwb's result to the register file and reports
// whether an instruction actually retired (false for a bubble). The
// completed-instruction counter is incremented by the caller only when
// this returns true.
func (s *WritebackStage) Writeback(memwb *MEMWBLatch, util *Utilization) bool {
	if !memwb.Valid {
		return false
	}

	util.Writeback++

	op := insts.Op(insts.Opcode(memwb.IR))
	rd := insts.Rd(memwb.IR)

	if rd != 0 {
		switch op {
		case insts.OpLoad:
			s.regs.WriteReg(rd, memwb.LMD)
		case insts.OpALUReg, insts.OpALUImm, insts.OpLUI, insts.OpJAL, insts.OpJALR:
			s.regs.WriteReg(rd, memwb.ALUOutput)

			funct3 := insts.Funct3(memwb.IR)
			funct7 := insts.Funct7(memwb.IR)
			if op == insts.OpALUReg && funct3 == 0x0 && funct7 == 0x01 && rd < 31 {
				rs1 := insts.Rs1(memwb.IR)
				rs2 := insts.Rs2(memwb.IR)
				product := int64(s.regs.ReadReg(rs1)) * int64(s.regs.ReadReg(rs2))
				s.regs.WriteReg(rd+1, int32(product>>32))
			}
		}
	}

	return true
}
