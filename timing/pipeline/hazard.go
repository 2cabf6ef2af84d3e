package pipeline

import "github.com/archsim/rv5pipe/insts"

// producesRegister reports whether an instruction with this opcode writes a
// general-purpose register at all (i.e. belongs to the set a RAW hazard can
// be detected against).
func producesRegister(op insts.Op) bool {
	switch op {
	case insts.OpALUReg, insts.OpALUImm, insts.OpLoad, insts.OpLUI, insts.OpJAL, insts.OpJALR:
		return true
	default:
		return false
	}
}

// readsRs1 reports whether the instruction in IF/ID reads rs1. LUI and JAL
// carry no source registers at all.
func readsRs1(op insts.Op) bool {
	return op != insts.OpLUI && op != insts.OpJAL
}

// readsRs2 reports whether the instruction in IF/ID reads rs2: only
// register-register ALU ops, stores, and branches do.
func readsRs2(op insts.Op) bool {
	switch op {
	case insts.OpALUReg, insts.OpStore, insts.OpBranch:
		return true
	default:
		return false
	}
}

// stallsOnHazard reports whether this opcode is subject to the stall policy
// at all. Branch, JAL, and JALR proceed regardless of a detected hazard:
// there is no forwarding path, and these three resolve in EX against
// whatever operand values were latched.
func stallsOnHazard(op insts.Op) bool {
	switch op {
	case insts.OpBranch, insts.OpJAL, insts.OpJALR:
		return false
	default:
		return true
	}
}

// HazardUnit detects RAW data hazards between the instruction sitting in
// IF/ID and the instructions in flight in ID/EX and EX/MEM. There is no
// operand forwarding in this model: the only remedy for a hazard is a
// stall.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectHazard scans idex and exmem for a producer whose destination
// register matches a register the instruction in ifid reads. It returns
// false without scanning if ifid is invalid, or if ifid's opcode is exempt
// from stalling (branch, JAL, JALR).
func (h *HazardUnit) DetectHazard(ifid *IFIDLatch, idex *IDEXLatch, exmem *EXMEMLatch) bool {
	if !ifid.Valid {
		return false
	}

	op := insts.Op(insts.Opcode(ifid.IR))
	if !stallsOnHazard(op) {
		return false
	}

	rs1 := insts.Rs1(ifid.IR)
	rs2 := insts.Rs2(ifid.IR)
	usesRs1 := readsRs1(op)
	usesRs2 := readsRs2(op)

	if h.producerConflicts(idex.Valid, idex.IR, rs1, rs2, usesRs1, usesRs2) {
		return true
	}
	if h.producerConflicts(exmem.Valid, exmem.IR, rs1, rs2, usesRs1, usesRs2) {
		return true
	}

	return false
}

// producerConflicts reports whether a valid, register-writing producer
// instruction's destination register matches one of the given consumer
// source registers.
func (h *HazardUnit) producerConflicts(valid bool, producerIR uint32, rs1, rs2 uint8, usesRs1, usesRs2 bool) bool {
	if !valid {
		return false
	}

	producerOp := insts.Op(insts.Opcode(producerIR))
	if !producesRegister(producerOp) {
		return false
	}

	rd := insts.Rd(producerIR)
	if rd == 0 {
		return false
	}

	if usesRs1 && rd == rs1 {
		return true
	}
	if usesRs2 && rd == rs2 {
		return true
	}

	return false
}
