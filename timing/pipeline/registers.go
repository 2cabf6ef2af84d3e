// Package pipeline implements the 5-stage in-order RISC-V pipeline: the
// four inter-stage latches, the stage functions, the hazard unit, and the
// cycle driver that ties them together.
package pipeline

// IFIDLatch holds the state handed from Fetch to Decode.
type IFIDLatch struct {
	// Valid indicates this latch carries a real fetched instruction rather
	// than a bubble.
	Valid bool

	// IR is the raw fetched instruction word.
	IR uint32

	// NPC is the byte address one word past the fetched instruction
	// (the fetched PC + 4).
	NPC uint32
}

// Clear resets the latch to an invalid bubble.
func (l *IFIDLatch) Clear() {
	*l = IFIDLatch{}
}

// IDEXLatch holds the state handed from Decode to Execute.
type IDEXLatch struct {
	Valid bool

	IR  uint32
	NPC uint32

	// A is the value of source register rs1 at decode time.
	A int32
	// B is the value of source register rs2 at decode time.
	B int32
	// Imm is the sign-extended immediate for this instruction's encoding,
	// or 0 if it has none.
	Imm int32
}

// Clear resets the latch to an invalid bubble.
func (l *IDEXLatch) Clear() {
	*l = IDEXLatch{}
}

// EXMEMLatch holds the state handed from Execute to Memory.
type EXMEMLatch struct {
	Valid bool

	IR uint32
	// B carries the store data forward for the Memory stage.
	B int32
	// ALUOutput is the functional-unit result: the ALU result, the
	// computed memory address for loads/stores, or the jump link value
	// (0 for branches).
	ALUOutput int32
	// Cond is the branch-taken flag; only meaningful for branch
	// instructions.
	Cond bool
}

// Clear resets the latch to an invalid bubble.
func (l *EXMEMLatch) Clear() {
	*l = EXMEMLatch{}
}

// MEMWBLatch holds the state handed from Memory to Writeback.
type MEMWBLatch struct {
	Valid bool

	IR        uint32
	ALUOutput int32
	// LMD is the load-memory-data register: the value read by a load,
	// awaiting writeback.
	LMD int32
}

// Clear resets the latch to an invalid bubble.
func (l *MEMWBLatch) Clear() {
	*l = MEMWBLatch{}
}
