package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/rv5pipe/emu"
	"github.com/archsim/rv5pipe/timing/pipeline"
)

var _ = Describe("FetchStage", func() {
	It("fetches a nonzero word and reports NPC as pc+4", func() {
		mem := emu.NewInstructionMemory(4)
		mem.WriteWord(0, 0xABCD1234)
		f := pipeline.NewFetchStage(mem)
		util := &pipeline.Utilization{}

		latch := f.Fetch(0, false, util)

		Expect(latch.Valid).To(BeTrue())
		Expect(latch.IR).To(Equal(uint32(0xABCD1234)))
		Expect(latch.NPC).To(Equal(uint32(4)))
		Expect(util.Fetch).To(Equal(uint64(1)))
	})

	It("yields a bubble when squash is asserted", func() {
		mem := emu.NewInstructionMemory(4)
		mem.WriteWord(0, 0xABCD1234)
		f := pipeline.NewFetchStage(mem)
		util := &pipeline.Utilization{}

		latch := f.Fetch(0, true, util)

		Expect(latch.Valid).To(BeFalse())
		Expect(util.Fetch).To(Equal(uint64(0)))
	})

	It("yields a bubble at the zero end-of-program sentinel", func() {
		mem := emu.NewInstructionMemory(4)
		f := pipeline.NewFetchStage(mem)
		util := &pipeline.Utilization{}

		latch := f.Fetch(0, false, util)

		Expect(latch.Valid).To(BeFalse())
	})
})

var _ = Describe("ExecuteStage", func() {
	var (
		ex   *pipeline.ExecuteStage
		util *pipeline.Utilization
	)

	BeforeEach(func() {
		ex = pipeline.NewExecuteStage()
		util = &pipeline.Utilization{}
	})

	It("adds two registers for a register-register add", func() {
		idex := &pipeline.IDEXLatch{
			Valid: true,
			IR:    encodeR(0x00, 2, 1, 0x0, 3, 0x33),
			A:     10, B: 32,
		}
		result := ex.Execute(idex, util)
		Expect(result.Next.ALUOutput).To(Equal(int32(42)))
	})

	It("treats a division by zero as -1", func() {
		idex := &pipeline.IDEXLatch{
			Valid: true,
			IR:    encodeR(0x01, 2, 1, 0x4, 3, 0x33), // div
			A:     10, B: 0,
		}
		result := ex.Execute(idex, util)
		Expect(result.Next.ALUOutput).To(Equal(int32(-1)))
	})

	It("treats a remainder by zero as the dividend", func() {
		idex := &pipeline.IDEXLatch{
			Valid: true,
			IR:    encodeR(0x01, 2, 1, 0x6, 3, 0x33), // rem
			A:     17, B: 0,
		}
		result := ex.Execute(idex, util)
		Expect(result.Next.ALUOutput).To(Equal(int32(17)))
	})

	It("selects sub over add using bit 30 of an I-type instruction", func() {
		subi := encodeI(1, 1, 0x0, 3, 0x13) | (1 << 30)
		idex := &pipeline.IDEXLatch{Valid: true, IR: subi, A: 10, Imm: 1}
		result := ex.Execute(idex, util)
		Expect(result.Next.ALUOutput).To(Equal(int32(9)))
	})

	It("resolves a taken branch to the branch target and asserts squash", func() {
		beq := encodeB(16, 2, 1, 0x0, 0x63)
		idex := &pipeline.IDEXLatch{Valid: true, IR: beq, NPC: 8, A: 5, B: 5, Imm: 16}
		result := ex.Execute(idex, util)

		Expect(result.BranchTaken).To(BeTrue())
		Expect(result.SquashIFID).To(BeTrue())
		Expect(result.NewPC).To(Equal(uint32(20))) // (NPC-4) + Imm = 4 + 16
	})

	It("resolves a not-taken branch to the sequential NPC", func() {
		beq := encodeB(16, 2, 1, 0x0, 0x63)
		idex := &pipeline.IDEXLatch{Valid: true, IR: beq, NPC: 8, A: 5, B: 6, Imm: 16}
		result := ex.Execute(idex, util)

		Expect(result.BranchTaken).To(BeTrue())
		Expect(result.NewPC).To(Equal(uint32(8)))
		Expect(result.Next.Cond).To(BeFalse())
	})

	It("links the return address for JAL", func() {
		jal := encodeI(0, 0, 0, 1, 0x6F)
		idex := &pipeline.IDEXLatch{Valid: true, IR: jal, NPC: 8, Imm: 12}
		result := ex.Execute(idex, util)

		Expect(result.Next.ALUOutput).To(Equal(int32(8)))
		Expect(result.NewPC).To(Equal(uint32(16))) // (NPC-4) + Imm = 4 + 12
	})

	It("masks bit 0 of the computed target for JALR", func() {
		jalr := encodeI(0, 1, 0x0, 5, 0x67)
		idex := &pipeline.IDEXLatch{Valid: true, IR: jalr, NPC: 8, A: 9, Imm: 2} // 9 + 2 = 11, masked to 10
		result := ex.Execute(idex, util)

		Expect(result.NewPC).To(Equal(uint32(10)))
	})
})

var _ = Describe("MemoryStage", func() {
	It("loads a word at ALUOutput/4", func() {
		mem := emu.NewDataMemory(4)
		mem.WriteWord(1, 99)
		m := pipeline.NewMemoryStage(mem)
		util := &pipeline.Utilization{}

		lw := encodeI(0, 0, 0x2, 2, 0x03)
		exmem := &pipeline.EXMEMLatch{Valid: true, IR: lw, ALUOutput: 4}

		next := m.Access(exmem, util)
		Expect(next.LMD).To(Equal(int32(99)))
	})

	It("stores B at ALUOutput/4", func() {
		mem := emu.NewDataMemory(4)
		m := pipeline.NewMemoryStage(mem)
		util := &pipeline.Utilization{}

		sw := uint32(0x23) // opcode is all Access needs to dispatch
		exmem := &pipeline.EXMEMLatch{Valid: true, IR: sw, ALUOutput: 8, B: 77}

		m.Access(exmem, util)
		v, ok := mem.ReadWord(2)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int32(77)))
	})

	It("ignores an out-of-range address", func() {
		mem := emu.NewDataMemory(2)
		m := pipeline.NewMemoryStage(mem)
		util := &pipeline.Utilization{}

		sw := uint32(0x23)
		exmem := &pipeline.EXMEMLatch{Valid: true, IR: sw, ALUOutput: 400, B: 1}

		Expect(func() { m.Access(exmem, util) }).NotTo(Panic())
	})
})

var _ = Describe("WritebackStage", func() {
	It("writes ALUOutput to rd for an ALU instruction", func() {
		r := &emu.RegFile{}
		wb := pipeline.NewWritebackStage(r)
		util := &pipeline.Utilization{}

		addi := encodeI(0, 0, 0x0, 5, 0x13)
		memwb := &pipeline.MEMWBLatch{Valid: true, IR: addi, ALUOutput: 42}

		retired := wb.Writeback(memwb, util)
		Expect(retired).To(BeTrue())
		Expect(r.ReadReg(5)).To(Equal(int32(42)))
	})

	It("writes LMD to rd for a load instruction", func() {
		r := &emu.RegFile{}
		wb := pipeline.NewWritebackStage(r)
		util := &pipeline.Utilization{}

		lw := encodeI(0, 0, 0x2, 6, 0x03)
		memwb := &pipeline.MEMWBLatch{Valid: true, IR: lw, LMD: 7}

		wb.Writeback(memwb, util)
		Expect(r.ReadReg(6)).To(Equal(int32(7)))
	})

	It("never writes rd when rd is x0", func() {
		r := &emu.RegFile{}
		wb := pipeline.NewWritebackStage(r)
		util := &pipeline.Utilization{}

		addi := encodeI(0, 0, 0x0, 0, 0x13)
		memwb := &pipeline.MEMWBLatch{Valid: true, IR: addi, ALUOutput: 99}

		wb.Writeback(memwb, util)
		Expect(r.ReadReg(0)).To(Equal(int32(0)))
	})

	It("additionally writes the high product bits to rd+1 for mul", func() {
		r := &emu.RegFile{}
		r.WriteReg(1, -1)
		r.WriteReg(2, -1)
		wb := pipeline.NewWritebackStage(r)
		util := &pipeline.Utilization{}

		mul := encodeR(0x01, 2, 1, 0x0, 3, 0x33)
		memwb := &pipeline.MEMWBLatch{Valid: true, IR: mul, ALUOutput: 1}

		wb.Writeback(memwb, util)
		Expect(r.ReadReg(3)).To(Equal(int32(1)))
		Expect(r.ReadReg(4)).To(Equal(int32(0)))
	})

	It("reports no retirement for a bubble", func() {
		r := &emu.RegFile{}
		wb := pipeline.NewWritebackStage(r)
		util := &pipeline.Utilization{}

		retired := wb.Writeback(&pipeline.MEMWBLatch{}, util)
		Expect(retired).To(BeFalse())
	})
})
