package decoder

// Addressing-method and operand-type tags follow the Intel SDM convention
// used throughout spec.md §4.A. This table is data, not logic: each entry
// names the operands a primary opcode takes so the parser above knows
// whether to consume a ModR/M byte, a displacement, and/or an immediate —
// and, for J operands, where the relocatable displacement lives.
//
// Coverage is intentionally partial (spec.md §9 "Opcode coverage"): only
// the one-byte opcodes that routinely appear in compiler-emitted function
// prologues are populated. Anything else — including the entire 0x0F
// two-byte escape map — is absent from the table and reported as
// ErrUnknownOpcode by the caller.
type addrMethod byte

const (
	methodA addrMethod = iota // direct address (far ptr)
	methodE                   // ModR/M: register or memory
	methodG                   // ModR/M reg field: general register
	methodI                   // immediate
	methodJ                   // relative displacement (relocatable)
	methodO                   // direct offset (moffs)
	methodZ                   // opcode-encoded register, no ModR/M
	methodNone                // no operand (or implicit)
)

type operandType byte

const (
	typeB operandType = iota // byte, always 1
	typeV                    // word or dword, size-override dependent
	typeZ                    // word or dword, size-override dependent (immediate)
	typeNone
)

type operand struct {
	method addrMethod
	typ    operandType
}

// usesModRM is the precomputed set of addressing methods that consume a
// ModR/M byte, per spec.md §4.A. Of the methods this table actually uses,
// only E and G fall in that set; the full SDM set is listed in the spec's
// glossary-level description and kept here as a closed map for clarity and
// to match the original's g_UsesModRM cache.
var usesModRM = map[addrMethod]bool{
	methodE: true,
	methodG: true,
}

// usesImmediate is the precomputed set of addressing methods whose operand
// bytes are immediate-shaped: A, I, J, O (spec.md §4.A). J is immediate in
// its on-the-wire encoding but semantically relative, hence the special
// case in parseOperand/relocateOperand.
var usesImmediate = map[addrMethod]bool{
	methodA: true,
	methodI: true,
	methodJ: true,
	methodO: true,
}

type opEntry struct {
	operands []operand
	mnemonic string
}

// opcodeTable is the 256-entry primary opcode table, indexed by the
// primary opcode byte. Entries absent from the map are uncovered opcodes;
// parseInstruction treats a missing entry as ErrUnknownOpcode.
var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() map[byte]opEntry {
	t := make(map[byte]opEntry, 96)

	// ALU group with a ModR/M operand pair: ADD/OR/ADC/SBB/AND/SUB/XOR/CMP,
	// register or memory forms (0x00-0x3B range). The accumulator-immediate
	// forms are not part of this loop (ADD/SUB/CMP's are added below); the
	// segment-register forms are not covered.
	for _, base := range []byte{0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38} {
		t[base+0] = opEntry{[]operand{{methodE, typeB}, {methodG, typeB}}, "ALU Eb,Gb"}
		t[base+1] = opEntry{[]operand{{methodE, typeV}, {methodG, typeV}}, "ALU Ev,Gv"}
		t[base+2] = opEntry{[]operand{{methodG, typeB}, {methodE, typeB}}, "ALU Gb,Eb"}
		t[base+3] = opEntry{[]operand{{methodG, typeV}, {methodE, typeV}}, "ALU Gv,Ev"}
	}

	// PUSH/POP r32, opcode-encoded register, no ModR/M.
	for r := byte(0x50); r <= 0x57; r++ {
		t[r] = opEntry{nil, "PUSH r32"}
	}
	for r := byte(0x58); r <= 0x5F; r++ {
		t[r] = opEntry{nil, "POP r32"}
	}

	// Grp1 (ADD/OR/ADC/SBB/AND/SUB/XOR/CMP) on Ev/Eb with an immediate.
	// The reg field of ModR/M selects the operation; it doesn't change
	// length, so one entry covers the whole group for each opcode/imm size.
	t[0x80] = opEntry{[]operand{{methodE, typeB}, {methodI, typeB}}, "Grp1 Eb,Ib"}
	t[0x81] = opEntry{[]operand{{methodE, typeV}, {methodI, typeZ}}, "Grp1 Ev,Iz"}
	t[0x83] = opEntry{[]operand{{methodE, typeV}, {methodI, typeB}}, "Grp1 Ev,Ib"}

	// MOV forms.
	t[0x88] = opEntry{[]operand{{methodE, typeB}, {methodG, typeB}}, "MOV Eb,Gb"}
	t[0x89] = opEntry{[]operand{{methodE, typeV}, {methodG, typeV}}, "MOV Ev,Gv"}
	t[0x8A] = opEntry{[]operand{{methodG, typeB}, {methodE, typeB}}, "MOV Gb,Eb"}
	t[0x8B] = opEntry{[]operand{{methodG, typeV}, {methodE, typeV}}, "MOV Gv,Ev"}
	t[0x8D] = opEntry{[]operand{{methodG, typeV}, {methodE, typeV}}, "LEA Gv,M"}

	t[0x90] = opEntry{nil, "NOP"}
	for r := byte(0x91); r <= 0x97; r++ {
		t[r] = opEntry{nil, "XCHG eAX,r32"}
	}

	// MOV r32, imm32 (imm16 under operand-size override), opcode-encoded
	// register.
	for r := byte(0xB8); r <= 0xBF; r++ {
		t[r] = opEntry{[]operand{{methodZ, typeV}, {methodI, typeV}}, "MOV r32,Iv"}
	}

	// 0xC0/0xC1 (shift group Eb/Ev, Ib) are not included: the shift count
	// operand has no relocation relevance, and they are omitted from
	// coverage deliberately, see Opcode coverage design note. 0xC2/0xC3 are
	// RET.
	t[0xC2] = opEntry{[]operand{{methodI, typeB}}, "RETN Iw"}
	t[0xC3] = opEntry{nil, "RETN"}
	t[0xC6] = opEntry{[]operand{{methodE, typeB}, {methodI, typeB}}, "MOV Eb,Ib"}
	t[0xC7] = opEntry{[]operand{{methodE, typeV}, {methodI, typeZ}}, "MOV Ev,Iz"}
	t[0xC9] = opEntry{nil, "LEAVE"}
	t[0xCC] = opEntry{nil, "INT3"}

	// Short conditional jumps Jb (0x70-0x7F) and JMP short (0xEB).
	for op := byte(0x70); op <= 0x7F; op++ {
		t[op] = opEntry{[]operand{{methodJ, typeB}}, "Jcc Jb"}
	}
	t[0xEB] = opEntry{[]operand{{methodJ, typeB}}, "JMP Jb"}

	// ALU accumulator-immediate forms commonly seen in prologues/epilogues.
	t[0x04] = opEntry{[]operand{{methodI, typeB}}, "ADD AL,Ib"}
	t[0x05] = opEntry{[]operand{{methodI, typeZ}}, "ADD eAX,Iz"}
	t[0x2C] = opEntry{[]operand{{methodI, typeB}}, "SUB AL,Ib"}
	t[0x2D] = opEntry{[]operand{{methodI, typeZ}}, "SUB eAX,Iz"}
	t[0x3C] = opEntry{[]operand{{methodI, typeB}}, "CMP AL,Ib"}
	t[0x3D] = opEntry{[]operand{{methodI, typeZ}}, "CMP eAX,Iz"}
	t[0xA8] = opEntry{[]operand{{methodI, typeB}}, "TEST AL,Ib"}
	t[0xA9] = opEntry{[]operand{{methodI, typeZ}}, "TEST eAX,Iz"}

	// TEST Eb/Ev with a ModR/M-addressed operand.
	t[0x84] = opEntry{[]operand{{methodE, typeB}, {methodG, typeB}}, "TEST Eb,Gb"}
	t[0x85] = opEntry{[]operand{{methodE, typeV}, {methodG, typeV}}, "TEST Ev,Gv"}

	// MOV eAX, moffs32 / MOV moffs32, eAX — absolute direct-address forms.
	// The address is absolute, not IP-relative, so it is copied verbatim by
	// parseOperand rather than routed through relocateOperand.
	t[0xA1] = opEntry{[]operand{{methodO, typeV}}, "MOV eAX,Ov"}
	t[0xA3] = opEntry{[]operand{{methodO, typeV}}, "MOV Ov,eAX"}

	// Near CALL/JMP, relative.
	t[0xE8] = opEntry{[]operand{{methodJ, typeZ}}, "CALL Jz"}
	t[0xE9] = opEntry{[]operand{{methodJ, typeZ}}, "JMP Jz"}

	// Stack/flag housekeeping common right after a prologue.
	t[0x68] = opEntry{[]operand{{methodI, typeZ}}, "PUSH Iz"}
	t[0x6A] = opEntry{[]operand{{methodI, typeB}}, "PUSH Ib"}
	t[0xF4] = opEntry{nil, "HLT"}

	return t
}
