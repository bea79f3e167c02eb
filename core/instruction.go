package core

import "encoding/binary"

// Opcode is the high-8-bit tag of a 32-bit instruction word.
type Opcode uint8

const (
	OpUndefined Opcode = iota

	OpADD
	OpADDI
	OpSUB
	OpSUBI
	OpMUL
	OpMULI
	OpDIV
	OpDIVI
	OpMOD
	OpMODI
	OpAND
	OpANDI
	OpOR
	OpORI
	OpXOR
	OpXORI
	OpSLL
	OpSLLI
	OpSRL
	OpSRLI
	OpEQ
	OpGT
	OpLT
	OpNOT
	OpMOVE
	OpMOVI
	OpMLOG
	OpMROO

	OpJI
	OpJNEI
	OpJNZI
	OpRET
	OpRETD
	OpRVRT

	OpCFEI
	OpCFSI
	OpLB
	OpLW
	OpALOC
	OpSB
	OpSW
	OpMCL
	OpMCLI
	OpMCP
	OpMEQ

	OpBAL
	OpBHSH
	OpBHEI
	OpCB // coinbase
	OpTIME
	OpCALL
	OpCCP
	OpCROO
	OpCSIZ
	OpLDC
	OpLOG
	OpLOGD
	OpTR
	OpTRO
	OpSRW
	OpSRWQ
	OpSWW
	OpSWWQ
	OpSCWQ

	OpECR
	OpK256
	OpS256

	OpNOOP
	OpFLAG

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	OpUndefined: "undefined",
	OpADD: "add", OpADDI: "addi", OpSUB: "sub", OpSUBI: "subi",
	OpMUL: "mul", OpMULI: "muli", OpDIV: "div", OpDIVI: "divi",
	OpMOD: "mod", OpMODI: "modi", OpAND: "and", OpANDI: "andi",
	OpOR: "or", OpORI: "ori", OpXOR: "xor", OpXORI: "xori",
	OpSLL: "sll", OpSLLI: "slli", OpSRL: "srl", OpSRLI: "srli",
	OpEQ: "eq", OpGT: "gt", OpLT: "lt", OpNOT: "not",
	OpMOVE: "move", OpMOVI: "movi", OpMLOG: "mlog", OpMROO: "mroo",
	OpJI: "ji", OpJNEI: "jnei", OpJNZI: "jnzi",
	OpRET: "ret", OpRETD: "retd", OpRVRT: "rvrt",
	OpCFEI: "cfei", OpCFSI: "cfsi", OpLB: "lb", OpLW: "lw",
	OpALOC: "aloc", OpSB: "sb", OpSW: "sw",
	OpMCL: "mcl", OpMCLI: "mcli", OpMCP: "mcp", OpMEQ: "meq",
	OpBAL: "bal", OpBHSH: "bhsh", OpBHEI: "bhei", OpCB: "cb", OpTIME: "time",
	OpCALL: "call", OpCCP: "ccp", OpCROO: "croo", OpCSIZ: "csiz", OpLDC: "ldc",
	OpLOG: "log", OpLOGD: "logd", OpTR: "tr", OpTRO: "tro",
	OpSRW: "srw", OpSRWQ: "srwq", OpSWW: "sww", OpSWWQ: "swwq", OpSCWQ: "scwq",
	OpECR: "ecr", OpK256: "k256", OpS256: "s256",
	OpNOOP: "noop", OpFLAG: "flag",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "undefined"
}

// operandForm describes how the 24 operand bits of an instruction word are
// partitioned.
type operandForm uint8

const (
	formNone operandForm = iota // no operands (NOOP, RVRT-less variants use below)
	formRRR                     // three 6-bit register slots
	formRRI12                   // two 6-bit registers + 12-bit immediate
	formRI18                    // one 6-bit register + 18-bit immediate
	formI24                     // a single 24-bit immediate
	formRRRR                    // four 6-bit register slots (no immediate)
)

var opcodeForms = [opcodeCount]operandForm{
	OpUndefined: formNone,

	OpADD: formRRR, OpSUB: formRRR, OpMUL: formRRR, OpDIV: formRRR, OpMOD: formRRR,
	OpAND: formRRR, OpOR: formRRR, OpXOR: formRRR, OpSLL: formRRR, OpSRL: formRRR,
	OpEQ: formRRR, OpGT: formRRR, OpLT: formRRR, OpMLOG: formRRR, OpMROO: formRRR,

	OpADDI: formRRI12, OpSUBI: formRRI12, OpMULI: formRRI12, OpDIVI: formRRI12, OpMODI: formRRI12,
	OpANDI: formRRI12, OpORI: formRRI12, OpXORI: formRRI12, OpSLLI: formRRI12, OpSRLI: formRRI12,
	OpJNEI: formRRI12, OpLB: formRRI12, OpLW: formRRI12, OpSB: formRRI12, OpSW: formRRI12,

	OpNOT: formRI18, OpMOVE: formRI18, OpMOVI: formRI18, OpMCLI: formRI18,
	OpJNZI: formRI18, OpALOC: formRI18, OpCB: formRI18, OpRET: formRI18,
	OpRVRT: formRI18, OpFLAG: formRI18,

	OpJI: formI24, OpCFEI: formI24, OpCFSI: formI24,

	OpMCL: formRRR, OpMCP: formRRR, OpTR: formRRR, OpSRW: formRRR, OpSWW: formRRR,
	OpSRWQ: formRRR, OpSWWQ: formRRR, OpSCWQ: formRRR, OpLDC: formRRR,
	OpECR: formRRR, OpK256: formRRR, OpS256: formRRR, OpBHEI: formRRR, OpTIME: formRRR,
	OpBAL: formRRR, OpBHSH: formRRR, OpCSIZ: formRRR, OpCROO: formRRR, OpRETD: formRRR,

	OpMEQ: formRRRR, OpCALL: formRRRR, OpCCP: formRRRR, OpLOG: formRRRR, OpTRO: formRRRR,

	OpNOOP: formNone,
}

// Instruction is the decoded form of one 32-bit bytecode word.
type Instruction struct {
	Op             Opcode
	RA, RB, RC, RD RegIndex
	Imm            uint32
}

// regAt extracts 6 bits at the given bit offset (from the low end) of the
// 24-bit operand payload.
func regAt(payload uint32, shift uint) RegIndex {
	return RegIndex((payload >> shift) & 0x3f)
}

// Decode performs total decoding of a 32-bit big-endian instruction word:
// every input yields a recognized Instruction or OpUndefined. A word whose
// operand bits unused by its form are not zero decodes to OpUndefined.
func Decode(word uint32) Instruction {
	tag := Opcode(word >> 24)
	payload := word & 0x00ffffff

	if tag == OpUndefined || tag >= opcodeCount {
		return Instruction{Op: OpUndefined}
	}

	form := opcodeForms[tag]
	if (form == formRRR && payload&0x3f != 0) || (form == formNone && payload != 0) {
		return Instruction{Op: OpUndefined}
	}

	switch form {
	case formRRR:
		return Instruction{Op: tag, RA: regAt(payload, 18), RB: regAt(payload, 12), RC: regAt(payload, 6)}
	case formRRRR:
		return Instruction{Op: tag, RA: regAt(payload, 18), RB: regAt(payload, 12), RC: regAt(payload, 6), RD: regAt(payload, 0)}
	case formRRI12:
		return Instruction{Op: tag, RA: regAt(payload, 18), RB: regAt(payload, 12), Imm: payload & 0xfff}
	case formRI18:
		return Instruction{Op: tag, RA: regAt(payload, 18), Imm: payload & 0x3ffff}
	case formI24:
		return Instruction{Op: tag, Imm: payload}
	default: // formNone
		return Instruction{Op: tag}
	}
}

// Encode re-serializes a recognized Instruction into its 32-bit big-endian
// word. Encode(Decode(w)) == w holds for every recognized w (round-trip law).
func Encode(i Instruction) uint32 {
	var payload uint32
	switch opcodeForms[i.Op] {
	case formRRR:
		payload = uint32(i.RA&0x3f)<<18 | uint32(i.RB&0x3f)<<12 | uint32(i.RC&0x3f)<<6
	case formRRRR:
		payload = uint32(i.RA&0x3f)<<18 | uint32(i.RB&0x3f)<<12 | uint32(i.RC&0x3f)<<6 | uint32(i.RD&0x3f)
	case formRRI12:
		payload = uint32(i.RA&0x3f)<<18 | uint32(i.RB&0x3f)<<12 | (i.Imm & 0xfff)
	case formRI18:
		payload = uint32(i.RA&0x3f)<<18 | (i.Imm & 0x3ffff)
	case formI24:
		payload = i.Imm & 0xffffff
	default:
		payload = 0
	}
	return uint32(i.Op)<<24 | payload
}

// DecodeBytes decodes the big-endian 32-bit word at the start of b.
func DecodeBytes(b []byte) Instruction {
	return Decode(binary.BigEndian.Uint32(b[:4]))
}

// FromBytesUnchecked reads exactly four bytes from the start of b,
// regardless of len(b), and decodes them. Matches the decoder-tolerance
// law: decoding tolerates (and ignores) trailing bytes beyond the first
// four.
func FromBytesUnchecked(b []byte) Instruction {
	var buf [4]byte
	n := copy(buf[:], b)
	_ = n // short input leaves the remainder zero, which decodes to OpUndefined-safe zero word
	return DecodeBytes(buf[:])
}

// EncodeBytes serializes i to its big-endian 4-byte wire form.
func EncodeBytes(i Instruction) [4]byte {
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], Encode(i))
	return out
}
