package emulator

import "fmt"

// Op identifies one of the CHIP-8 instructions after decoding.
type Op uint8

const (
	OpUnknown Op = iota
	OpCLS        // 00E0
	OpRET        // 00EE
	OpJP         // 1nnn
	OpCALL       // 2nnn
	OpSEByte     // 3xkk
	OpSNEByte    // 4xkk
	OpSEReg      // 5xy0
	OpLDByte     // 6xkk
	OpADDByte    // 7xkk
	OpLDReg      // 8xy0
	OpOR         // 8xy1
	OpAND        // 8xy2
	OpXOR        // 8xy3
	OpADDReg     // 8xy4
	OpSUB        // 8xy5
	OpSHR        // 8xy6
	OpSUBN       // 8xy7
	OpSHL        // 8xyE
	OpSNEReg     // 9xy0
	OpLDI        // Annn
	OpJPV0       // Bnnn
	OpRND        // Cxkk
	OpDRW        // Dxyn
	OpSKP        // Ex9E
	OpSKNP       // ExA1
	OpLDVxDT     // Fx07
	OpLDVxK      // Fx0A
	OpLDDTVx     // Fx15
	OpLDSTVx     // Fx18
	OpADDI       // Fx1E
	OpLDF        // Fx29
	OpLDB        // Fx33
	OpLDIVx      // Fx55
	OpLDVxI      // Fx65

	opCount
)

var opNames = [opCount]struct {
	pattern  string
	mnemonic string
}{
	OpUnknown: {"????", "???"},
	OpCLS:     {"00E0", "CLS"},
	OpRET:     {"00EE", "RET"},
	OpJP:      {"1nnn", "JP addr"},
	OpCALL:    {"2nnn", "CALL addr"},
	OpSEByte:  {"3xkk", "SE Vx, byte"},
	OpSNEByte: {"4xkk", "SNE Vx, byte"},
	OpSEReg:   {"5xy0", "SE Vx, Vy"},
	OpLDByte:  {"6xkk", "LD Vx, byte"},
	OpADDByte: {"7xkk", "ADD Vx, byte"},
	OpLDReg:   {"8xy0", "LD Vx, Vy"},
	OpOR:      {"8xy1", "OR Vx, Vy"},
	OpAND:     {"8xy2", "AND Vx, Vy"},
	OpXOR:     {"8xy3", "XOR Vx, Vy"},
	OpADDReg:  {"8xy4", "ADD Vx, Vy"},
	OpSUB:     {"8xy5", "SUB Vx, Vy"},
	OpSHR:     {"8xy6", "SHR Vx"},
	OpSUBN:    {"8xy7", "SUBN Vx, Vy"},
	OpSHL:     {"8xyE", "SHL Vx"},
	OpSNEReg:  {"9xy0", "SNE Vx, Vy"},
	OpLDI:     {"Annn", "LD I, addr"},
	OpJPV0:    {"Bnnn", "JP V0, addr"},
	OpRND:     {"Cxkk", "RND Vx, byte"},
	OpDRW:     {"Dxyn", "DRW Vx, Vy, nibble"},
	OpSKP:     {"Ex9E", "SKP Vx"},
	OpSKNP:    {"ExA1", "SKNP Vx"},
	OpLDVxDT:  {"Fx07", "LD Vx, DT"},
	OpLDVxK:   {"Fx0A", "LD Vx, K"},
	OpLDDTVx:  {"Fx15", "LD DT, Vx"},
	OpLDSTVx:  {"Fx18", "LD ST, Vx"},
	OpADDI:    {"Fx1E", "ADD I, Vx"},
	OpLDF:     {"Fx29", "LD F, Vx"},
	OpLDB:     {"Fx33", "LD B, Vx"},
	OpLDIVx:   {"Fx55", "LD [I], Vx"},
	OpLDVxI:   {"Fx65", "LD Vx, [I]"},
}

// String returns the generic mnemonic, e.g. "ADD Vx, Vy".
func (op Op) String() string {
	if op >= opCount {
		return opNames[OpUnknown].mnemonic
	}
	return opNames[op].mnemonic
}

// Pattern returns the opcode pattern, e.g. "8xy4".
func (op Op) Pattern() string {
	if op >= opCount {
		return opNames[OpUnknown].pattern
	}
	return opNames[op].pattern
}

/*
The 16-bit opcode space is sparse and irregular, so a single mask cannot tell every instruction apart:
all of 8xy0-8xyE share the top nibble, 00E0/00EE differ only in the low byte, and so on.

Decoding therefore walks three tiers from the most to the least specific mask and stops at the first hit:

	0xF0FF: top nibble + low byte   (00E0, 00EE, Ex9E, ExA1, Fx07 ... Fx65)
	0xF00F: top nibble + low nibble (5xy0, 8xy0 ... 8xyE, 9xy0)
	0xF000: top nibble only         (1nnn, 2nnn, 3xkk, 4xkk, 6xkk, 7xkk, Annn, Bnnn, Cxkk, Dxyn)

Anything that misses all three tiers is not a CHIP-8 instruction.
*/
type decodeTier struct {
	mask uint16
	ops  map[uint16]Op
}

var decodeTiers = [...]decodeTier{
	{
		mask: 0xF0FF,
		ops: map[uint16]Op{
			0x00E0: OpCLS,
			0x00EE: OpRET,
			0xE09E: OpSKP,
			0xE0A1: OpSKNP,
			0xF007: OpLDVxDT,
			0xF00A: OpLDVxK,
			0xF015: OpLDDTVx,
			0xF018: OpLDSTVx,
			0xF01E: OpADDI,
			0xF029: OpLDF,
			0xF033: OpLDB,
			0xF055: OpLDIVx,
			0xF065: OpLDVxI,
		},
	},
	{
		mask: 0xF00F,
		ops: map[uint16]Op{
			0x5000: OpSEReg,
			0x8000: OpLDReg,
			0x8001: OpOR,
			0x8002: OpAND,
			0x8003: OpXOR,
			0x8004: OpADDReg,
			0x8005: OpSUB,
			0x8006: OpSHR,
			0x8007: OpSUBN,
			0x800E: OpSHL,
			0x9000: OpSNEReg,
		},
	},
	{
		mask: 0xF000,
		ops: map[uint16]Op{
			0x1000: OpJP,
			0x2000: OpCALL,
			0x3000: OpSEByte,
			0x4000: OpSNEByte,
			0x6000: OpLDByte,
			0x7000: OpADDByte,
			0xA000: OpLDI,
			0xB000: OpJPV0,
			0xC000: OpRND,
			0xD000: OpDRW,
		},
	},
}

// Instruction is a decoded opcode with every operand field already extracted.
// Handlers only read the fields their opcode defines.
type Instruction struct {
	Op  Op
	Raw uint16

	X   byte   // register index in bits 8-11
	Y   byte   // register index in bits 4-7
	N   byte   // low nibble
	KK  byte   // low byte
	NNN uint16 // low 12 bits
}

// Decode maps a raw opcode to its instruction. The bool is false when no tier matches.
func Decode(opcode uint16) (Instruction, bool) {
	ins := Instruction{
		Raw: opcode,
		X:   byte((opcode & 0x0F00) >> 8),
		Y:   byte((opcode & 0x00F0) >> 4),
		N:   byte(opcode & 0x000F),
		KK:  byte(opcode & 0x00FF),
		NNN: opcode & 0x0FFF,
	}

	for _, tier := range decodeTiers {
		if op, ok := tier.ops[opcode&tier.mask]; ok {
			ins.Op = op
			return ins, true
		}
	}

	return ins, false
}

// Mnemonic returns the generic mnemonic for an opcode, e.g. 0x8124 gives "ADD Vx, Vy".
func Mnemonic(opcode uint16) string {
	ins, _ := Decode(opcode)
	return ins.Op.String()
}

// Disassemble formats an opcode with its operands, e.g. 0x8124 gives "ADD V1, V2".
// Unknown opcodes are rendered as a data word.
func Disassemble(opcode uint16) string {
	ins, ok := Decode(opcode)
	if !ok {
		return fmt.Sprintf("DW $%04X", opcode)
	}
	return ins.String()
}

// String formats the instruction the way Disassemble does.
func (ins Instruction) String() string {
	switch ins.Op {
	case OpCLS:
		return "CLS"
	case OpRET:
		return "RET"
	case OpJP:
		return fmt.Sprintf("JP $%03X", ins.NNN)
	case OpCALL:
		return fmt.Sprintf("CALL $%03X", ins.NNN)
	case OpSEByte:
		return fmt.Sprintf("SE V%X, $%02X", ins.X, ins.KK)
	case OpSNEByte:
		return fmt.Sprintf("SNE V%X, $%02X", ins.X, ins.KK)
	case OpSEReg:
		return fmt.Sprintf("SE V%X, V%X", ins.X, ins.Y)
	case OpLDByte:
		return fmt.Sprintf("LD V%X, $%02X", ins.X, ins.KK)
	case OpADDByte:
		return fmt.Sprintf("ADD V%X, $%02X", ins.X, ins.KK)
	case OpLDReg:
		return fmt.Sprintf("LD V%X, V%X", ins.X, ins.Y)
	case OpOR:
		return fmt.Sprintf("OR V%X, V%X", ins.X, ins.Y)
	case OpAND:
		return fmt.Sprintf("AND V%X, V%X", ins.X, ins.Y)
	case OpXOR:
		return fmt.Sprintf("XOR V%X, V%X", ins.X, ins.Y)
	case OpADDReg:
		return fmt.Sprintf("ADD V%X, V%X", ins.X, ins.Y)
	case OpSUB:
		return fmt.Sprintf("SUB V%X, V%X", ins.X, ins.Y)
	case OpSHR:
		return fmt.Sprintf("SHR V%X", ins.X)
	case OpSUBN:
		return fmt.Sprintf("SUBN V%X, V%X", ins.X, ins.Y)
	case OpSHL:
		return fmt.Sprintf("SHL V%X", ins.X)
	case OpSNEReg:
		return fmt.Sprintf("SNE V%X, V%X", ins.X, ins.Y)
	case OpLDI:
		return fmt.Sprintf("LD I, $%03X", ins.NNN)
	case OpJPV0:
		return fmt.Sprintf("JP V0, $%03X", ins.NNN)
	case OpRND:
		return fmt.Sprintf("RND V%X, $%02X", ins.X, ins.KK)
	case OpDRW:
		return fmt.Sprintf("DRW V%X, V%X, $%X", ins.X, ins.Y, ins.N)
	case OpSKP:
		return fmt.Sprintf("SKP V%X", ins.X)
	case OpSKNP:
		return fmt.Sprintf("SKNP V%X", ins.X)
	case OpLDVxDT:
		return fmt.Sprintf("LD V%X, DT", ins.X)
	case OpLDVxK:
		return fmt.Sprintf("LD V%X, K", ins.X)
	case OpLDDTVx:
		return fmt.Sprintf("LD DT, V%X", ins.X)
	case OpLDSTVx:
		return fmt.Sprintf("LD ST, V%X", ins.X)
	case OpADDI:
		return fmt.Sprintf("ADD I, V%X", ins.X)
	case OpLDF:
		return fmt.Sprintf("LD F, V%X", ins.X)
	case OpLDB:
		return fmt.Sprintf("LD B, V%X", ins.X)
	case OpLDIVx:
		return fmt.Sprintf("LD [I], V%X", ins.X)
	case OpLDVxI:
		return fmt.Sprintf("LD V%X, [I]", ins.X)
	}
	return fmt.Sprintf("DW $%04X", ins.Raw)
}
