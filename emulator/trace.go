package emulator

import "fmt"

// Number of completed instructions kept for Recent
const RECENT_SIZE = 4

// Trace is one completed instruction: where it was fetched and what it was.
type Trace struct {
	PC     uint16
	Opcode uint16
}

func (t Trace) String() string {
	return fmt.Sprintf("0x%03X %04X %s", t.PC, t.Opcode, Disassemble(t.Opcode))
}

func (c8 *Chip8) record(t Trace) {
	c8.recent[c8.recentPos] = t
	c8.recentPos = (c8.recentPos + 1) % RECENT_SIZE
	if c8.recentLen < RECENT_SIZE {
		c8.recentLen++
	}
}

// Recent returns up to RECENT_SIZE completed instructions, oldest first.
// Failed cycles are not recorded.
func (c8 *Chip8) Recent() []Trace {
	out := make([]Trace, 0, c8.recentLen)
	start := (c8.recentPos - c8.recentLen + RECENT_SIZE) % RECENT_SIZE
	for i := range c8.recentLen {
		out = append(out, c8.recent[(start+i)%RECENT_SIZE])
	}
	return out
}

// Status is a one-line summary of where the machine is: PC, SP and the instruction about to run.
//
//	PC 0x202 SP 0 | LD V1, $0A
func (c8 *Chip8) Status() string {
	next := "??"
	if checkRange(c8.programCounter, 2) == nil {
		next = Disassemble(uint16(c8.memory[c8.programCounter])<<8 | uint16(c8.memory[c8.programCounter+1]))
	}
	return fmt.Sprintf("PC 0x%03X SP %d | %s", c8.programCounter, c8.stackPointer, next)
}
