package emulator

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("chip8.emulator")

/*
There is relatively little register-space (because it's expensive), so a computer needs a large chunk of general
memory dedicated to holding program instructions, long-term data, and short-term data. It references different
locations in that memory using an address.

The CHIP-8 has 4096 bytes of memory, meaning the address space is from 0x000 to 0xFFF.
The address space is segmented into three sections:

	0x000-0x1FF: Originally reserved for the CHIP-8 interpreter. Nothing but the font lives there.
	0x050-0x09F: Storage space for the 16 built-in characters (0 through F).
	0x200-0xFFF: Instructions from the ROM are stored starting at 0x200, anything left after the ROM's space is free to use.
*/
const START_ADDRESS uint16 = 0x200
const FONTSET_START_ADDRESS uint16 = 0x50

const MEMORY_SIZE = 4096
const STACK_SIZE = 16
const REGISTER_COUNT = 16
const KEY_COUNT = 16

// Register VF doubles as the carry, borrow and collision flag
const VF = 0xF

// Chip8 is the whole machine: register file, memory, stack, timers, keypad and screen.
// It is not safe for concurrent use; the driver owns it and calls Cycle in a loop.
type Chip8 struct {
	// Chip8 has 16 8-bit registers
	registers [REGISTER_COUNT]byte

	// 4k bytes of memory
	memory [MEMORY_SIZE]byte

	// The Index Register is a special register used to store memory addresses for use in operations
	// It's a 16-bit register because the maximum memory address (0xFFF) is too big for an 8-bit register
	indexRegister uint16

	// The Program Counter (PC) is a special register that holds the address of the next instruction to execute
	// Again, it's 16 bits because it has to be able to hold the maximum memory address (0xFFF)
	programCounter uint16

	// 16-level stack used to hold PCs. Can push and pull instructions to it for execution flow
	stack [STACK_SIZE]uint16

	// The Stack Pointer keeps track of our position in the stack
	stackPointer byte

	// The CHIP-8 has a simple timer used for timing
	// If the timer value is zero, it stays zero
	// If it is loaded with a value, it will decrement at a rate of 60Hz
	// We will just be decrementing based on clock cycle for this application
	delayTimer byte

	// Same behavior as the Delay Timer. Playing a tone while it's non-zero is up to the driver
	soundTimer byte

	// Store the opcode for instructions
	opcode uint16

	// Pressed state of keys 0x0 through 0xF. The keyboard layout lives in config (defaultKeys)
	keypad [KEY_COUNT]bool

	// Holds our screen pixels
	screen Screen

	// The last few instructions that completed, oldest first once full
	recent    [RECENT_SIZE]Trace
	recentLen int
	recentPos int

	// Source for Cxkk. nil means the global math/rand/v2 source
	rng *rand.Rand
}

// Option configures a Chip8 at construction time.
type Option func(*Chip8)

// WithRand makes Cxkk draw from r, which makes runs reproducible.
func WithRand(r *rand.Rand) Option {
	return func(c8 *Chip8) {
		c8.rng = r
	}
}

// New returns a machine with the font loaded, a blank screen and the PC at START_ADDRESS.
func New(opts ...Option) *Chip8 {
	c8 := &Chip8{}
	for _, opt := range opts {
		opt(c8)
	}

	c8.loadFont()
	c8.screen.Reset()
	c8.Reset()

	return c8
}

// Reset re-initializes PC, I, SP, both timers and the recent instruction history.
// Font data, registers and the screen are left alone.
func (c8 *Chip8) Reset() {
	c8.programCounter = START_ADDRESS
	c8.indexRegister = 0
	c8.stackPointer = 0
	c8.delayTimer = 0
	c8.soundTimer = 0
	c8.opcode = 0
	c8.recentLen = 0
	c8.recentPos = 0
}

// LoadROM resets the machine, clears the program area and copies data verbatim to START_ADDRESS.
// An empty ROM leaves the machine reset and unprogrammed.
func (c8 *Chip8) LoadROM(data []byte) error {
	c8.Reset()
	clear(c8.memory[START_ADDRESS:])

	if limit := MEMORY_SIZE - int(START_ADDRESS); len(data) > limit {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrROMTooLarge, len(data), limit)
	}

	copy(c8.memory[START_ADDRESS:], data)
	return nil
}

// LoadROMFile reads a ROM from disk and loads it. A file that cannot be read is logged
// and treated like an empty ROM; only an oversized ROM is reported as an error.
func (c8 *Chip8) LoadROMFile(filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		log.Warningf("cannot read ROM %s: %s", filepath, err.Error())
		data = nil
	}

	if err := c8.LoadROM(data); err != nil {
		return fmt.Errorf("%s: %w", filepath, err)
	}

	log.Infof("loaded %d bytes from %s", len(data), filepath)
	return nil
}

/*
When we talk about one cycle of this primitive CPU that we're emulating, we're talking about it doing three things:
- Fetch the next instruction in the form of an opcode
- Decode the instruction to determine what operation needs to occur
- Execute the instruction

followed by one tick of each timer.

A cycle either applies all of its effects or none of them: when an instruction fails, the PC is put back on the
failing instruction, the timers are not ticked, and the error is returned to the driver.
An opcode that doesn't decode is logged and skipped, which is not an error.
*/
func (c8 *Chip8) Cycle() error {
	pc := c8.programCounter

	// Fetch
	if err := checkRange(pc, 2); err != nil {
		return fmt.Errorf("fetch at 0x%03X: %w", pc, err)
	}
	opcode := uint16(c8.memory[pc])<<8 | uint16(c8.memory[pc+1])

	// Increment the PC before we execute anything
	c8.programCounter += 2

	// Decode and Execute
	ins, ok := Decode(opcode)
	if !ok {
		log.Warningf("cannot interpret instruction 0x%04X at 0x%03X", opcode, pc)
	} else {
		if log.AllowLevel(commonlog.Debug) {
			log.Debug("exec",
				"pc", fmt.Sprintf("0x%03X", pc),
				"opcode", fmt.Sprintf("0x%04X", opcode),
				"instr", ins.String(),
			)
		}

		if err := c8.execute(ins); err != nil {
			c8.programCounter = pc
			return fmt.Errorf("%s (0x%04X) at 0x%03X: %w", ins, ins.Raw, pc, err)
		}
	}

	c8.opcode = opcode
	c8.record(Trace{PC: pc, Opcode: opcode})

	// Decrement the delay timer if it's been set
	if c8.delayTimer > 0 {
		c8.delayTimer -= 1
	}

	// Decrement the sound timer if it's been set
	if c8.soundTimer > 0 {
		c8.soundTimer -= 1
	}

	return nil
}

func (c8 *Chip8) execute(ins Instruction) error {
	switch ins.Op {
	case OpCLS:
		c8.op00E0()
	case OpRET:
		return c8.op00EE()
	case OpJP:
		c8.op1nnn(ins)
	case OpCALL:
		return c8.op2nnn(ins)
	case OpSEByte:
		c8.op3xkk(ins)
	case OpSNEByte:
		c8.op4xkk(ins)
	case OpSEReg:
		c8.op5xy0(ins)
	case OpLDByte:
		c8.op6xkk(ins)
	case OpADDByte:
		c8.op7xkk(ins)
	case OpLDReg:
		c8.op8xy0(ins)
	case OpOR:
		c8.op8xy1(ins)
	case OpAND:
		c8.op8xy2(ins)
	case OpXOR:
		c8.op8xy3(ins)
	case OpADDReg:
		c8.op8xy4(ins)
	case OpSUB:
		c8.op8xy5(ins)
	case OpSHR:
		c8.op8xy6(ins)
	case OpSUBN:
		c8.op8xy7(ins)
	case OpSHL:
		c8.op8xyE(ins)
	case OpSNEReg:
		c8.op9xy0(ins)
	case OpLDI:
		c8.opAnnn(ins)
	case OpJPV0:
		c8.opBnnn(ins)
	case OpRND:
		c8.opCxkk(ins)
	case OpDRW:
		return c8.opDxyn(ins)
	case OpSKP:
		return c8.opEx9E(ins)
	case OpSKNP:
		return c8.opExA1(ins)
	case OpLDVxDT:
		c8.opFx07(ins)
	case OpLDVxK:
		c8.opFx0A(ins)
	case OpLDDTVx:
		c8.opFx15(ins)
	case OpLDSTVx:
		c8.opFx18(ins)
	case OpADDI:
		return c8.opFx1E(ins)
	case OpLDF:
		c8.opFx29(ins)
	case OpLDB:
		return c8.opFx33(ins)
	case OpLDIVx:
		return c8.opFx55(ins)
	case OpLDVxI:
		return c8.opFx65(ins)
	default:
		return fmt.Errorf("no handler for %s", ins.Op.Pattern())
	}
	return nil
}

// checkRange reports whether the n bytes starting at addr all lie inside memory.
func checkRange(addr uint16, n int) error {
	if int(addr)+n > MEMORY_SIZE {
		return fmt.Errorf("%w: 0x%04X+%d", ErrAddressOutOfRange, addr, n)
	}
	return nil
}

// Display exposes the screen to the presenter. Callers must not write to it.
func (c8 *Chip8) Display() *Screen {
	return &c8.screen
}

// ClearScreen turns every pixel off, as CLS would. Used by the driver when switching ROMs.
func (c8 *Chip8) ClearScreen() {
	c8.screen.Reset()
}

// SetKeypad replaces the whole keypad snapshot. Call it between cycles.
func (c8 *Chip8) SetKeypad(keys [KEY_COUNT]bool) {
	c8.keypad = keys
}

// SetKey marks a single key as held or released. Keys above 0xF are ignored.
func (c8 *Chip8) SetKey(key int, held bool) {
	if key < 0 || key >= KEY_COUNT {
		return
	}
	c8.keypad[key] = held
}

// Keypad returns the current keypad snapshot.
func (c8 *Chip8) Keypad() [KEY_COUNT]bool {
	return c8.keypad
}

func (c8 *Chip8) DelayTimer() byte {
	return c8.delayTimer
}

func (c8 *Chip8) SoundTimer() byte {
	return c8.soundTimer
}

// Register returns Vi. i is masked to 0-F.
func (c8 *Chip8) Register(i int) byte {
	return c8.registers[i&0xF]
}

// SetRegister sets Vi. i is masked to 0-F.
func (c8 *Chip8) SetRegister(i int, v byte) {
	c8.registers[i&0xF] = v
}

func (c8 *Chip8) Index() uint16 {
	return c8.indexRegister
}

func (c8 *Chip8) PC() uint16 {
	return c8.programCounter
}

func (c8 *Chip8) StackPointer() byte {
	return c8.stackPointer
}

// Opcode returns the opcode of the last cycle that completed.
func (c8 *Chip8) Opcode() uint16 {
	return c8.opcode
}

func (c8 *Chip8) ReadMemory(addr uint16) (byte, error) {
	if err := checkRange(addr, 1); err != nil {
		return 0, err
	}
	return c8.memory[addr], nil
}

func (c8 *Chip8) WriteMemory(addr uint16, value byte) error {
	if err := checkRange(addr, 1); err != nil {
		return err
	}
	c8.memory[addr] = value
	return nil
}

func (c8 *Chip8) randomByte() byte {
	if c8.rng != nil {
		return byte(c8.rng.IntN(256))
	}
	return byte(rand.IntN(256))
}
