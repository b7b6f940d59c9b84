package emulator

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

// loadProgram assembles opcodes big-endian at START_ADDRESS.
func loadProgram(t *testing.T, c8 *Chip8, opcodes ...uint16) {
	t.Helper()
	rom := make([]byte, 0, 2*len(opcodes))
	for _, op := range opcodes {
		rom = append(rom, byte(op>>8), byte(op))
	}
	if err := c8.LoadROM(rom); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
}

// step runs n cycles and fails the test on the first error.
func step(t *testing.T, c8 *Chip8, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := c8.Cycle(); err != nil {
			t.Fatalf("cycle %d at 0x%03X: %v", i, c8.PC(), err)
		}
	}
}

func TestNew(t *testing.T) {
	c8 := New()

	if c8.PC() != START_ADDRESS {
		t.Errorf("PC = 0x%03X, want 0x%03X", c8.PC(), START_ADDRESS)
	}
	if c8.StackPointer() != 0 || c8.Index() != 0 {
		t.Errorf("SP = %d, I = 0x%03X, want both zero", c8.StackPointer(), c8.Index())
	}
	for i, b := range fontset {
		got, err := c8.ReadMemory(FONTSET_START_ADDRESS + uint16(i))
		if err != nil {
			t.Fatalf("ReadMemory: %v", err)
		}
		if got != b {
			t.Fatalf("font byte %d = 0x%02X, want 0x%02X", i, got, b)
		}
	}
	for y := 0; y < VIDEO_HEIGHT; y++ {
		for x := 0; x < VIDEO_WIDTH; x++ {
			if c8.Display().Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) lit on a new machine", x, y)
			}
		}
	}
}

func TestLDByte(t *testing.T) {
	for x := 0; x < REGISTER_COUNT; x++ {
		for _, kk := range []byte{0x00, 0x01, 0x7F, 0x80, 0xFF} {
			c8 := New()
			loadProgram(t, c8, 0x6000|uint16(x)<<8|uint16(kk))
			step(t, c8, 1)

			if got := c8.Register(x); got != kk {
				t.Errorf("6%X%02X: V%X = 0x%02X, want 0x%02X", x, kk, x, got, kk)
			}
		}
	}
}

func TestADDByteWrapsWithoutFlag(t *testing.T) {
	c8 := New()
	c8.SetRegister(VF, 0x77)
	loadProgram(t, c8,
		0x60FA, // LD V0, 250
		0x700A, // ADD V0, 10
	)
	step(t, c8, 2)

	if got := c8.Register(0); got != 4 {
		t.Errorf("V0 = %d, want 4", got)
	}
	if got := c8.Register(VF); got != 0x77 {
		t.Errorf("VF = 0x%02X, want it untouched", got)
	}
}

func TestALU(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		x, y   int
		vx, vy byte
		want   byte
		wantVF byte
	}{
		{"LD", 0x8120, 1, 2, 0x12, 0x34, 0x34, 0},
		{"OR", 0x8121, 1, 2, 0xF0, 0x0F, 0xFF, 0},
		{"AND", 0x8122, 1, 2, 0xF3, 0x3F, 0x33, 0},
		{"XOR", 0x8123, 1, 2, 0xFF, 0x0F, 0xF0, 0},
		{"ADD carry", 0x8124, 1, 2, 200, 100, 44, 1},
		{"ADD no carry", 0x8124, 1, 2, 10, 5, 15, 0},
		{"ADD exactly 255", 0x8124, 1, 2, 200, 55, 255, 0},
		{"SUB no borrow", 0x8125, 1, 2, 10, 3, 7, 1},
		{"SUB borrow", 0x8125, 1, 2, 3, 10, 249, 0},
		{"SUB equal", 0x8125, 1, 2, 5, 5, 0, 0},
		{"SHR odd", 0x8126, 1, 2, 0x05, 0, 0x02, 1},
		{"SHR even", 0x8126, 1, 2, 0x04, 0, 0x02, 0},
		{"SUBN no borrow", 0x8127, 1, 2, 3, 10, 7, 1},
		{"SUBN borrow", 0x8127, 1, 2, 10, 3, 249, 0},
		{"SHL high bit", 0x812E, 1, 2, 0x81, 0, 0x02, 1},
		{"SHL no high bit", 0x812E, 1, 2, 0x41, 0, 0x82, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c8 := New()
			c8.SetRegister(tt.x, tt.vx)
			c8.SetRegister(tt.y, tt.vy)
			loadProgram(t, c8, tt.opcode)
			step(t, c8, 1)

			if got := c8.Register(tt.x); got != tt.want {
				t.Errorf("V%X = %d, want %d", tt.x, got, tt.want)
			}
			if tt.opcode&0xF >= 4 {
				if got := c8.Register(VF); got != tt.wantVF {
					t.Errorf("VF = %d, want %d", got, tt.wantVF)
				}
			}
		})
	}
}

// With VF as the destination the arithmetic result overwrites the flag.
func TestALUResultWinsOverFlag(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		vf, vy byte
		want   byte
	}{
		{"ADD", 0x8F14, 200, 100, 44},
		{"SUB", 0x8F15, 10, 3, 7},
		{"SHR", 0x8F06, 0x05, 0, 0x02},
		{"SUBN", 0x8F17, 3, 10, 7},
		{"SHL", 0x8F0E, 0x81, 0, 0x02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c8 := New()
			c8.SetRegister(VF, tt.vf)
			c8.SetRegister(1, tt.vy)
			loadProgram(t, c8, tt.opcode)
			step(t, c8, 1)

			if got := c8.Register(VF); got != tt.want {
				t.Errorf("VF = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		v0, v1 byte
		skip   bool
	}{
		{"SE byte equal", 0x3042, 0x42, 0, true},
		{"SE byte different", 0x3042, 0x41, 0, false},
		{"SNE byte equal", 0x4042, 0x42, 0, false},
		{"SNE byte different", 0x4042, 0x41, 0, true},
		{"SE reg equal", 0x5010, 7, 7, true},
		{"SE reg different", 0x5010, 7, 8, false},
		{"SNE reg equal", 0x9010, 7, 7, false},
		{"SNE reg different", 0x9010, 7, 8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c8 := New()
			c8.SetRegister(0, tt.v0)
			c8.SetRegister(1, tt.v1)
			loadProgram(t, c8, tt.opcode)
			step(t, c8, 1)

			want := START_ADDRESS + 2
			if tt.skip {
				want += 2
			}
			if c8.PC() != want {
				t.Errorf("PC = 0x%03X, want 0x%03X", c8.PC(), want)
			}
		})
	}
}

func TestJumps(t *testing.T) {
	c8 := New()
	loadProgram(t, c8, 0x1ABC)
	step(t, c8, 1)
	if c8.PC() != 0xABC {
		t.Errorf("JP: PC = 0x%03X, want 0xABC", c8.PC())
	}

	c8 = New()
	c8.SetRegister(0, 0x10)
	loadProgram(t, c8, 0xB300)
	step(t, c8, 1)
	if c8.PC() != 0x310 {
		t.Errorf("JP V0: PC = 0x%03X, want 0x310", c8.PC())
	}
}

func TestCallReturn(t *testing.T) {
	c8 := New()
	loadProgram(t, c8,
		0x2206, // 0x200: CALL 0x206
		0x6001, // 0x202: LD V0, 1
		0x0000, // 0x204
		0x00EE, // 0x206: RET
	)

	step(t, c8, 1)
	if c8.PC() != 0x206 || c8.StackPointer() != 1 {
		t.Fatalf("after CALL: PC = 0x%03X, SP = %d", c8.PC(), c8.StackPointer())
	}

	step(t, c8, 1)
	if c8.PC() != 0x202 || c8.StackPointer() != 0 {
		t.Fatalf("after RET: PC = 0x%03X, SP = %d, want 0x202 and 0", c8.PC(), c8.StackPointer())
	}

	step(t, c8, 1)
	if c8.Register(0) != 1 {
		t.Errorf("instruction after CALL did not run")
	}
}

func TestStackOverflow(t *testing.T) {
	c8 := New()
	loadProgram(t, c8, 0x2200) // calls itself forever

	step(t, c8, STACK_SIZE)
	if int(c8.StackPointer()) != STACK_SIZE {
		t.Fatalf("SP = %d, want %d", c8.StackPointer(), STACK_SIZE)
	}

	c8.delayTimer = 9
	dt := c8.DelayTimer()
	err := c8.Cycle()
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("err = %v, want ErrStackOverflow", err)
	}
	if c8.PC() != START_ADDRESS {
		t.Errorf("PC = 0x%03X, want it back on the failing CALL", c8.PC())
	}
	if int(c8.StackPointer()) != STACK_SIZE {
		t.Errorf("SP = %d, want %d", c8.StackPointer(), STACK_SIZE)
	}
	if c8.DelayTimer() != dt {
		t.Errorf("delay timer ticked on a failed cycle")
	}
}

func TestStackUnderflow(t *testing.T) {
	c8 := New()
	loadProgram(t, c8, 0x6007, 0x00EE)
	step(t, c8, 1)
	c8.soundTimer = 3

	err := c8.Cycle()
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("err = %v, want ErrStackUnderflow", err)
	}
	if c8.PC() != START_ADDRESS+2 {
		t.Errorf("PC = 0x%03X, want 0x%03X", c8.PC(), START_ADDRESS+2)
	}
	if c8.SoundTimer() != 3 {
		t.Errorf("sound timer = %d, want 3", c8.SoundTimer())
	}
	// The failed RET leaves no trace
	if c8.Opcode() != 0x6007 {
		t.Errorf("opcode = 0x%04X, want 0x6007 from the last completed cycle", c8.Opcode())
	}
	if recent := c8.Recent(); len(recent) != 1 || recent[0].Opcode != 0x6007 {
		t.Errorf("recent = %v", recent)
	}
}

func TestCLS(t *testing.T) {
	c8 := New()
	for y := 0; y < VIDEO_HEIGHT; y += 3 {
		for x := 0; x < VIDEO_WIDTH; x += 5 {
			c8.screen.toggle(x, y)
		}
	}
	loadProgram(t, c8, 0x00E0)
	step(t, c8, 1)

	for y := 0; y < VIDEO_HEIGHT; y++ {
		for x := 0; x < VIDEO_WIDTH; x++ {
			if c8.Display().Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) still lit after CLS", x, y)
			}
		}
	}
}

func TestDRWSelfCancels(t *testing.T) {
	c8 := New()
	c8.SetRegister(0, 10)
	c8.SetRegister(1, 4)
	loadProgram(t, c8,
		0xA050, // LD I, font "0"
		0xD015, // DRW V0, V1, 5
		0xD015, // DRW V0, V1, 5
	)

	step(t, c8, 2)
	if c8.Register(VF) != 0 {
		t.Errorf("first draw: VF = %d, want 0", c8.Register(VF))
	}
	// "0" is F0 90 90 90 F0
	lit := map[[2]int]bool{}
	for row, b := range fontset[:FONT_CHAR_SIZE] {
		for col := 0; col < 8; col++ {
			if b&(0x80>>col) != 0 {
				lit[[2]int{10 + col, 4 + row}] = true
			}
		}
	}
	for y := 0; y < VIDEO_HEIGHT; y++ {
		for x := 0; x < VIDEO_WIDTH; x++ {
			if got := c8.Display().Pixel(x, y); got != lit[[2]int{x, y}] {
				t.Fatalf("pixel (%d,%d) = %v after first draw", x, y, got)
			}
		}
	}

	step(t, c8, 1)
	if c8.Register(VF) != 1 {
		t.Errorf("second draw: VF = %d, want 1", c8.Register(VF))
	}
	for y := 0; y < VIDEO_HEIGHT; y++ {
		for x := 0; x < VIDEO_WIDTH; x++ {
			if c8.Display().Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) still lit after redraw", x, y)
			}
		}
	}
}

func TestDRWClipsAtEdges(t *testing.T) {
	c8 := New()
	c8.SetRegister(0, 60)
	c8.SetRegister(1, 30)
	loadProgram(t, c8,
		0xA050, // LD I, font "0"
		0xD015, // DRW V0, V1, 5
	)
	step(t, c8, 2)

	// Rows 30 and 31 of the glyph are F0 and 90; nothing wraps to the other side
	for _, p := range [][2]int{{60, 30}, {61, 30}, {62, 30}, {63, 30}, {60, 31}, {63, 31}} {
		if !c8.Display().Pixel(p[0], p[1]) {
			t.Errorf("pixel (%d,%d) should be lit", p[0], p[1])
		}
	}
	for y := 0; y < VIDEO_HEIGHT; y++ {
		for x := 0; x < 8; x++ {
			if c8.Display().Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) lit, sprite wrapped horizontally", x, y)
			}
		}
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < VIDEO_WIDTH; x++ {
			if c8.Display().Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) lit, sprite wrapped vertically", x, y)
			}
		}
	}
}

func TestDRWWrapsOrigin(t *testing.T) {
	c8 := New()
	c8.SetRegister(0, VIDEO_WIDTH+2)
	c8.SetRegister(1, VIDEO_HEIGHT+1)
	loadProgram(t, c8,
		0xA300, // LD I, 0x300
		0xD011, // DRW V0, V1, 1
	)
	c8.WriteMemory(0x300, 0x80)
	step(t, c8, 2)

	if !c8.Display().Pixel(2, 1) {
		t.Errorf("pixel (2,1) should be lit")
	}
}

func TestDRWOutOfRange(t *testing.T) {
	c8 := New()
	c8.SetRegister(VF, 0x55)
	loadProgram(t, c8,
		0xAFFE, // LD I, 0xFFE
		0xD005, // DRW V0, V0, 5
	)
	step(t, c8, 1)

	err := c8.Cycle()
	if !errors.Is(err, ErrAddressOutOfRange) {
		t.Fatalf("err = %v, want ErrAddressOutOfRange", err)
	}
	if c8.PC() != 0x202 {
		t.Errorf("PC = 0x%03X, want 0x202", c8.PC())
	}
	if c8.Register(VF) != 0x55 {
		t.Errorf("VF = 0x%02X, want it untouched", c8.Register(VF))
	}
	if c8.Display().String() != New().Display().String() {
		t.Errorf("screen changed by a failed draw")
	}
}

func TestKeySkips(t *testing.T) {
	c8 := New()
	c8.SetRegister(0, 0xA)
	c8.SetKey(0xA, true)
	loadProgram(t, c8,
		0xE09E, // 0x200: SKP V0 -> skips
		0x0000, // 0x202
		0xE0A1, // 0x204: SKNP V0 -> no skip
	)

	step(t, c8, 1)
	if c8.PC() != 0x204 {
		t.Fatalf("SKP: PC = 0x%03X, want 0x204", c8.PC())
	}
	step(t, c8, 1)
	if c8.PC() != 0x206 {
		t.Fatalf("SKNP: PC = 0x%03X, want 0x206", c8.PC())
	}
}

func TestKeyOutOfRange(t *testing.T) {
	for _, opcode := range []uint16{0xE09E, 0xE0A1} {
		c8 := New()
		c8.SetRegister(0, 0x10)
		loadProgram(t, c8, opcode)

		err := c8.Cycle()
		if !errors.Is(err, ErrKeyOutOfRange) {
			t.Errorf("%04X: err = %v, want ErrKeyOutOfRange", opcode, err)
		}
		if c8.PC() != START_ADDRESS {
			t.Errorf("%04X: PC = 0x%03X, want 0x%03X", opcode, c8.PC(), START_ADDRESS)
		}
	}
}

func TestWaitForKey(t *testing.T) {
	c8 := New()
	loadProgram(t, c8, 0xF50A) // LD V5, K

	step(t, c8, 3)
	if c8.PC() != START_ADDRESS {
		t.Fatalf("PC = 0x%03X, want it parked on LD V5, K", c8.PC())
	}

	c8.SetKey(0x3, true)
	c8.SetKey(0x9, true)
	step(t, c8, 1)
	if c8.PC() != 0x202 {
		t.Fatalf("PC = 0x%03X, want 0x202", c8.PC())
	}
	if got := c8.Register(5); got != 0x9 {
		t.Errorf("V5 = 0x%X, want the highest held key 0x9", got)
	}
}

func TestSetKeypad(t *testing.T) {
	c8 := New()
	var keys [KEY_COUNT]bool
	keys[0xF] = true
	c8.SetKeypad(keys)

	if !c8.Keypad()[0xF] {
		t.Errorf("key F not held")
	}

	c8.SetKey(KEY_COUNT, true)
	c8.SetKey(-1, true)
	if c8.Keypad() != keys {
		t.Errorf("out of range SetKey changed the keypad")
	}
}

func TestTimers(t *testing.T) {
	c8 := New()
	c8.SetRegister(0, 3)
	loadProgram(t, c8,
		0xF015, // LD DT, V0
		0xF018, // LD ST, V0
		0xF107, // LD V1, DT
	)

	step(t, c8, 1)
	if c8.DelayTimer() != 2 {
		t.Errorf("delay timer = %d, want 2", c8.DelayTimer())
	}
	step(t, c8, 1)
	if c8.DelayTimer() != 1 || c8.SoundTimer() != 2 {
		t.Errorf("timers = %d/%d, want 1/2", c8.DelayTimer(), c8.SoundTimer())
	}
	step(t, c8, 1)
	if c8.Register(1) != 1 {
		t.Errorf("V1 = %d, want 1", c8.Register(1))
	}
	if c8.DelayTimer() != 0 {
		t.Errorf("delay timer = %d, want 0", c8.DelayTimer())
	}

	// Zero stays zero
	loadProgram(t, c8, 0x1200)
	step(t, c8, 5)
	if c8.DelayTimer() != 0 || c8.SoundTimer() != 0 {
		t.Errorf("timers went below zero: %d/%d", c8.DelayTimer(), c8.SoundTimer())
	}
}

func TestIndexOps(t *testing.T) {
	c8 := New()
	c8.SetRegister(0, 0x20)
	c8.SetRegister(1, 0xA)
	loadProgram(t, c8,
		0xA123, // LD I, 0x123
		0xF01E, // ADD I, V0
		0xF129, // LD F, V1
	)

	step(t, c8, 1)
	if c8.Index() != 0x123 {
		t.Errorf("LD I: I = 0x%03X, want 0x123", c8.Index())
	}
	step(t, c8, 1)
	if c8.Index() != 0x143 {
		t.Errorf("ADD I: I = 0x%03X, want 0x143", c8.Index())
	}
	step(t, c8, 1)
	if want := FONTSET_START_ADDRESS + 0xA*FONT_CHAR_SIZE; c8.Index() != want {
		t.Errorf("LD F: I = 0x%03X, want 0x%03X", c8.Index(), want)
	}
}

func TestADDIOutOfRange(t *testing.T) {
	c8 := New()
	c8.SetRegister(2, 0x10)
	c8.SetRegister(VF, 0x55)
	loadProgram(t, c8,
		0xAFEF, // LD I, 0xFEF
		0xF21E, // ADD I, V2: 0xFFF, still addressable
		0xF21E, // ADD I, V2: 0x100F
	)
	step(t, c8, 2)
	if c8.Index() != 0xFFF {
		t.Fatalf("I = 0x%03X, want 0xFFF", c8.Index())
	}

	err := c8.Cycle()
	if !errors.Is(err, ErrAddressOutOfRange) {
		t.Fatalf("err = %v, want ErrAddressOutOfRange", err)
	}
	if c8.Index() != 0xFFF {
		t.Errorf("I = 0x%03X after a failed ADD, want 0xFFF", c8.Index())
	}
	if c8.PC() != START_ADDRESS+4 {
		t.Errorf("PC = 0x%03X, want 0x%03X", c8.PC(), START_ADDRESS+4)
	}
	if c8.Register(VF) != 0x55 {
		t.Errorf("VF = 0x%02X, want it untouched", c8.Register(VF))
	}
}

func TestBCD(t *testing.T) {
	c8 := New()
	c8.SetRegister(7, 234)
	loadProgram(t, c8,
		0xA300, // LD I, 0x300
		0xF733, // LD B, V7
	)
	step(t, c8, 2)

	for i, want := range []byte{2, 3, 4} {
		got, _ := c8.ReadMemory(0x300 + uint16(i))
		if got != want {
			t.Errorf("memory[I+%d] = %d, want %d", i, got, want)
		}
	}
}

func TestStoreLoadRegisters(t *testing.T) {
	c8 := New()
	want := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	for i, v := range want {
		c8.SetRegister(i, v)
	}
	c8.SetRegister(6, 0x77)

	loadProgram(t, c8,
		0xA400, // LD I, 0x400
		0xF555, // LD [I], V5
	)
	step(t, c8, 2)

	if got, _ := c8.ReadMemory(0x406); got != 0 {
		t.Errorf("memory[I+6] = 0x%02X, V6 should not be stored", got)
	}
	if c8.Index() != 0x400 {
		t.Errorf("I = 0x%03X, want it unchanged", c8.Index())
	}

	for i := 0; i < REGISTER_COUNT; i++ {
		c8.SetRegister(i, 0)
	}
	c8.WriteMemory(0x200, 0xF5)
	c8.WriteMemory(0x201, 0x65) // LD V5, [I]
	c8.programCounter = 0x200
	step(t, c8, 1)

	for i, v := range want {
		if got := c8.Register(i); got != v {
			t.Errorf("V%X = 0x%02X, want 0x%02X", i, got, v)
		}
	}
	if c8.Register(6) != 0 {
		t.Errorf("V6 = 0x%02X, want 0", c8.Register(6))
	}
}

func TestStoreRegistersOutOfRange(t *testing.T) {
	c8 := New()
	c8.SetRegister(0, 0xAA)
	loadProgram(t, c8,
		0xAFFC, // LD I, 0xFFC
		0xF555, // LD [I], V5
	)
	step(t, c8, 1)

	if err := c8.Cycle(); !errors.Is(err, ErrAddressOutOfRange) {
		t.Fatalf("err = %v, want ErrAddressOutOfRange", err)
	}
	for addr := uint16(0xFFC); addr <= 0xFFF; addr++ {
		if got, _ := c8.ReadMemory(addr); got != 0 {
			t.Errorf("memory[0x%03X] = 0x%02X, want nothing written", addr, got)
		}
	}

	// Exactly the last four bytes is fine
	c8.WriteMemory(0x202, 0xF3)
	c8.WriteMemory(0x203, 0x55)
	c8.programCounter = 0x202
	step(t, c8, 1)
	if got, _ := c8.ReadMemory(0xFFC); got != 0xAA {
		t.Errorf("memory[0xFFC] = 0x%02X, want 0xAA", got)
	}
}

func TestRandomIsMasked(t *testing.T) {
	const seed = 42
	c8 := New(WithRand(rand.New(rand.NewPCG(seed, seed))))
	loadProgram(t, c8, 0xC00F, 0xC1F0, 0xC200)
	step(t, c8, 3)

	r := rand.New(rand.NewPCG(seed, seed))
	want0 := byte(r.IntN(256)) & 0x0F
	want1 := byte(r.IntN(256)) & 0xF0
	if c8.Register(0) != want0 || c8.Register(1) != want1 {
		t.Errorf("V0, V1 = 0x%02X, 0x%02X, want 0x%02X, 0x%02X", c8.Register(0), c8.Register(1), want0, want1)
	}
	if c8.Register(2) != 0 {
		t.Errorf("V2 = 0x%02X, want 0 with a zero mask", c8.Register(2))
	}
}

func TestUnknownOpcodeIsNoop(t *testing.T) {
	c8 := New()
	for i := 0; i < REGISTER_COUNT; i++ {
		c8.SetRegister(i, byte(i*3))
	}
	loadProgram(t, c8, 0x5551)
	// LoadROM resets I, so these go in after it
	c8.indexRegister = 0x345
	c8.screen.toggle(1, 1)

	registers, memory, screen := c8.registers, c8.memory, c8.screen
	if err := c8.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	if c8.PC() != START_ADDRESS+2 {
		t.Errorf("PC = 0x%03X, want 0x%03X", c8.PC(), START_ADDRESS+2)
	}
	if c8.registers != registers || c8.memory != memory || c8.screen != screen {
		t.Errorf("unknown opcode changed machine state")
	}
	if c8.Index() != 0x345 || c8.StackPointer() != 0 {
		t.Errorf("unknown opcode changed I or SP")
	}
	if !c8.Display().Pixel(1, 1) {
		t.Errorf("unknown opcode cleared the screen")
	}
	if c8.Opcode() != 0x5551 {
		t.Errorf("opcode = 0x%04X, want 0x5551", c8.Opcode())
	}
}

func TestFetchOutOfRange(t *testing.T) {
	c8 := New()
	loadProgram(t, c8, 0x1FFF) // JP 0xFFF
	step(t, c8, 1)

	err := c8.Cycle()
	if !errors.Is(err, ErrAddressOutOfRange) {
		t.Fatalf("err = %v, want ErrAddressOutOfRange", err)
	}
	if c8.PC() != 0xFFF {
		t.Errorf("PC = 0x%03X, want 0xFFF", c8.PC())
	}
}

func TestLoadROM(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		c8 := New()
		loadProgram(t, c8, 0x1234)
		step(t, c8, 1)

		if err := c8.LoadROM(nil); err != nil {
			t.Fatalf("LoadROM: %v", err)
		}
		if c8.PC() != START_ADDRESS {
			t.Errorf("PC = 0x%03X, want 0x%03X", c8.PC(), START_ADDRESS)
		}
		if got, _ := c8.ReadMemory(START_ADDRESS); got != 0 {
			t.Errorf("previous program still in memory")
		}
	})

	t.Run("largest", func(t *testing.T) {
		c8 := New()
		rom := make([]byte, MEMORY_SIZE-int(START_ADDRESS))
		rom[len(rom)-1] = 0xAB
		if err := c8.LoadROM(rom); err != nil {
			t.Fatalf("LoadROM: %v", err)
		}
		if got, _ := c8.ReadMemory(0xFFF); got != 0xAB {
			t.Errorf("memory[0xFFF] = 0x%02X, want 0xAB", got)
		}
	})

	t.Run("too large", func(t *testing.T) {
		c8 := New()
		rom := make([]byte, MEMORY_SIZE-int(START_ADDRESS)+1)
		rom[0] = 0xFF
		if err := c8.LoadROM(rom); !errors.Is(err, ErrROMTooLarge) {
			t.Fatalf("err = %v, want ErrROMTooLarge", err)
		}
		if got, _ := c8.ReadMemory(START_ADDRESS); got != 0 {
			t.Errorf("part of an oversized ROM was copied")
		}
	})

	t.Run("keeps font", func(t *testing.T) {
		c8 := New()
		loadProgram(t, c8, 0x00E0)
		if got, _ := c8.ReadMemory(FONTSET_START_ADDRESS); got != fontset[0] {
			t.Errorf("font overwritten by LoadROM")
		}
	})
}

func TestLoadROMFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "test.ch8")
	if err := os.WriteFile(path, []byte{0x60, 0x2A}, 0o644); err != nil {
		t.Fatal(err)
	}

	c8 := New()
	if err := c8.LoadROMFile(path); err != nil {
		t.Fatalf("LoadROMFile: %v", err)
	}
	step(t, c8, 1)
	if c8.Register(0) != 0x2A {
		t.Errorf("V0 = 0x%02X, want 0x2A", c8.Register(0))
	}

	if err := c8.LoadROMFile(filepath.Join(dir, "missing.ch8")); err != nil {
		t.Errorf("missing file: err = %v, want nil", err)
	}
	if c8.PC() != START_ADDRESS {
		t.Errorf("PC = 0x%03X, want a reset machine", c8.PC())
	}
	if got, _ := c8.ReadMemory(START_ADDRESS); got != 0 {
		t.Errorf("program area not cleared after a failed read")
	}

	big := filepath.Join(dir, "big.ch8")
	if err := os.WriteFile(big, make([]byte, MEMORY_SIZE), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c8.LoadROMFile(big); !errors.Is(err, ErrROMTooLarge) {
		t.Errorf("err = %v, want ErrROMTooLarge", err)
	}
}

func TestReset(t *testing.T) {
	c8 := New()
	c8.SetRegister(3, 9)
	loadProgram(t, c8, 0x2300, 0x0000)
	c8.WriteMemory(0x300, 0xA5)
	c8.WriteMemory(0x301, 0x55)
	step(t, c8, 2) // CALL 0x300, LD I, 0x555
	c8.delayTimer = 4

	c8.Reset()

	if c8.PC() != START_ADDRESS || c8.Index() != 0 || c8.StackPointer() != 0 || c8.DelayTimer() != 0 {
		t.Errorf("Reset left PC=0x%03X I=0x%03X SP=%d DT=%d", c8.PC(), c8.Index(), c8.StackPointer(), c8.DelayTimer())
	}
	if c8.Register(3) != 9 {
		t.Errorf("Reset cleared registers")
	}
}

func TestMemoryAccessors(t *testing.T) {
	c8 := New()

	if err := c8.WriteMemory(0xFFF, 1); err != nil {
		t.Errorf("WriteMemory(0xFFF): %v", err)
	}
	if err := c8.WriteMemory(0x1000, 1); !errors.Is(err, ErrAddressOutOfRange) {
		t.Errorf("WriteMemory(0x1000): err = %v", err)
	}
	if _, err := c8.ReadMemory(0x1000); !errors.Is(err, ErrAddressOutOfRange) {
		t.Errorf("ReadMemory(0x1000): err = %v", err)
	}
}
