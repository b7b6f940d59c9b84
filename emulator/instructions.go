package emulator

import "fmt"

/*
INSTRUCTIONS IMPLEMENTATION

The following section is a set of all instruction operations allowed to us in Chip8.
See this documentation for more details:
https://github.com/mattmikolay/chip-8/wiki/Mastering-CHIP%E2%80%908
https://github.com/mattmikolay/chip-8/wiki/CHIP%E2%80%908-Instruction-Set

Every handler runs after the PC has already been advanced past its own opcode.
Handlers that can fail check everything up front and return before touching any state.
*/

/*
00E0: CLS
Clear the display
*/
func (c8 *Chip8) op00E0() {
	c8.screen.Reset()
}

/*
00EE: RET
Return from a subroutine
*/
func (c8 *Chip8) op00EE() error {
	if c8.stackPointer == 0 {
		return ErrStackUnderflow
	}

	c8.stackPointer -= 1
	c8.programCounter = c8.stack[c8.stackPointer]
	return nil
}

/*
1nnn: JP addr
Jump to location nnn.
A jump doesn't remember its origin, so no stack interaction required.
*/
func (c8 *Chip8) op1nnn(ins Instruction) {
	c8.programCounter = ins.NNN
}

/*
2nnn - CALL addr
Call subroutine at nnn.
The PC pushed is the already-incremented one, so RET lands on the instruction after the CALL.
*/
func (c8 *Chip8) op2nnn(ins Instruction) error {
	if int(c8.stackPointer) >= STACK_SIZE {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, c8.stackPointer)
	}

	c8.stack[c8.stackPointer] = c8.programCounter
	c8.stackPointer += 1
	c8.programCounter = ins.NNN
	return nil
}

/*
3xkk - SE Vx, byte
Skip next instruction if Vx = kk.
Since our PC has already been incremented by 2 in Cycle(), we can just increment by 2 again to skip the next instruction.
*/
func (c8 *Chip8) op3xkk(ins Instruction) {
	if c8.registers[ins.X] == ins.KK {
		c8.programCounter += 2
	}
}

/*
4xkk - SNE Vx, byte
Skip next instruction if Vx != kk.
*/
func (c8 *Chip8) op4xkk(ins Instruction) {
	if c8.registers[ins.X] != ins.KK {
		c8.programCounter += 2
	}
}

/*
5xy0 - SE Vx, Vy
Skip next instruction if Vx = Vy.
*/
func (c8 *Chip8) op5xy0(ins Instruction) {
	if c8.registers[ins.X] == c8.registers[ins.Y] {
		c8.programCounter += 2
	}
}

/*
6xkk - LD Vx, byte
Set Vx = kk.
*/
func (c8 *Chip8) op6xkk(ins Instruction) {
	c8.registers[ins.X] = ins.KK
}

/*
7xkk - ADD Vx, byte
Set Vx = Vx + kk.
Wraps around without touching VF.
*/
func (c8 *Chip8) op7xkk(ins Instruction) {
	c8.registers[ins.X] += ins.KK
}

/*
8xy0 - LD Vx, Vy
Set Vx = Vy.
*/
func (c8 *Chip8) op8xy0(ins Instruction) {
	c8.registers[ins.X] = c8.registers[ins.Y]
}

/*
8xy1 - OR Vx, Vy
Set Vx = Vx OR Vy.
*/
func (c8 *Chip8) op8xy1(ins Instruction) {
	c8.registers[ins.X] |= c8.registers[ins.Y]
}

/*
8xy2 - AND Vx, Vy
Set Vx = Vx AND Vy.
*/
func (c8 *Chip8) op8xy2(ins Instruction) {
	c8.registers[ins.X] &= c8.registers[ins.Y]
}

/*
8xy3 - XOR Vx, Vy
Set Vx = Vx XOR Vy.
*/
func (c8 *Chip8) op8xy3(ins Instruction) {
	c8.registers[ins.X] ^= c8.registers[ins.Y]
}

/*
The flag-setting ALU instructions below all follow the same order:
read both operands, write VF, then write Vx. The flag comes from the operands as they were before the
instruction, and when x is F the result is what ends up in VF.
*/

/*
8xy4 - ADD Vx, Vy
Set Vx = Vx + Vy, set VF = carry.
If the result is greater than 8 bits (i.e., > 255,) VF is set to 1, otherwise 0. Only the lowest 8 bits of the result are kept.
*/
func (c8 *Chip8) op8xy4(ins Instruction) {
	sum := uint16(c8.registers[ins.X]) + uint16(c8.registers[ins.Y])

	c8.registers[VF] = boolToByte(sum > 0xFF)
	c8.registers[ins.X] = byte(sum & 0xFF)
}

/*
8xy5 - SUB Vx, Vy
Set Vx = Vx - Vy, set VF = NOT borrow.
If Vx > Vy, then VF is set to 1, otherwise 0.
*/
func (c8 *Chip8) op8xy5(ins Instruction) {
	vx, vy := c8.registers[ins.X], c8.registers[ins.Y]

	c8.registers[VF] = boolToByte(vx > vy)
	c8.registers[ins.X] = vx - vy
}

/*
8xy6 - SHR Vx
Set Vx = Vx SHR 1.
The least significant bit is saved in VF, then Vx is divided by 2.
*/
func (c8 *Chip8) op8xy6(ins Instruction) {
	vx := c8.registers[ins.X]

	c8.registers[VF] = vx & 0x1
	c8.registers[ins.X] = vx >> 1
}

/*
8xy7 - SUBN Vx, Vy
Set Vx = Vy - Vx, set VF = NOT borrow.
If Vy > Vx, then VF is set to 1, otherwise 0.
*/
func (c8 *Chip8) op8xy7(ins Instruction) {
	vx, vy := c8.registers[ins.X], c8.registers[ins.Y]

	c8.registers[VF] = boolToByte(vy > vx)
	c8.registers[ins.X] = vy - vx
}

/*
8xyE - SHL Vx {, Vy}
Set Vx = Vx SHL 1.
The most significant bit is saved in VF, then Vx is multiplied by 2.
*/
func (c8 *Chip8) op8xyE(ins Instruction) {
	vx := c8.registers[ins.X]

	c8.registers[VF] = (vx & 0x80) >> 7
	c8.registers[ins.X] = vx << 1
}

/*
9xy0 - SNE Vx, Vy
Skip next instruction if Vx != Vy.
*/
func (c8 *Chip8) op9xy0(ins Instruction) {
	if c8.registers[ins.X] != c8.registers[ins.Y] {
		c8.programCounter += 2
	}
}

/*
Annn - LD I, addr
Set I = nnn.
*/
func (c8 *Chip8) opAnnn(ins Instruction) {
	c8.indexRegister = ins.NNN
}

/*
Bnnn - JP V0, addr
Jump to location nnn + V0.
The target can land past 0xFFF; the next fetch reports it.
*/
func (c8 *Chip8) opBnnn(ins Instruction) {
	c8.programCounter = uint16(c8.registers[0]) + ins.NNN
}

/*
Cxkk - RND Vx, byte
Set Vx = random byte AND kk.
*/
func (c8 *Chip8) opCxkk(ins Instruction) {
	c8.registers[ins.X] = c8.randomByte() & ins.KK
}

/*
Dxyn - DRW Vx, Vy, nibble
Display n-byte sprite starting at memory location I at (Vx, Vy), set VF = collision.
Only the origin wraps around the screen. Sprite pixels that would fall past the right or bottom edge are clipped.
We iterate over the sprite, row by row and column by column. There are eight columns because a sprite is always eight pixels wide.
If a sprite pixel is on and the screen pixel underneath is on too, that's a collision and VF is set.
The screen pixel is then XORed with 0xFFFFFFFF, since screen pixels are full words and sprite pixels are single bits.
*/
func (c8 *Chip8) opDxyn(ins Instruction) error {
	height := int(ins.N)
	if err := checkRange(c8.indexRegister, height); err != nil {
		return err
	}

	xPos := int(c8.registers[ins.X]) % VIDEO_WIDTH
	yPos := int(c8.registers[ins.Y]) % VIDEO_HEIGHT

	c8.registers[VF] = 0
	for row := 0; row < height; row++ {
		y := yPos + row
		if y >= VIDEO_HEIGHT {
			break
		}

		spriteByte := c8.memory[int(c8.indexRegister)+row]
		for col := 0; col < 8; col++ {
			x := xPos + col
			if x >= VIDEO_WIDTH {
				break
			}

			if spriteByte&(0x80>>col) != 0 && c8.screen.toggle(x, y) {
				c8.registers[VF] = 1
			}
		}
	}

	return nil
}

/*
Ex9E - SKP Vx
Skip next instruction if key with the value of Vx is pressed.
*/
func (c8 *Chip8) opEx9E(ins Instruction) error {
	key := c8.registers[ins.X]
	if int(key) >= KEY_COUNT {
		return fmt.Errorf("%w: V%X=0x%02X", ErrKeyOutOfRange, ins.X, key)
	}

	if c8.keypad[key] {
		c8.programCounter += 2
	}
	return nil
}

/*
ExA1 - SKNP Vx
Skip next instruction if key with the value of Vx is not pressed.
*/
func (c8 *Chip8) opExA1(ins Instruction) error {
	key := c8.registers[ins.X]
	if int(key) >= KEY_COUNT {
		return fmt.Errorf("%w: V%X=0x%02X", ErrKeyOutOfRange, ins.X, key)
	}

	if !c8.keypad[key] {
		c8.programCounter += 2
	}
	return nil
}

/*
Fx07 - LD Vx, DT
Set Vx = delay timer value.
*/
func (c8 *Chip8) opFx07(ins Instruction) {
	c8.registers[ins.X] = c8.delayTimer
}

/*
Fx0A - LD Vx, K
Wait for a key press, store the value of the key in Vx.
The easiest way to "wait" is to decrement the PC by 2 whenever a keypad value is not detected.
This has the effect of running the same instruction repeatedly.
Every key is scanned, so when several are held the highest one wins.
*/
func (c8 *Chip8) opFx0A(ins Instruction) {
	pressed := false
	for k, held := range c8.keypad {
		if held {
			c8.registers[ins.X] = byte(k)
			pressed = true
		}
	}

	if !pressed {
		c8.programCounter -= 2
	}
}

/*
Fx15 - LD DT, Vx
Set delay timer = Vx.
*/
func (c8 *Chip8) opFx15(ins Instruction) {
	c8.delayTimer = c8.registers[ins.X]
}

/*
Fx18 - LD ST, Vx
Set sound timer = Vx.
*/
func (c8 *Chip8) opFx18(ins Instruction) {
	c8.soundTimer = c8.registers[ins.X]
}

/*
Fx1E - ADD I, Vx
Set I = I + Vx.
VF is not touched. A sum past the end of memory is an error and I keeps its old value.
*/
func (c8 *Chip8) opFx1E(ins Instruction) error {
	sum := c8.indexRegister + uint16(c8.registers[ins.X])
	if sum >= MEMORY_SIZE {
		return fmt.Errorf("%w: I=0x%03X + V%X=0x%02X", ErrAddressOutOfRange, c8.indexRegister, ins.X, c8.registers[ins.X])
	}
	c8.indexRegister = sum
	return nil
}

/*
Fx29 - LD F, Vx
Set I = location of sprite for digit Vx.
The font characters are located at 0x50 and are five bytes each, so the address of any character is an offset from there.
*/
func (c8 *Chip8) opFx29(ins Instruction) {
	digit := uint16(c8.registers[ins.X])
	c8.indexRegister = FONTSET_START_ADDRESS + FONT_CHAR_SIZE*digit
}

/*
Fx33 - LD B, Vx
Store BCD representation of Vx in memory locations I, I+1, and I+2.
The hundreds digit goes at I, the tens digit at I+1, and the ones digit at I+2.
*/
func (c8 *Chip8) opFx33(ins Instruction) error {
	if err := checkRange(c8.indexRegister, 3); err != nil {
		return err
	}

	value := c8.registers[ins.X]
	i := c8.indexRegister

	// Ones-place
	c8.memory[i+2] = value % 10
	value /= 10

	// Tens-place
	c8.memory[i+1] = value % 10
	value /= 10

	// Hundreds-place
	c8.memory[i] = value % 10
	return nil
}

/*
Fx55 - LD [I], Vx
Store registers V0 through Vx in memory starting at location I.
I is left unchanged.
*/
func (c8 *Chip8) opFx55(ins Instruction) error {
	n := int(ins.X) + 1
	if err := checkRange(c8.indexRegister, n); err != nil {
		return err
	}

	copy(c8.memory[c8.indexRegister:int(c8.indexRegister)+n], c8.registers[:n])
	return nil
}

/*
Fx65 - LD Vx, [I]
Read registers V0 through Vx from memory starting at location I.
*/
func (c8 *Chip8) opFx65(ins Instruction) error {
	n := int(ins.X) + 1
	if err := checkRange(c8.indexRegister, n); err != nil {
		return err
	}

	copy(c8.registers[:n], c8.memory[c8.indexRegister:int(c8.indexRegister)+n])
	return nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
