package emulator

import "errors"

var (
	// ErrAddressOutOfRange is returned when an instruction or the fetch stage touches memory outside 0x000-0xFFF.
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrStackOverflow is returned by CALL when all 16 stack levels are in use.
	ErrStackOverflow = errors.New("stack overflow")

	// ErrStackUnderflow is returned by RET when there is nothing to return to.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrKeyOutOfRange is returned by SKP/SKNP when Vx does not name one of the 16 keys.
	ErrKeyOutOfRange = errors.New("key out of range")

	// ErrROMTooLarge is returned when a ROM does not fit between START_ADDRESS and the end of memory.
	ErrROMTooLarge = errors.New("rom too large")
)
