// Package config handles the chip8.toml emulator configuration.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("chip8.config")

// DefaultPath is looked up in the working directory when no -config flag is given.
const DefaultPath = "chip8.toml"

// Config represents a chip8.toml file.
type Config struct {
	Emulator   Emulator   `toml:"emulator"`
	Display    Display    `toml:"display"`
	Input      Input      `toml:"input"`
	Log        Log        `toml:"log"`
	Screenshot Screenshot `toml:"screenshot"`
}

// Bounds and steps for changing the cycle delay at runtime with [ and ]
const (
	MaxCycleDelay    = 500 * time.Millisecond
	FasterCycleDelay = -10 * time.Millisecond
	SlowerCycleDelay = 20 * time.Millisecond
)

// AdjustCycleDelay adds step to d and clamps the result to [0, MaxCycleDelay].
func AdjustCycleDelay(d, step time.Duration) time.Duration {
	return min(max(d+step, 0), MaxCycleDelay)
}

// Emulator configures the machine and its clock.
type Emulator struct {
	// Time between two cycles, e.g. "1ms"
	CycleDelay time.Duration `toml:"cycle_delay"`

	// Seed for RND. Zero picks a random seed at startup
	Seed uint64 `toml:"seed"`
}

// Display configures the SDL window.
type Display struct {
	Title      string `toml:"title"`
	Scale      int    `toml:"scale"`
	Foreground Color  `toml:"foreground"`
	Background Color  `toml:"background"`
}

// Input maps the 16 keypad keys, 0x0 through 0xF, to SDL key names.
type Input struct {
	Keys []string `toml:"keys"`
}

// Log configures commonlog. Verbosity 0 logs notices, 1 info, 2 and above debug.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Screenshot configures where F12 writes BMP files.
type Screenshot struct {
	Dir string `toml:"dir"`
}

// Color is an RGBA color written as "#RRGGBB" or "#RRGGBBAA".
type Color color.RGBA

// UnmarshalText implements encoding.TextUnmarshaler, which toml uses for string values.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "#")

	var r, g, b, a uint8 = 0, 0, 0, 0xFF
	var err error
	switch len(s) {
	case 6:
		_, err = fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b)
	case 8:
		_, err = fmt.Sscanf(s, "%02x%02x%02x%02x", &r, &g, &b, &a)
	default:
		err = errors.New("expected #RRGGBB or #RRGGBBAA")
	}
	if err != nil {
		return fmt.Errorf("invalid color %q: %w", string(text), err)
	}

	*c = Color{R: r, G: g, B: b, A: a}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	if c.A == 0xFF {
		return []byte(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)), nil
	}
	return []byte(fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)), nil
}

// RGBA returns the color as the image/color type.
func (c Color) RGBA() color.RGBA {
	return color.RGBA(c)
}

/*
Key Mappings:
Keypad       Keyboard
+-+-+-+-+    +-+-+-+-+
|1|2|3|C|    |1|2|3|4|
+-+-+-+-+    +-+-+-+-+
|4|5|6|D|    |Q|W|E|R|
+-+-+-+-+ => +-+-+-+-+
|7|8|9|E|    |A|S|D|F|
+-+-+-+-+    +-+-+-+-+
|A|0|B|F|    |Z|X|C|V|
+-+-+-+-+    +-+-+-+-+
*/
var defaultKeys = []string{
	"X", "1", "2", "3",
	"Q", "W", "E", "A",
	"S", "D", "Z", "C",
	"4", "R", "F", "V",
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Emulator: Emulator{
			CycleDelay: time.Millisecond,
		},
		Display: Display{
			Title:      "CHIP-8",
			Scale:      10,
			Foreground: Color{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
			Background: Color{A: 0xFF},
		},
		Input: Input{
			Keys: append([]string(nil), defaultKeys...),
		},
		Screenshot: Screenshot{
			Dir: ".",
		},
	}
}

// Load parses a chip8.toml file on top of the defaults.
// A missing file is not an error: the defaults are returned as they are.
func Load(path string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Infof("no config at %s, using defaults", path)
			return Default(), nil
		}

		var perr toml.ParseError
		if errors.As(err, &perr) {
			if log.AllowLevel(commonlog.Debug) {
				log.Debugf("%s", perr.ErrorWithUsage())
			}
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	for _, key := range md.Undecoded() {
		log.Warningf("%s: unknown key %s", path, key.String())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Infof("loaded config from %s", path)
	return cfg, nil
}

// Validate checks values a TOML type check cannot.
func (c *Config) Validate() error {
	var errs []error

	if c.Emulator.CycleDelay < 0 || c.Emulator.CycleDelay > MaxCycleDelay {
		errs = append(errs, fmt.Errorf("emulator.cycle_delay must be between 0 and %s, got %s", MaxCycleDelay, c.Emulator.CycleDelay))
	}

	if c.Display.Scale < 1 || c.Display.Scale > 64 {
		errs = append(errs, fmt.Errorf("display.scale must be between 1 and 64, got %d", c.Display.Scale))
	}

	if len(c.Input.Keys) != 16 {
		errs = append(errs, fmt.Errorf("input.keys must name 16 keys, got %d", len(c.Input.Keys)))
	} else {
		seen := make(map[string]int, len(c.Input.Keys))
		for i, name := range c.Input.Keys {
			if name == "" {
				errs = append(errs, fmt.Errorf("input.keys[%X] is empty", i))
				continue
			}
			folded := strings.ToUpper(name)
			if prev, ok := seen[folded]; ok {
				errs = append(errs, fmt.Errorf("input.keys[%X] repeats %q from input.keys[%X]", i, name, prev))
				continue
			}
			seen[folded] = i
		}
	}

	return errors.Join(errs...)
}

