package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/adrichey/chip8vm/config"
	"github.com/adrichey/chip8vm/emulator"
	"github.com/adrichey/chip8vm/library"
	"github.com/adrichey/chip8vm/platform"
	"github.com/faiface/mainthread"
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("chip8")

// Appended to the window title while the sound timer is running
const BELL_MARKER = " ♪"

// How often the window title picks up the machine status
const TITLE_INTERVAL = 250 * time.Millisecond

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to a chip8.toml file")
	verbosity := flag.Int("v", 0, "log verbosity: 0 notices, 1 info, 2 debug (per-instruction trace)")
	delay := flag.Duration("delay", 0, "time between cycles, overrides emulator.cycle_delay")
	scale := flag.Int("scale", 0, "window scale, overrides display.scale")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <rom file or directory>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Unbuffered so nothing is lost on os.Exit
	backend := simple.NewBackend()
	backend.Buffered = false
	commonlog.SetBackend(backend)
	commonlog.Configure(*verbosity, nil)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Critical(err.Error())
		os.Exit(1)
	}

	// Flags win over the file, but only the ones actually given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "delay":
			cfg.Emulator.CycleDelay = *delay
		case "scale":
			cfg.Display.Scale = *scale
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Critical(err.Error())
		os.Exit(1)
	}
	commonlog.Initialize(cfg.Log.Verbosity, cfg.Log.File)

	code := 0
	mainthread.Run(func() {
		code = run(cfg, flag.Arg(0))
	})
	os.Exit(code)
}

// run drives the machine until the window is closed or an instruction fails.
// SDL is only touched through mainthread.
func run(cfg *config.Config, romPath string) int {
	seed := cfg.Emulator.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	log.Infof("RND seed %d", seed)

	roms, err := library.Open(romPath)
	if err != nil {
		log.Critical(err.Error())
		return 1
	}

	c8 := emulator.New(emulator.WithRand(rand.New(rand.NewPCG(seed, seed))))
	if err := c8.LoadROMFile(roms.Current()); err != nil {
		log.Critical(err.Error())
		return 1
	}

	var p *platform.Platform
	if err := mainthread.CallErr(func() error {
		var err error
		p, err = platform.New(cfg)
		return err
	}); err != nil {
		log.Critical(err.Error())
		return 1
	}
	defer mainthread.Call(p.Close)

	clock := newPacer(cfg.Emulator.CycleDelay)
	defer clock.stop()

	var keypad [emulator.KEY_COUNT]bool
	var shownTitle string
	var titleAt time.Time
	beeping := false
	for {
		var action platform.Action
		mainthread.Call(func() { action = p.ProcessInput(&keypad) })

		switch action {
		case platform.ActionQuit:
			log.Notice("quit")
			return 0
		case platform.ActionScreenshot:
			fg, bg := p.Colors()
			if path, err := c8.Display().SaveBMP(cfg.Screenshot.Dir, fg, bg); err != nil {
				log.Errorf("screenshot failed: %s", err.Error())
			} else {
				log.Noticef("screenshot saved to %s", path)
			}
		case platform.ActionFaster:
			clock.set(config.AdjustCycleDelay(clock.delay, config.FasterCycleDelay))
			log.Noticef("cycle delay %s", clock.delay)
		case platform.ActionSlower:
			clock.set(config.AdjustCycleDelay(clock.delay, config.SlowerCycleDelay))
			log.Noticef("cycle delay %s", clock.delay)
		case platform.ActionNextROM, platform.ActionPrevROM:
			var path string
			if action == platform.ActionNextROM {
				path = roms.Next()
			} else {
				path = roms.Prev()
			}
			c8.ClearScreen()
			if err := c8.LoadROMFile(path); err != nil {
				log.Critical(err.Error())
				return 1
			}
			log.Noticef("switched to %s", roms.Name())
		case platform.ActionStatus:
			log.Notice(c8.Status())
			for _, t := range c8.Recent() {
				log.Notice(t.String())
			}
		}

		c8.SetKeypad(keypad)
		if err := c8.Cycle(); err != nil {
			log.Critical(err.Error())
			return 1
		}

		if err := mainthread.CallErr(func() error { return p.Present(c8.Display()) }); err != nil {
			log.Errorf("present failed: %s", err.Error())
		}

		// The status changes every cycle, so the title only follows it a few times a second.
		// The bell marker goes up and down right away
		b := c8.SoundTimer() > 0
		if now := time.Now(); b != beeping || now.Sub(titleAt) >= TITLE_INTERVAL {
			beeping, titleAt = b, now
			title := fmt.Sprintf("%s - < %s > | %s", cfg.Display.Title, roms.Name(), c8.Status())
			if beeping {
				title += BELL_MARKER
			}
			if title != shownTitle {
				shownTitle = title
				mainthread.Call(func() { p.SetTitle(title) })
			}
		}

		clock.wait()
	}
}

// pacer spaces cycles delay apart. A zero delay runs flat out.
type pacer struct {
	delay  time.Duration
	ticker *time.Ticker
}

func newPacer(delay time.Duration) *pacer {
	p := &pacer{}
	p.set(delay)
	return p
}

func (p *pacer) set(delay time.Duration) {
	p.delay = delay
	switch {
	case delay <= 0:
		p.stop()
	case p.ticker == nil:
		p.ticker = time.NewTicker(delay)
	default:
		p.ticker.Reset(delay)
	}
}

func (p *pacer) wait() {
	if p.ticker != nil {
		<-p.ticker.C
	}
}

func (p *pacer) stop() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
}
