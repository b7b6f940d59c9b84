package platform

import (
	"fmt"
	"image/color"

	"github.com/adrichey/chip8vm/config"
	"github.com/adrichey/chip8vm/emulator"
	"github.com/tliron/commonlog"
	"github.com/veandco/go-sdl2/sdl"
)

var log = commonlog.GetLogger("chip8.platform")

// Action is what the driver should do after a round of input processing.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionScreenshot
	ActionFaster
	ActionSlower
	ActionNextROM
	ActionPrevROM
	ActionStatus
)

// Hotkeys that only act on a fresh press
var hotkeys = map[sdl.Keycode]Action{
	sdl.K_F12:          ActionScreenshot,
	sdl.K_LEFTBRACKET:  ActionFaster,
	sdl.K_RIGHTBRACKET: ActionSlower,
	sdl.K_RIGHT:        ActionNextROM,
	sdl.K_LEFT:         ActionPrevROM,
	sdl.K_F1:           ActionStatus,
}

// Platform owns the SDL window, renderer and texture the screen is drawn to.
// Every method must be called from the thread that called New.
type Platform struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	// SDL keycode to CHIP-8 key
	keymap map[sdl.Keycode]int

	foreground color.RGBA
	background color.RGBA
}

// KeyMap resolves SDL key names to keycodes, indexed by CHIP-8 key.
func KeyMap(names []string) (map[sdl.Keycode]int, error) {
	if len(names) != emulator.KEY_COUNT {
		return nil, fmt.Errorf("need %d key names, got %d", emulator.KEY_COUNT, len(names))
	}

	keymap := make(map[sdl.Keycode]int, len(names))
	for k, name := range names {
		code := sdl.GetKeyFromName(name)
		if code == sdl.K_UNKNOWN {
			return nil, fmt.Errorf("unknown key name %q for key %X", name, k)
		}
		keymap[code] = k
	}
	return keymap, nil
}

// New initializes SDL video and opens a window sized to the CHIP-8 screen times the configured scale.
func New(cfg *config.Config) (*Platform, error) {
	keymap, err := KeyMap(cfg.Input.Keys)
	if err != nil {
		return nil, err
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("cannot initialize SDL: %w", err)
	}

	scale := int32(cfg.Display.Scale)
	window, err := sdl.CreateWindow(cfg.Display.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		emulator.VIDEO_WIDTH*scale, emulator.VIDEO_HEIGHT*scale,
		sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("cannot create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("cannot create renderer: %w", err)
	}

	// The texture is exactly the size of the CHIP-8 screen, the renderer stretches it to the window
	texture, err := renderer.CreateTexture(
		uint32(sdl.PIXELFORMAT_RGBA32),
		sdl.TEXTUREACCESS_STREAMING,
		emulator.VIDEO_WIDTH, emulator.VIDEO_HEIGHT)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("cannot create texture: %w", err)
	}

	log.Infof("opened %dx%d window", emulator.VIDEO_WIDTH*scale, emulator.VIDEO_HEIGHT*scale)

	return &Platform{
		window:     window,
		renderer:   renderer,
		texture:    texture,
		keymap:     keymap,
		foreground: cfg.Display.Foreground.RGBA(),
		background: cfg.Display.Background.RGBA(),
	}, nil
}

// Close frees all resources created by SDL.
func (p *Platform) Close() {
	p.texture.Destroy()
	p.renderer.Destroy()
	p.window.Destroy()
	sdl.Quit()
}

// ProcessInput drains the SDL event queue into keypad.
// Escape or closing the window asks to quit and wins over everything else.
// Otherwise the first hotkey pressed in this round is returned: F12 screenshot,
// [ and ] faster and slower, Right and Left next and previous ROM, F1 status.
func (p *Platform) ProcessInput(keypad *[emulator.KEY_COUNT]bool) Action {
	action := ActionNone

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch t := event.(type) {
		case *sdl.QuitEvent:
			action = ActionQuit
		case *sdl.KeyboardEvent:
			pressed := t.Type == sdl.KEYDOWN

			switch t.Keysym.Sym {
			case sdl.K_ESCAPE:
				if pressed {
					action = ActionQuit
				}
			default:
				if k, ok := p.keymap[t.Keysym.Sym]; ok {
					keypad[k] = pressed
				} else if hot, ok := hotkeys[t.Keysym.Sym]; ok && pressed && t.Repeat == 0 && action == ActionNone {
					action = hot
				}
			}
		}
	}

	return action
}

// Present draws the screen with the configured colors.
func (p *Platform) Present(screen *emulator.Screen) error {
	img := screen.Image(p.foreground, p.background)

	if err := p.texture.Update(nil, img.Pix, img.Stride); err != nil {
		return fmt.Errorf("cannot update texture: %w", err)
	}
	if err := p.renderer.Clear(); err != nil {
		return err
	}
	if err := p.renderer.Copy(p.texture, nil, nil); err != nil {
		return err
	}
	p.renderer.Present()
	return nil
}

func (p *Platform) SetTitle(title string) {
	p.window.SetTitle(title)
}

// Colors returns the foreground and background colors used by Present.
func (p *Platform) Colors() (fg, bg color.RGBA) {
	return p.foreground, p.background
}
