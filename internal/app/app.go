package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/guidoenr/micshift/internal/analyzer"
	"github.com/guidoenr/micshift/internal/audio"
	"github.com/guidoenr/micshift/internal/broadcast"
	"github.com/guidoenr/micshift/internal/control"
	"github.com/guidoenr/micshift/internal/dsp"
	"github.com/guidoenr/micshift/internal/params"
	"github.com/guidoenr/micshift/internal/render"
	"github.com/guidoenr/micshift/internal/web"
)

// Config configures the application runtime.
type Config struct {
	DeviceName   string
	BufferSize   int
	WebEnabled   bool
	WebAddr      string
	DisableAudio bool
	Visualize    bool
	UseSDL       bool
	ProfilePath  string
	Log          *logrus.Logger
}

const tapDepth = 32

// App ties together the audio engine, correction chain, spectrum analysis,
// broadcasting, and keyboard control.
type App struct {
	cfg        Config
	log        *logrus.Logger
	store      *params.Store
	chain      *dsp.Chain
	engine     *audio.Engine
	synth      *audio.Synthetic
	spectra    *analyzer.Analyzer
	hub        *broadcast.Hub
	server     *web.Server
	control    *control.Controller
	renderer   *render.Renderer
	sdlView    *render.SDLView
	prof       *profiler
	sampleRate float64

	analyzerCancel context.CancelFunc
	visualize      bool
	width          int
	height         int
}

// New constructs the application using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}

	a := &App{
		cfg:       cfg,
		log:       cfg.Log,
		store:     params.NewStore(),
		hub:       broadcast.NewHub(cfg.Log),
		visualize: cfg.Visualize,
		width:     80,
		height:    24,
	}

	if cfg.BufferSize > 0 {
		if !a.store.SetBufferSize(cfg.BufferSize) {
			a.log.WithField("buffer_size", cfg.BufferSize).Warn("buffer size out of range, keeping default")
		}
	}
	bufferSize := a.store.Get().BufferSize

	if cfg.DisableAudio {
		a.sampleRate = 48000
		a.chain = dsp.NewChain(a.store, a.sampleRate, bufferSize, tapDepth)
		a.synth = audio.NewSynthetic(a.sampleRate, bufferSize, a.chain)
		a.log.Info("audio disabled, using synthetic generator")
	} else {
		engine, err := audio.NewEngine(audio.Config{
			DeviceName: cfg.DeviceName,
			BufferSize: bufferSize,
		}, func(sampleRate float64, frames int) audio.Processor {
			a.chain = dsp.NewChain(a.store, sampleRate, frames, tapDepth)
			return a.chain
		})
		if err != nil {
			return nil, fmt.Errorf("audio engine: %w", err)
		}
		a.engine = engine
		a.sampleRate = engine.SampleRate()
		a.log.WithFields(logrus.Fields{
			"input":       engine.InputName(),
			"output":      engine.OutputName(),
			"sample_rate": engine.SampleRate(),
			"buffer_size": engine.BufferSize(),
		}).Info("audio stream started")
	}

	a.spectra = analyzer.New(analyzer.Config{
		Tap:        a.chain.Tap(),
		SampleRate: a.sampleRate,
		Log:        cfg.Log,
	})

	if cfg.WebEnabled {
		addr := cfg.WebAddr
		if addr == "" {
			addr = ":3030"
		}
		a.server = web.NewServer(addr, a.hub, cfg.Log)
	}

	a.control = control.NewController(a.store, cfg.Log)
	a.renderer = render.New(a.width, a.height-1, a.sampleRate/2, true)
	a.prof = newProfiler(cfg.ProfilePath, cfg.Log)

	if cfg.UseSDL {
		view, err := render.NewSDLView(1024, 480, a.sampleRate/2)
		if err != nil {
			a.log.WithError(err).Warn("sdl view unavailable")
		} else {
			a.sdlView = view
		}
	}

	return a, nil
}

// Store exposes the parameter store, mainly for tests.
func (a *App) Store() *params.Store { return a.store }

// Run drives the application until the context is cancelled or the user
// quits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.startAnalyzer(ctx)

	if a.synth != nil {
		go a.synth.Run(ctx)
	}
	if a.server != nil {
		go func() {
			if err := a.server.Run(ctx); err != nil {
				a.log.WithError(err).Error("web server stopped")
			}
		}()
	}
	go func() {
		if err := a.control.Run(ctx); err != nil {
			a.log.WithError(err).Warn("keyboard input disabled")
		}
	}()

	if a.visualize {
		enterAltScreen()
		clearScreen()
		hideCursor()
	}
	defer func() {
		if a.visualize {
			showCursor()
			exitAltScreen()
		}
	}()

	reopenCheck := time.NewTicker(time.Second)
	defer reopenCheck.Stop()

	frames := a.spectra.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case pair := <-frames:
			a.prof.beginCycle()
			a.hub.Publish(broadcast.NewMessage(pair))
			a.prof.markSection("publish")
			a.prof.endCycle()

		case msg := <-a.hub.Local():
			a.drawLocal(msg)
			if a.sdlView != nil {
				if err := a.sdlView.Draw(msg); err != nil {
					if err == render.ErrWindowClosed {
						return nil
					}
					a.log.WithError(err).Warn("sdl draw failed")
				}
			}

		case evt := <-a.control.Events():
			switch evt {
			case control.EventQuit:
				return nil
			case control.EventToggleVisualizer:
				a.toggleVisualizer()
			case control.EventShowSettings:
				a.showSettings()
			}

		case <-reopenCheck.C:
			if err := a.maybeReopenStream(ctx); err != nil {
				return err
			}
			frames = a.spectra.Frames()
		}
	}
}

// Close releases held resources.
func (a *App) Close() error {
	if a.analyzerCancel != nil {
		a.analyzerCancel()
	}
	a.hub.Close()
	if a.sdlView != nil {
		_ = a.sdlView.Close()
	}
	if a.prof != nil {
		_ = a.prof.Close()
	}
	if a.engine != nil {
		return a.engine.Close()
	}
	return nil
}

func (a *App) startAnalyzer(ctx context.Context) {
	actx, cancel := context.WithCancel(ctx)
	a.analyzerCancel = cancel
	go a.spectra.Run(actx)
}

// maybeReopenStream applies a changed buffer size by rebuilding the stream,
// processing chain, and analyzer. Parameter values survive in the store.
func (a *App) maybeReopenStream(ctx context.Context) error {
	if a.engine == nil {
		return nil
	}
	target := a.store.Get().BufferSize
	if target == a.engine.BufferSize() {
		return nil
	}

	a.log.WithField("buffer_size", target).Info("reopening audio stream")
	if err := a.engine.Close(); err != nil {
		a.log.WithError(err).Warn("closing audio stream")
	}
	a.analyzerCancel()

	engine, err := audio.NewEngine(audio.Config{
		DeviceName: a.cfg.DeviceName,
		BufferSize: target,
	}, func(sampleRate float64, frames int) audio.Processor {
		a.chain = dsp.NewChain(a.store, sampleRate, frames, tapDepth)
		return a.chain
	})
	if err != nil {
		return fmt.Errorf("reopen audio engine: %w", err)
	}
	a.engine = engine
	a.sampleRate = engine.SampleRate()

	a.spectra = analyzer.New(analyzer.Config{
		Tap:        a.chain.Tap(),
		SampleRate: a.sampleRate,
		Log:        a.log,
	})
	a.startAnalyzer(ctx)
	return nil
}

func (a *App) drawLocal(msg broadcast.Message) {
	if !a.visualize {
		return
	}
	a.ensureDimensions()
	frame := a.renderer.Render(msg)

	moveCursorHome()
	for _, line := range frame.Lines {
		fmt.Println(line)
	}
	fmt.Print(statusBar(frame.Status, a.width))
}

func (a *App) toggleVisualizer() {
	a.visualize = !a.visualize
	if a.visualize {
		enterAltScreen()
		clearScreen()
		hideCursor()
	} else {
		showCursor()
		exitAltScreen()
	}
}

func (a *App) showSettings() {
	lines := render.SettingsLines(a.store.Get(), a.width)
	if a.visualize {
		moveCursorHome()
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	if sel := a.control.Selected(); sel != "" {
		fmt.Printf("adjusting: %s\n", sel)
	}
}

func (a *App) ensureDimensions() {
	fd := int(os.Stdout.Fd())
	if fd < 0 {
		return
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}
	if w == a.width && h == a.height {
		return
	}
	a.width = w
	a.height = h
	renderHeight := h - 1
	if renderHeight <= 0 {
		renderHeight = 1
	}
	a.renderer.Resize(w, renderHeight)
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	if len(text) >= width {
		return text[:width]
	}
	for len(text) < width {
		text += " "
	}
	return text
}

func clearScreen() {
	fmt.Print("\x1b[2J")
	moveCursorHome()
}

func moveCursorHome() {
	fmt.Print("\x1b[H")
}

func hideCursor() {
	fmt.Print("\x1b[?25l")
}

func showCursor() {
	fmt.Print("\x1b[?25h")
}

func enterAltScreen() {
	fmt.Print("\x1b[?1049h")
}

func exitAltScreen() {
	fmt.Print("\x1b[?1049l\x1b[0m")
}
