package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guidoenr/micshift/internal/app"
	"github.com/guidoenr/micshift/internal/audio"
	"github.com/guidoenr/micshift/internal/render"
)

func main() {
	var (
		deviceName = flag.String("device", "", "Optional PortAudio input device name (substring match)")
		bufferSize = flag.Int("buffer-size", 512, "Frames per audio callback block (power of two recommended)")
		webEnabled = flag.Bool("web", true, "Serve the spectrum page and WebSocket feed")
		webAddr    = flag.String("addr", ":3030", "Listen address for the web server")
		visualize  = flag.Bool("visualize", false, "Render the live spectrum in the terminal")
		useSDL     = flag.Bool("sdl", false, "Render the live spectrum in an SDL window (requires -tags sdl build)")
		noAudio    = flag.Bool("no-audio", false, "Run with synthetic audio (for testing)")
		debug      = flag.Bool("debug", false, "Enable verbose logging")
		listDevs   = flag.Bool("list-devices", false, "List available audio devices and exit")
		profile    = flag.String("profile", "", "Write cycle timings to this CSV file")
	)

	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if *bufferSize <= 0 {
		log.Fatalf("buffer-size must be positive (got %d)", *bufferSize)
	}

	if *useSDL && !render.SupportsSDL() {
		log.Warn("binary built without sdl support, ignoring -sdl (rebuild with -tags sdl)")
		*useSDL = false
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	needAudio := !*noAudio || *listDevs
	if needAudio {
		if err := audio.Initialize(); err != nil {
			log.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	if *listDevs {
		devices, err := audio.ListDevices()
		if err != nil {
			log.Fatalf("list devices: %v", err)
		}
		fmt.Printf("\n=== Audio Devices ===\n\n")
		for _, dev := range devices {
			markers := ""
			if dev.IsDefaultInput {
				markers += " (default input)"
			}
			if dev.IsDefaultOutput {
				markers += " (default output)"
			}
			fmt.Printf("- %s [%s]%s\n    inputs:%d outputs:%d sample:%.0f Hz\n",
				dev.Name, dev.HostAPI, markers, dev.MaxInput, dev.MaxOutput, dev.DefaultSampleHz)
		}
		if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
			fmt.Printf("\nAuto-detected microphone: %s (%.0f Hz, %d channels)\n", dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
		}
		return
	}

	a, err := app.New(app.Config{
		DeviceName:   *deviceName,
		BufferSize:   *bufferSize,
		WebEnabled:   *webEnabled,
		WebAddr:      *webAddr,
		DisableAudio: *noAudio,
		Visualize:    *visualize,
		UseSDL:       *useSDL,
		ProfilePath:  *profile,
		Log:          log,
	})
	if err != nil {
		log.Fatalf("failed to create app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	if err := a.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		log.Fatalf("runtime error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
}
