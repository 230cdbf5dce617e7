package audio

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// Processor consumes one input block and fills the matching output block.
// It is called from the PortAudio callback and must not block or allocate.
type Processor interface {
	Process(in, out []float32)
	Silence(out []float32)
}

// Config controls how an Engine instance is created.
type Config struct {
	DeviceName string
	BufferSize int
}

const defaultBufferSize = 512

// ProcessorFactory builds the block processor once the device sample rate
// is known.
type ProcessorFactory func(sampleRate float64, bufferSize int) Processor

// Engine wraps a full-duplex PortAudio stream: microphone in, speakers out,
// with every block routed through a Processor.
type Engine struct {
	stream     *portaudio.Stream
	sampleRate float64
	bufferSize int
	input      *portaudio.DeviceInfo
	output     *portaudio.DeviceInfo
	proc       Processor
	stopped    atomic.Bool
}

// NewEngine opens and starts a duplex stream using the provided
// configuration. The processor is built via the factory once the input
// device, and therefore the sample rate, is resolved.
func NewEngine(cfg Config, build ProcessorFactory) (*Engine, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}

	input, err := findInputDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}
	output, err := findOutputDevice()
	if err != nil {
		return nil, err
	}

	sampleRate := input.DefaultSampleRate

	e := &Engine{
		sampleRate: sampleRate,
		bufferSize: cfg.BufferSize,
		input:      input,
		output:     output,
		proc:       build(sampleRate, cfg.BufferSize),
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   input,
			Channels: 1,
			Latency:  input.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   output,
			Channels: 1,
			Latency:  output.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: cfg.BufferSize,
	}, e.process)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	e.stream = stream

	if err := e.stream.Start(); err != nil {
		_ = e.stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}

	return e, nil
}

// Close stops and closes the underlying PortAudio stream.
func (e *Engine) Close() error {
	e.stopped.Store(true)
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil && !errorsIsInvalidStreamState(err) {
		return err
	}
	return e.stream.Close()
}

// SampleRate returns the stream sample rate.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// BufferSize returns the frames per callback block.
func (e *Engine) BufferSize() int {
	return e.bufferSize
}

// InputName returns the name of the capture device in use.
func (e *Engine) InputName() string {
	return e.input.Name
}

// OutputName returns the name of the playback device in use.
func (e *Engine) OutputName() string {
	return e.output.Name
}

func (e *Engine) process(in, out []float32) {
	if e.stopped.Load() {
		e.proc.Silence(out)
		return
	}
	e.proc.Process(in, out)
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findInputByName(name)
	}

	if dev, err := portaudio.DefaultInputDevice(); err == nil && dev != nil && dev.MaxInputChannels > 0 {
		return dev, nil
	}

	if host, err := portaudio.DefaultHostApi(); err == nil {
		if host != nil && host.DefaultInputDevice != nil && host.DefaultInputDevice.MaxInputChannels > 0 {
			return host.DefaultInputDevice, nil
		}
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	candidate := pickBestMicrophone(devices)
	if candidate != nil {
		return candidate, nil
	}

	return nil, fmt.Errorf("no suitable audio input device found")
}

func findInputByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		deviceName := strings.ToLower(device.Name)
		if strings.Contains(deviceName, name) {
			return device, nil
		}
	}

	return nil, fmt.Errorf("audio device %q not found", name)
}

func findOutputDevice() (*portaudio.DeviceInfo, error) {
	if dev, err := portaudio.DefaultOutputDevice(); err == nil && dev != nil && dev.MaxOutputChannels > 0 {
		return dev, nil
	}

	if host, err := portaudio.DefaultHostApi(); err == nil {
		if host != nil && host.DefaultOutputDevice != nil && host.DefaultOutputDevice.MaxOutputChannels > 0 {
			return host.DefaultOutputDevice, nil
		}
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	for _, d := range devices {
		if d != nil && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}

	return nil, fmt.Errorf("no suitable audio output device found")
}

// pickBestMicrophone scores input devices, preferring real microphones and
// skipping monitor/loopback sources that would feed playback straight back in.
func pickBestMicrophone(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	type scored struct {
		dev   *portaudio.DeviceInfo
		score int
	}

	var (
		results  []scored
		micWords = []string{"mic", "microphone", "capture", "input"}
		badWords = []string{"monitor", "loopback", "mix", "stereo mix", "what u hear"}
	)

	var defaultInputIndex = -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultInputIndex = def.Index
	}

	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}

		score := d.MaxInputChannels

		if d.Index == defaultInputIndex {
			score += 50
		}

		lower := strings.ToLower(d.Name)
		for _, kw := range micWords {
			if strings.Contains(lower, kw) {
				score += 20
				break
			}
		}
		for _, kw := range badWords {
			if strings.Contains(lower, kw) {
				score -= 100
				break
			}
		}

		if strings.Contains(lower, "default") {
			score += 10
		}

		results = append(results, scored{dev: d, score: score})
	}

	if len(results) == 0 {
		return nil
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return strings.ToLower(results[i].dev.Name) < strings.ToLower(results[j].dev.Name)
		}
		return results[i].score > results[j].score
	})

	return results[0].dev
}

// AutoDetectDevice returns the input device that would be picked by default.
func AutoDetectDevice() (*portaudio.DeviceInfo, error) {
	return findInputDevice("")
}

// errorsIsInvalidStreamState checks if the provided error stems from stopping an already stopped stream.
func errorsIsInvalidStreamState(err error) bool {
	if err == nil {
		return false
	}
	const invalidStateMsg = "PaErrorCode -9986"
	return strings.Contains(err.Error(), invalidStateMsg)
}
