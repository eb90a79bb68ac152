package audio

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// DeviceSource reads fixed-size blocks from a PortAudio input stream using
// blocking I/O.
type DeviceSource struct {
	stream *portaudio.Stream
	device *portaudio.DeviceInfo
	buffer []int16

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// OpenDevice opens and starts a capture stream on the device whose name
// contains name (case-insensitive), or on the best input device when name
// is empty.
func OpenDevice(name string) (*DeviceSource, error) {
	if !initialized {
		return nil, openError(name, errNotInitialized)
	}

	device, err := findDevice(name)
	if err != nil {
		return nil, openError(name, err)
	}
	if device.MaxInputChannels < Channels {
		return nil, openError(name, fmt.Errorf("device %q has %d input channels, need %d", device.Name, device.MaxInputChannels, Channels))
	}

	src := &DeviceSource{
		device: device,
		buffer: make([]int16, BlockSamples),
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      SampleRate,
		FramesPerBuffer: BlockFrames,
	}, src.buffer)
	if err != nil {
		return nil, openError(name, fmt.Errorf("open stream: %w", err))
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, openError(name, fmt.Errorf("start stream: %w", err))
	}
	src.stream = stream
	return src, nil
}

// ReadBlock blocks until one block has been captured and copies it into buf.
// Input overflows drop audio but are not treated as failures.
func (d *DeviceSource) ReadBlock(buf []int16) error {
	if d.closed {
		return ErrSourceClosed
	}
	if len(buf) != len(d.buffer) {
		return fmt.Errorf("block of %d samples, stream delivers %d", len(buf), len(d.buffer))
	}
	if err := d.stream.Read(); err != nil && err != portaudio.InputOverflowed {
		return err
	}
	copy(buf, d.buffer)
	return nil
}

func (d *DeviceSource) Name() string {
	return d.device.Name
}

// Device returns the PortAudio device backing the stream.
func (d *DeviceSource) Device() *portaudio.DeviceInfo {
	return d.device
}

// Close stops and closes the underlying PortAudio stream.
func (d *DeviceSource) Close() error {
	d.closeOnce.Do(func() {
		d.closed = true
		if d.stream == nil {
			return
		}
		if err := d.stream.Stop(); err != nil && !errorsIsInvalidStreamState(err) {
			d.closeErr = err
			_ = d.stream.Close()
			return
		}
		d.closeErr = d.stream.Close()
	})
	return d.closeErr
}

func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name)
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

	if candidate := pickBestDevice(devices); candidate != nil {
		return candidate, nil
	}

	return nil, fmt.Errorf("no suitable audio input device found")
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}

	return nil, fmt.Errorf("audio device %q not found", name)
}

// monitorKeywords mark devices that capture what the machine is playing,
// which is what a visualizer usually wants.
var monitorKeywords = []string{"monitor", "loopback", "mix", "stereo mix", "what u hear"}

func scoreDevice(d *portaudio.DeviceInfo, defaultInput, defaultHost int) int {
	score := d.MaxInputChannels
	if d.Index == defaultInput {
		score += 50
	}
	if d.Index == defaultHost {
		score += 40
	}
	lower := strings.ToLower(d.Name)
	for _, kw := range monitorKeywords {
		if strings.Contains(lower, kw) {
			score += 20
			break
		}
	}
	if strings.Contains(lower, "default") {
		score += 10
	}
	return score
}

func pickBestDevice(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	defaultInput := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultInput = def.Index
	}
	defaultHost := -1
	if host, err := portaudio.DefaultHostApi(); err == nil && host != nil && host.DefaultInputDevice != nil {
		defaultHost = host.DefaultInputDevice.Index
	}

	type scored struct {
		dev   *portaudio.DeviceInfo
		score int
	}
	var results []scored
	for _, d := range devices {
		if d == nil || d.MaxInputChannels < Channels {
			continue
		}
		results = append(results, scored{dev: d, score: scoreDevice(d, defaultInput, defaultHost)})
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

// errorsIsInvalidStreamState checks if the provided error stems from stopping an already stopped stream.
func errorsIsInvalidStreamState(err error) bool {
	if err == nil {
		return false
	}
	const invalidStateMsg = "PaErrorCode -9986"
	return strings.Contains(err.Error(), invalidStateMsg)
}

// AutoDetectDevice returns the best available input device PortAudio can find.
func AutoDetectDevice() (*portaudio.DeviceInfo, error) {
	if !initialized {
		return nil, errNotInitialized
	}
	return findDevice("")
}
