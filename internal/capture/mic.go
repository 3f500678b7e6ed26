package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MicSource captures PCM16 mono audio from the default input device.
type MicSource struct {
	sampleRateHz int

	mu      sync.Mutex
	running bool
	mctx    *malgo.AllocatedContext
	device  *malgo.Device

	chunks chan []byte
	errs   chan error
}

// NewMicSource creates a microphone source at the given input rate.
func NewMicSource(sampleRateHz int) *MicSource {
	return &MicSource{
		sampleRateHz: sampleRateHz,
		chunks:       make(chan []byte, 16),
		errs:         make(chan error, 1),
	}
}

// Start opens the default capture device. Failure to acquire the device is
// returned directly; failures after acquisition surface on Errors.
func (m *MicSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("microphone already captured")
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(m.sampleRateHz)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			chunk := make([]byte, len(input))
			copy(chunk, input)
			select {
			case m.chunks <- chunk:
			default:
				// Consumer fell behind; drop rather than block the device.
			}
		},
		Stop: func() {
			select {
			case m.errs <- fmt.Errorf("capture device stopped"):
			default:
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("open capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("start capture device: %w", err)
	}

	m.mctx = mctx
	m.device = device
	m.running = true
	return nil
}

// Chunks implements Source.
func (m *MicSource) Chunks() <-chan []byte { return m.chunks }

// Errors implements Source.
func (m *MicSource) Errors() <-chan error { return m.errs }

// Stop releases the device and the audio context. Idempotent.
func (m *MicSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false

	m.device.Uninit()
	err := m.mctx.Uninit()
	m.mctx.Free()
	m.device = nil
	m.mctx = nil
	close(m.chunks)
	return err
}
