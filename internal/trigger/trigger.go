// Package trigger pulses a serial line when trials start and stop so external
// acquisition hardware can be aligned with the recording.
package trigger

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuireach/internal/controller"
	"github.com/verte-zerg/tuireach/internal/model"
)

const defaultBaud = 9600

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("trigger closed")

// Port is the subset of serial.Port the trigger uses.
type Port interface {
	io.Writer
	Close() error
}

// Trigger writes single-byte codes to a port.
type Trigger struct {
	mu        sync.Mutex
	port      Port
	startCode byte
	stopCode  byte
	log       *zap.Logger
}

// Open opens cfg.Device at cfg.Baud (8N1).
func Open(cfg model.TriggerConfig, log *zap.Logger) (*Trigger, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("trigger device is empty")
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = defaultBaud
	}
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open trigger port %s: %w", cfg.Device, err)
	}
	return New(port, cfg, log), nil
}

// New wraps an already open port.
func New(port Port, cfg model.TriggerConfig, log *zap.Logger) *Trigger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trigger{
		port:      port,
		startCode: cfg.StartCode,
		stopCode:  cfg.StopCode,
		log:       log.Named("trigger"),
	}
}

// Send writes code to the port.
func (t *Trigger) Send(code byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return ErrClosed
	}
	if _, err := t.port.Write([]byte{code}); err != nil {
		return fmt.Errorf("trigger write: %w", err)
	}
	return nil
}

// Listener sends the start code on EventStart and the stop code on
// EventStop. Write failures are logged.
func (t *Trigger) Listener() controller.Listener {
	return func(ev controller.Event) {
		var code byte
		switch ev.Kind {
		case controller.EventStart:
			code = t.startCode
		case controller.EventStop:
			code = t.stopCode
		default:
			return
		}
		if err := t.Send(code); err != nil {
			t.log.Warn("trigger not sent",
				zap.Stringer("event", ev.Kind),
				zap.Int("session", ev.Session),
				zap.Int("trial", ev.Trial),
				zap.Error(err))
		}
	}
}

// Close releases the port. Further sends return ErrClosed.
func (t *Trigger) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	port := t.port
	t.port = nil
	return port.Close()
}

// Ports lists the serial ports available on this machine.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
