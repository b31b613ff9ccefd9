package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

var (
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrDeviceBusy        = errors.New("device already started")
	ErrDeviceStopped     = errors.New("device not started")
)

// Camera - источник снимков: Start, затем Capture, затем Stop
type Camera interface {
	Start(ctx context.Context) error
	Capture(ctx context.Context) ([]byte, error)
	Stop() error
}

// Microphone записывает одну голосовую заметку между Start и Stop
type Microphone interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
}

// CommandCamera снимает кадр внешней командой, которая пишет JPEG в stdout
// (например, fswebcam --no-banner -)
type CommandCamera struct {
	Name string
	Args []string

	mu      sync.Mutex
	started bool
}

func NewCommandCamera(name string, args ...string) *CommandCamera {
	return &CommandCamera{Name: name, Args: args}
}

func (c *CommandCamera) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrDeviceBusy
	}
	if _, err := exec.LookPath(c.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	c.started = true
	return nil
}

func (c *CommandCamera) Capture(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil, ErrDeviceStopped
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrDeviceUnavailable, err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: camera produced an empty frame", ErrDeviceUnavailable)
	}
	return stdout.Bytes(), nil
}

func (c *CommandCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	return nil
}

// CommandMicrophone пишет звук внешней командой (например, ffmpeg ... -f webm -)
// и останавливает её сигналом прерывания
type CommandMicrophone struct {
	Name string
	Args []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout *bytes.Buffer
}

func NewCommandMicrophone(name string, args ...string) *CommandMicrophone {
	return &CommandMicrophone{Name: name, Args: args}
}

func (m *CommandMicrophone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil {
		return ErrDeviceBusy
	}

	stdout := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, m.Name, m.Args...)
	cmd.Stdout = stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	m.cmd, m.stdout = cmd, stdout
	return nil
}

func (m *CommandMicrophone) Stop() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == nil {
		return nil, ErrDeviceStopped
	}
	cmd, stdout := m.cmd, m.stdout
	m.cmd, m.stdout = nil, nil

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	// рекордеры завершаются с ненулевым кодом по сигналу, важен только stdout
	_ = cmd.Wait()

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing was recorded", ErrDeviceUnavailable)
	}
	return stdout.Bytes(), nil
}
