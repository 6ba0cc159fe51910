// Package companion manages the locally spawned camera-server process.
// The core treats that server as one more registry entry; this package
// only owns the child process lifecycle.
package companion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/Gusemmett/multiCamController/log"
	"github.com/Gusemmett/multiCamController/registry"
)

// Defaults for the local camera server.
const (
	DefaultPort        = 8081
	DefaultStartupWait = 3 * time.Second
	stopGracePeriod    = 5 * time.Second
)

// Config describes how to launch the companion server.
type Config struct {
	// Command is the server executable. Empty disables the companion.
	Command string
	// Args are passed verbatim to the executable.
	Args []string
	// Port is the command port the server listens on.
	Port int
	// StartupWait is how long to wait before checking the process survived.
	StartupWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.StartupWait == 0 {
		c.StartupWait = DefaultStartupWait
	}
	return c
}

// Server owns one companion child process.
type Server struct {
	cfg    Config
	logger *log.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

// New creates a companion server manager.
func New(cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	return &Server{cfg: cfg.withDefaults(), logger: logger}
}

// Start launches the child process. Starting an already running server is
// a no-op. The child inherits stdout/stderr so its logs stay visible.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Command == "" {
		return errors.New("no companion server command configured")
	}
	if s.runningLocked() {
		return nil
	}

	cmd := exec.CommandContext(ctx, s.cfg.Command, s.cfg.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start companion server: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	// Give the server a moment to bind its port; an early exit here means
	// a configuration problem, not a crash worth retrying.
	select {
	case <-exited:
		s.cmd = nil
		return fmt.Errorf("companion server exited during startup")
	case <-time.After(s.cfg.StartupWait):
	case <-ctx.Done():
		return ctx.Err()
	}

	s.cmd = cmd
	s.exited = exited
	s.logger.Info("companion server started", map[string]any{
		"pid":  cmd.Process.Pid,
		"port": s.cfg.Port,
	})
	return nil
}

// Stop terminates the child, escalating from SIGTERM to SIGKILL after a
// grace period. Stopping a server that is not running is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.runningLocked() {
		return nil
	}

	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		s.cmd.Process.Kill()
	}

	select {
	case <-s.exited:
	case <-time.After(stopGracePeriod):
		s.cmd.Process.Kill()
		<-s.exited
	}

	s.logger.Info("companion server stopped", map[string]any{"pid": s.cmd.Process.Pid})
	s.cmd = nil
	s.exited = nil
	return nil
}

// Running reports whether the child process is alive.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

// runningLocked requires s.mu held.
func (s *Server) runningLocked() bool {
	if s.cmd == nil {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Register adds the companion as a device so broadcasts reach it like any
// phone on the network.
func (s *Server) Register(reg *registry.Registry) {
	reg.Upsert("local-server-"+strconv.Itoa(s.cfg.Port), "127.0.0.1", s.cfg.Port,
		map[string]string{"kind": "companion"})
}
