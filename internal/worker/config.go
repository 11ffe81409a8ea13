package worker

import (
	"fmt"
	"strings"
	"time"
)

// Config holds one worker daemon instance's settings. The zero value is not
// valid; call Validate (or New, which calls it) before use.
type Config struct {
	WorkerID        string
	PollInterval    time.Duration
	LogLevel        string
	WorkflowTimeout time.Duration
	WorkingDir      string
}

var validLogLevels = map[string]bool{
	"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true,
}

// Validate checks field invariants and normalises LogLevel to upper case,
// mirroring the constraints a worker configuration has always enforced:
// a non-empty worker id, positive poll interval and workflow timeout, and a
// log level from the fixed set the logger understands.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WorkerID) == "" {
		return fmt.Errorf("worker: worker id cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("worker: poll interval must be positive")
	}
	if c.WorkflowTimeout <= 0 {
		return fmt.Errorf("worker: workflow timeout must be positive")
	}
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("worker: log level must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel)
	}
	return nil
}
