package worker

import (
	"testing"
	"time"
)

func TestValidateRejectsEmptyWorkerID(t *testing.T) {
	c := Config{PollInterval: time.Second, WorkflowTimeout: time.Minute}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for empty worker id")
	}
}

func TestValidateRejectsNonPositiveDurations(t *testing.T) {
	base := Config{WorkerID: "w1", PollInterval: time.Second, WorkflowTimeout: time.Minute}

	withZeroPoll := base
	withZeroPoll.PollInterval = 0
	if err := withZeroPoll.Validate(); err == nil {
		t.Fatalf("expected error for zero poll interval")
	}

	withZeroTimeout := base
	withZeroTimeout.WorkflowTimeout = 0
	if err := withZeroTimeout.Validate(); err == nil {
		t.Fatalf("expected error for zero workflow timeout")
	}
}

func TestValidateNormalizesLogLevel(t *testing.T) {
	c := Config{WorkerID: "w1", PollInterval: time.Second, WorkflowTimeout: time.Minute, LogLevel: "debug"}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.LogLevel != "DEBUG" {
		t.Fatalf("expected normalized log level DEBUG, got %q", c.LogLevel)
	}
}

func TestValidateDefaultsEmptyLogLevelToInfo(t *testing.T) {
	c := Config{WorkerID: "w1", PollInterval: time.Second, WorkflowTimeout: time.Minute}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.LogLevel != "INFO" {
		t.Fatalf("expected default log level INFO, got %q", c.LogLevel)
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	c := Config{WorkerID: "w1", PollInterval: time.Second, WorkflowTimeout: time.Minute, LogLevel: "VERBOSE"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}
