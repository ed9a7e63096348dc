// Package circuitbreaker provides circuit breaker implementations for external tool invocations.
// This file implements a wrapper that protects subprocess calls from repeated failures,
// such as a missing or broken binary being invoked over and over.
package circuitbreaker

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sony/gobreaker"
)

// ToolRunner wraps external command execution with circuit breaker protection.
// Once a tool fails repeatedly (missing binary, broken installation), further
// invocations are rejected immediately instead of spawning doomed processes.
type ToolRunner struct {
	cb      *CircuitBreaker
	timeout time.Duration
}

// defaultToolTimeout bounds a single subprocess run. Transcription of long
// media can legitimately take many minutes.
const defaultToolTimeout = 30 * time.Minute

// NewToolRunner creates a ToolRunner with the media tool configuration.
func NewToolRunner() *ToolRunner {
	return NewToolRunnerWithConfig(MediaToolConfig(), defaultToolTimeout)
}

// NewToolRunnerWithConfig creates a ToolRunner with custom breaker
// configuration and per-invocation timeout. A non-positive timeout disables
// the per-run deadline.
func NewToolRunnerWithConfig(cfg Config, timeout time.Duration) *ToolRunner {
	return &ToolRunner{
		cb:      New(cfg),
		timeout: timeout,
	}
}

// Run executes the named binary with the given arguments and returns its
// combined output. If the circuit is open, it returns ErrOpenState
// immediately without spawning a process.
func (tr *ToolRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	if tr.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tr.timeout)
		defer cancel()
	}

	result, err := tr.cb.Execute(func() (interface{}, error) {
		out, runErr := exec.CommandContext(ctx, bin, args...).CombinedOutput()
		if runErr != nil {
			return nil, fmt.Errorf("%s: %w (output: %s)", bin, runErr, truncateOutput(out))
		}
		return out, nil
	})

	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// State returns the current state of the circuit breaker.
func (tr *ToolRunner) State() gobreaker.State {
	return tr.cb.State()
}

// IsOpen returns true if the circuit breaker is in the open state.
func (tr *ToolRunner) IsOpen() bool {
	return tr.cb.IsOpen()
}

// truncateOutput keeps error messages readable when a tool dumps a large
// amount of output before failing.
func truncateOutput(out []byte) string {
	const max = 512
	if len(out) <= max {
		return string(out)
	}
	return string(out[:max]) + "..."
}
