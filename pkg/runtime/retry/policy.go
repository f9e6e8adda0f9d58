package retry

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Mode defines how the delay between executions grows.
type Mode string

const (
	// Constant waits InitialInterval before every retry.
	Constant Mode = "Constant"

	// Linear waits InitialInterval times the number of the retry.
	Linear Mode = "Linear"

	// Exponential multiplies the delay by Multiplier at every retry.
	Exponential Mode = "Exponential"
)

const (
	DefaultMaxAttempts     = 5
	DefaultInitialInterval = 2 * time.Second
	DefaultMultiplier      = 1.5
)

// Policy is a bounded retry policy.
type Policy struct {
	// MaxAttempts is the number of retries after the first execution.
	MaxAttempts int

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	Mode Mode

	// Multiplier applies to Exponential mode only.
	Multiplier float64

	// MaxInterval caps the delay; zero means no cap.
	MaxInterval time.Duration
}

// Default returns the default exponential Policy.
func Default() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: DefaultInitialInterval,
		Mode:            Exponential,
		Multiplier:      DefaultMultiplier,
		MaxInterval:     time.Duration(float64(DefaultInitialInterval) * math.Pow(DefaultMultiplier, DefaultMaxAttempts)),
	}
}

// WithLinearRetry returns a copy of the Policy using Linear mode.
func (p Policy) WithLinearRetry() Policy {
	p.Mode = Linear
	return p
}

// WithConstantRetry returns a copy of the Policy using Constant mode.
func (p Policy) WithConstantRetry() Policy {
	p.Mode = Constant
	return p
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.Errorf("max attempts must be greater than 0, got %d", p.MaxAttempts)
	}
	if p.InitialInterval < 0 {
		return errors.Errorf("initial interval must not be negative, got %s", p.InitialInterval)
	}
	if p.MaxInterval < 0 {
		return errors.Errorf("max interval must not be negative, got %s", p.MaxInterval)
	}
	switch p.Mode {
	case Constant, Linear:
	case Exponential:
		if p.Multiplier < 1 {
			return errors.Errorf("multiplier must be at least 1, got %v", p.Multiplier)
		}
	default:
		return errors.Errorf("unknown retry mode %q", p.Mode)
	}
	return nil
}

// State tracks a retry chain for one resource.
type State struct {
	// Attempt is the index of the current execution, starting from 0.
	Attempt     int
	MaxAttempts int
	LastError   error
}

// Start returns the State of a new retry chain.
func (p Policy) Start() State {
	return State{MaxAttempts: p.MaxAttempts}
}

// ShouldRetry returns true if the execution that just failed can be retried.
func (p Policy) ShouldRetry(s State) bool {
	return s.Attempt < s.MaxAttempts
}

// IsLastAttempt returns true if no retry is allowed after the current execution.
func (p Policy) IsLastAttempt(s State) bool {
	return !p.ShouldRetry(s)
}

// NextDelay returns the delay before retrying the execution that just failed.
func (p Policy) NextDelay(s State) time.Duration {
	var d time.Duration
	switch p.Mode {
	case Linear:
		d = p.InitialInterval * time.Duration(s.Attempt+1)
	case Exponential:
		d = time.Duration(float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(s.Attempt)))
	default:
		d = p.InitialInterval
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}

// OnFailure records err and advances the State to the next execution.
func (p Policy) OnFailure(s State, err error) State {
	s.LastError = err
	s.Attempt++
	return s
}

// ExhaustedError is reported when the last allowed execution of a retry chain failed.
type ExhaustedError struct {
	Resource  string
	Attempts  int
	LastError error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("reconciliation of %s failed after %d attempts: %v", e.Resource, e.Attempts, e.LastError)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}

// IsExhausted returns true if err is an ExhaustedError.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}
