package types

import (
	"fmt"
	"time"
)

// Seconds is a duration expressed in whole-or-fractional seconds, the unit
// planning services use on the wire.
type Seconds float64

// Duration converts to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// wireSlack is the fraction of headroom added on top of the nominal planning
// budget so the service can report its own timeout before the transport cuts
// the connection.
const wireSlack = 1.1

// DefaultTimeout is used when a run configuration does not set one.
const DefaultTimeout Seconds = 60

// TimeoutConfig defines timeout bounds for planning runs.
// It specifies default, minimum, and maximum budgets a client enforces on
// the run configurations it accepts.
type TimeoutConfig struct {
	// Default is the budget to use if the configuration doesn't set one.
	// A zero value means DefaultTimeout.
	Default Seconds

	// Max is the maximum allowed budget. Zero means no upper bound.
	Max Seconds

	// Min is the minimum allowed budget. Zero means no lower bound.
	Min Seconds
}

// Validate checks that the timeout configuration is internally consistent:
// min <= max when both are set, and the default falls within the bounds.
func (c TimeoutConfig) Validate() error {
	if c.Min > 0 && c.Max > 0 && c.Min > c.Max {
		return fmt.Errorf("min timeout %v exceeds max timeout %v", c.Min, c.Max)
	}
	if c.Default > 0 {
		if c.Min > 0 && c.Default < c.Min {
			return fmt.Errorf("default timeout %v below min %v", c.Default, c.Min)
		}
		if c.Max > 0 && c.Default > c.Max {
			return fmt.Errorf("default timeout %v exceeds max %v", c.Default, c.Max)
		}
	}
	return nil
}

// ValidateTimeout checks a requested budget against the configured bounds.
func (c TimeoutConfig) ValidateTimeout(requested Seconds) error {
	if c.Min > 0 && requested < c.Min {
		return fmt.Errorf("timeout %v below minimum %v", requested, c.Min)
	}
	if c.Max > 0 && requested > c.Max {
		return fmt.Errorf("timeout %v exceeds maximum %v", requested, c.Max)
	}
	return nil
}

// Resolve returns the effective planning budget: the requested value if
// positive, else the configured default, else DefaultTimeout.
func (c TimeoutConfig) Resolve(requested Seconds) Seconds {
	if requested > 0 {
		return requested
	}
	if c.Default > 0 {
		return c.Default
	}
	return DefaultTimeout
}

// WireTimeout returns the transport deadline for a planning budget: the
// nominal budget in milliseconds plus 10% slack.
func WireTimeout(budget Seconds) time.Duration {
	ms := float64(budget) * 1000 * wireSlack
	return time.Duration(ms) * time.Millisecond
}
