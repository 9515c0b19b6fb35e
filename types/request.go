package types

import "fmt"

// PlanFormat names the encoding a service uses for plan content.
type PlanFormat string

const (
	// FormatJSON delivers plans as JSON step arrays.
	FormatJSON PlanFormat = "json"

	// FormatTasks delivers plans as pre-formatted step lines.
	FormatTasks PlanFormat = "tasks"

	// FormatXplan delivers plans as xplan XML documents.
	FormatXplan PlanFormat = "xplan"
)

// Valid reports whether the format is one of the recognized encodings.
func (f PlanFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatTasks, FormatXplan:
		return true
	}
	return false
}

// PlanningRequest is one planning problem submitted to a service.
// Immutable once built; a fresh request is constructed per Plan invocation.
type PlanningRequest struct {
	// RequestID uniquely identifies this invocation for logging and
	// cache correlation.
	RequestID string

	DomainName  string
	DomainText  string
	ProblemName string
	ProblemText string

	Configuration RunConfiguration
}

// Validate checks that the request carries both PDDL documents.
func (r PlanningRequest) Validate() error {
	if r.DomainText == "" {
		return fmt.Errorf("planning request %s: empty domain", r.RequestID)
	}
	if r.ProblemText == "" {
		return fmt.Errorf("planning request %s: empty problem", r.RequestID)
	}
	return nil
}

// SearchDebuggerConfig enables the asynchronous dialect's search debugger
// attachment.
type SearchDebuggerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
}

// RunConfiguration controls one planning run. Common fields apply to every
// dialect; the remaining fields only matter to the dialects that read them.
type RunConfiguration struct {
	// AuthenticationToken, when set, is sent as a bearer token.
	AuthenticationToken string `yaml:"authenticationToken,omitempty" json:"authenticationToken,omitempty"`

	// RequestOptions is an opaque options string forwarded to the service.
	RequestOptions string `yaml:"requestOptions,omitempty" json:"requestOptions,omitempty"`

	// Timeout is the nominal planning budget in seconds. The wire timeout
	// adds 10% slack on top of this (see WireTimeout).
	Timeout Seconds `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// PlanFormat selects the plan encoding for dialects that support more
	// than one. Empty means the dialect default (FormatJSON).
	PlanFormat PlanFormat `yaml:"planFormat,omitempty" json:"planFormat,omitempty"`

	// PlanTimeUnit declares the unit of step times in responses, when the
	// service does not declare one itself.
	PlanTimeUnit TimeUnit `yaml:"planTimeUnit,omitempty" json:"planTimeUnit,omitempty"`

	// SearchDebugger configures the async dialect's debugger attachment.
	SearchDebugger SearchDebuggerConfig `yaml:"searchDebugger,omitempty" json:"searchDebugger,omitempty"`

	// PackageName selects the solver package for the packaged dialect.
	PackageName string `yaml:"packageName,omitempty" json:"packageName,omitempty"`
}

// Authenticated reports whether this configuration carries a token.
func (c RunConfiguration) Authenticated() bool {
	return c.AuthenticationToken != ""
}

// EffectiveFormat returns the configured plan format, defaulting to JSON.
func (c RunConfiguration) EffectiveFormat() PlanFormat {
	if c.PlanFormat == "" {
		return FormatJSON
	}
	return c.PlanFormat
}
