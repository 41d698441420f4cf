package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one progression scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Catalog is the catalog file or directory, relative to the scenario
	// file when loaded with LoadScenario.
	Catalog string `yaml:"catalog"`

	// NoRemote runs the session without an account service.
	NoRemote bool `yaml:"no_remote,omitempty"`

	// Countdown overrides the autoplay countdown in seconds.
	Countdown int `yaml:"countdown,omitempty"`

	Setup Setup  `yaml:"setup,omitempty"`
	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Setup seeds the account service before the first step.
type Setup struct {
	Accounts []Account `yaml:"accounts,omitempty"`
}

// Account is progress already stored for a user.
type Account struct {
	User        string         `yaml:"user"`
	Completions []string       `yaml:"completions,omitempty"`
	Positions   map[string]int `yaml:"positions,omitempty"`
}

// Step is one action of a scenario.
type Step struct {
	Do string `yaml:"do"`

	Node    string `yaml:"node,omitempty"`
	Routine string `yaml:"routine,omitempty"`
	User    string `yaml:"user,omitempty"`
	Index   int    `yaml:"index,omitempty"`
	Enabled *bool  `yaml:"enabled,omitempty"`
	Seconds int    `yaml:"seconds,omitempty"`

	// Op and Count configure remote_fail. Count <= 0 fails until remote_heal.
	Op    string `yaml:"op,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Error is the expected error kind; empty means the step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Step names.
const (
	DoComplete       = "complete"
	DoPosition       = "position"
	DoAutoplay       = "autoplay"
	DoSignIn         = "signin"
	DoSignOut        = "signout"
	DoRetry          = "retry"
	DoRemoteFail     = "remote_fail"
	DoRemoteHeal     = "remote_heal"
	DoOpen           = "open"
	DoNext           = "next"
	DoPrevious       = "previous"
	DoJump           = "jump"
	DoVideoEnded     = "video_ended"
	DoCancel         = "cancel"
	DoKey            = "key"
	DoPause          = "pause"
	DoResume         = "resume"
	DoPlayerAutoplay = "player_autoplay"
	DoClose          = "close"
	DoAdvance        = "advance"
)

// Assertion validates the trace or the final progress.
type Assertion struct {
	Type string `yaml:"type"`

	// trace_contains: the event type plus optional fields to match.
	Event string `yaml:"event,omitempty"`
	Op    string `yaml:"op,omitempty"`
	Kind  string `yaml:"kind,omitempty"`
	State string `yaml:"state,omitempty"`

	// trace_order: event keys in order.
	Events []string `yaml:"events,omitempty"`

	// trace_count: event key and exact count.
	Key   string `yaml:"key,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// unlocked
	Nodes  []string `yaml:"nodes,omitempty"`
	Locked []string `yaml:"locked,omitempty"`

	// progress and position: ID is a level or routine.
	ID         string `yaml:"id,omitempty"`
	Percentage *int   `yaml:"percentage,omitempty"`
	Completed  *int   `yaml:"completed,omitempty"`
	Index      *int   `yaml:"index,omitempty"`

	// saved_locally
	Value *bool `yaml:"value,omitempty"`

	// identity: "" for the device.
	User *string `yaml:"user,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertUnlocked      = "unlocked"
	AssertProgress      = "progress"
	AssertPosition      = "position"
	AssertSavedLocally  = "saved_locally"
	AssertIdentity      = "identity"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected. The catalog path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
		return fmt.Errorf("catalog not found: %s", s.Catalog)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, acct := range s.Setup.Accounts {
		if acct.User == "" {
			return fmt.Errorf("setup.accounts[%d]: user is required", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, field, s.Do)
		}
		return nil
	}

	switch s.Do {
	case "":
		return fmt.Errorf("steps[%d]: do is required", index)
	case DoComplete:
		return need("node", s.Node)
	case DoPosition, DoOpen:
		return need("routine", s.Routine)
	case DoSignIn:
		return need("user", s.User)
	case DoRemoteFail:
		return need("op", s.Op)
	case DoAutoplay, DoPlayerAutoplay:
		if s.Enabled == nil {
			return fmt.Errorf("steps[%d]: enabled is required for %s", index, s.Do)
		}
	case DoAdvance:
		if s.Seconds <= 0 {
			return fmt.Errorf("steps[%d]: seconds must be positive for advance", index)
		}
	case DoSignOut, DoRetry, DoRemoteHeal, DoNext, DoPrevious, DoJump,
		DoVideoEnded, DoCancel, DoKey, DoPause, DoResume, DoClose:
	default:
		return fmt.Errorf("steps[%d]: unknown step %q", index, s.Do)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertUnlocked:
		if len(a.Nodes) == 0 && len(a.Locked) == 0 {
			return fmt.Errorf("assertions[%d]: nodes or locked is required for unlocked", index)
		}
	case AssertProgress:
		if a.ID == "" || a.Percentage == nil {
			return fmt.Errorf("assertions[%d]: id and percentage are required for progress", index)
		}
	case AssertPosition:
		if a.ID == "" || a.Index == nil {
			return fmt.Errorf("assertions[%d]: id and index are required for position", index)
		}
	case AssertSavedLocally:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for saved_locally", index)
		}
	case AssertIdentity:
		if a.User == nil {
			return fmt.Errorf("assertions[%d]: user is required for identity", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
