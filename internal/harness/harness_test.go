package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"unlock_chain", "autoplay_countdown"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "autoplay_countdown")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_UnexpectedStepError(t *testing.T) {
	s := loadTestScenario(t, "unlock_chain")
	s.Steps[3].Error = ""

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[3] complete: unexpected error (unknown_node)")
}

func TestRun_MissingExpectedError(t *testing.T) {
	s := loadTestScenario(t, "unlock_chain")
	s.Steps[0].Error = KindNoRemote

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected no_remote error, got none")
}

func TestRun_FailingAssertion(t *testing.T) {
	s := loadTestScenario(t, "unlock_chain")
	pct := 50
	s.Assertions = []Assertion{{Type: AssertProgress, ID: "foundation", Percentage: &pct}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: foundation at 50%")
	assert.Contains(t, result.Errors[0], "Actual: 100% with 3/3 completed")
}

func TestRun_PlayerStepWithoutOpen(t *testing.T) {
	s := loadTestScenario(t, "unlock_chain")
	s.Steps = []Step{{Do: DoVideoEnded}}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no open player")
}

func TestRun_BadCatalog(t *testing.T) {
	s := loadTestScenario(t, "unlock_chain")
	s.Catalog = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}

func TestRun_OpenUnknownRoutine(t *testing.T) {
	s := loadTestScenario(t, "unlock_chain")
	s.Steps = []Step{{Do: DoOpen, Routine: "evening", Error: KindUnknownNode}}
	s.Assertions = []Assertion{{Type: AssertTraceContains, Event: EventError, Kind: KindUnknownNode}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
