package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	catalog, err := filepath.Abs(filepath.Join("..", "catalog", "testdata", "catalog.yaml"))
	require.NoError(t, err)
	data, err := os.ReadFile(catalog)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), data, 0o644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalScenario = `name: minimal
description: "one completion"
catalog: catalog.yaml
steps:
  - do: complete
    node: h1
assertions:
  - type: unlocked
    nodes: [h2]
`

func TestLoadScenario_ResolvesCatalogRelativeToFile(t *testing.T) {
	path := writeScenario(t, minimalScenario)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "catalog.yaml"), s.Catalog)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, Step{Do: DoComplete, Node: "h1"}, s.Steps[0])
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, minimalScenario+"assertion:\n  - type: unlocked\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "description: d\ncatalog: catalog.yaml\nsteps: [{do: signout}]\nassertions: [{type: identity, user: ''}]\n",
			want: "name is required",
		},
		{
			name: "missing catalog file",
			body: "name: n\ndescription: d\ncatalog: other.yaml\nsteps: [{do: signout}]\nassertions: [{type: identity, user: ''}]\n",
			want: "catalog not found",
		},
		{
			name: "no steps",
			body: "name: n\ndescription: d\ncatalog: catalog.yaml\nassertions: [{type: identity, user: ''}]\n",
			want: "steps list is required",
		},
		{
			name: "unknown step",
			body: "name: n\ndescription: d\ncatalog: catalog.yaml\nsteps: [{do: dance}]\nassertions: [{type: identity, user: ''}]\n",
			want: `steps[0]: unknown step "dance"`,
		},
		{
			name: "complete without node",
			body: "name: n\ndescription: d\ncatalog: catalog.yaml\nsteps: [{do: complete}]\nassertions: [{type: identity, user: ''}]\n",
			want: "steps[0]: node is required for complete",
		},
		{
			name: "autoplay without enabled",
			body: "name: n\ndescription: d\ncatalog: catalog.yaml\nsteps: [{do: autoplay}]\nassertions: [{type: identity, user: ''}]\n",
			want: "enabled is required for autoplay",
		},
		{
			name: "advance without seconds",
			body: "name: n\ndescription: d\ncatalog: catalog.yaml\nsteps: [{do: advance}]\nassertions: [{type: identity, user: ''}]\n",
			want: "seconds must be positive",
		},
		{
			name: "unknown assertion",
			body: "name: n\ndescription: d\ncatalog: catalog.yaml\nsteps: [{do: signout}]\nassertions: [{type: final_state}]\n",
			want: `unknown assertion type "final_state"`,
		},
		{
			name: "progress without percentage",
			body: "name: n\ndescription: d\ncatalog: catalog.yaml\nsteps: [{do: signout}]\nassertions: [{type: progress, id: foundation}]\n",
			want: "id and percentage are required",
		},
		{
			name: "account without user",
			body: "name: n\ndescription: d\ncatalog: catalog.yaml\nsetup: {accounts: [{completions: [h1]}]}\nsteps: [{do: signout}]\nassertions: [{type: identity, user: ''}]\n",
			want: "setup.accounts[0]: user is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
