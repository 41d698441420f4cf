package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_IndexesChildren(t *testing.T) {
	c, err := NewCatalog([]Node{
		{ID: "foundation", Kind: KindLevel},
		{ID: "h1", Kind: KindHack, ParentLevelID: "foundation", RequiredInParent: true},
		{ID: "h2", Kind: KindHack, ParentLevelID: "foundation", Prerequisites: []string{"h1", "h1"}},
	}, []Routine{{ID: "morning", Steps: []string{"h1", " ", "h2"}}})
	require.NoError(t, err)

	hacks := c.HacksOf("foundation")
	require.Len(t, hacks, 2)
	assert.Equal(t, "h1", hacks[0].ID)

	h2, ok := c.Node("h2")
	require.True(t, ok)
	assert.Equal(t, []string{"h1"}, h2.Prerequisites, "duplicate prerequisites collapse")

	r, ok := c.Routine("morning")
	require.True(t, ok)
	assert.Equal(t, 2, r.TotalSteps())
	assert.True(t, r.ValidPosition(1))
	assert.False(t, r.ValidPosition(2))
	assert.Len(t, c.NodesOfKind(KindLevel), 1)
}

func TestNewCatalog_RejectsRepeatedStep(t *testing.T) {
	_, err := NewCatalog([]Node{{ID: "h1", Kind: KindHack}}, []Routine{{ID: "r", Steps: []string{"h1", " H1"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeats step")
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Node{
		{ID: "h1", Kind: KindHack},
		{ID: " h1", Kind: KindHack},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestNewCatalog_RejectsUnknownKind(t *testing.T) {
	_, err := NewCatalog([]Node{{ID: "x", Kind: "quest"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}
