package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAssignTermPositionsFillsGaps mirrors the LexoRank contract: terms
// that already carry a Position are left untouched, and terms submitted
// without one are assigned a rank that sorts between their nearest
// explicit neighbors.
func TestAssignTermPositionsFillsGaps(t *testing.T) {
	p := &Policy{Terms: []PolicyTerm{
		{Name: "first", Position: "a"},
		{Name: "inserted"},
		{Name: "last", Position: "c"},
	}}

	p.AssignTermPositions()

	require.Equal(t, "a", p.Terms[0].Position)
	require.Equal(t, "c", p.Terms[2].Position)
	require.Greater(t, p.Terms[1].Position, p.Terms[0].Position)
	require.Less(t, p.Terms[1].Position, p.Terms[2].Position)
}

func TestAssignTermPositionsEmptyList(t *testing.T) {
	p := &Policy{Terms: []PolicyTerm{{Name: "only"}}}
	p.AssignTermPositions()
	require.NotEmpty(t, p.Terms[0].Position)
}

func TestAssignTermPositionsAppendsAtEnd(t *testing.T) {
	p := &Policy{Terms: []PolicyTerm{
		{Name: "first", Position: "n"},
		{Name: "appended"},
	}}
	p.AssignTermPositions()
	require.Greater(t, p.Terms[1].Position, p.Terms[0].Position)
}
