package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/folio/internal/ir"
)

func TestWaitGraph_ChainHasNoCycle(t *testing.T) {
	g := waitGraph{
		"rep:/a:default": {"rep:/b:default"},
		"rep:/b:default": {"rep:/c:default"},
	}
	assert.Empty(t, g.cycles())
}

func TestWaitGraph_CycleStartsAtSmallestRep(t *testing.T) {
	g := waitGraph{
		"rep:/c:default": {"rep:/a:default"},
		"rep:/a:default": {"rep:/b:default"},
		"rep:/b:default": {"rep:/c:default"},
		// Waits on the cycle without being part of it.
		"rep:/d:default": {"rep:/a:default"},
	}
	assert.Equal(t, [][]ir.Reference{
		{"rep:/a:default", "rep:/b:default", "rep:/c:default", "rep:/a:default"},
	}, g.cycles())
}

func TestWaitGraph_SelfLoop(t *testing.T) {
	g := waitGraph{"rep:/a:default": {"rep:/a:default"}}
	assert.Equal(t, [][]ir.Reference{{"rep:/a:default", "rep:/a:default"}}, g.cycles())
}

func TestWaitGraph_SeparateCyclesAreSorted(t *testing.T) {
	g := waitGraph{
		"rep:/y:default": {"rep:/z:default"},
		"rep:/z:default": {"rep:/y:default"},
		"rep:/a:default": {"rep:/b:default"},
		"rep:/b:default": {"rep:/a:default"},
	}
	cycles := g.cycles()
	assert.Len(t, cycles, 2)
	assert.Equal(t, ir.Reference("rep:/a:default"), cycles[0][0])
	assert.Equal(t, ir.Reference("rep:/y:default"), cycles[1][0])
}
