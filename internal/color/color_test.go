package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitializeDeterministic(t *testing.T) {
	pods := []string{"web-2", "web-1", "api-1"}

	a1 := NewAssigner()
	a1.Initialize(pods)

	a2 := NewAssigner()
	a2.Initialize(pods)

	for _, p := range pods {
		assert.Equal(t, a1.Get(p), a2.Get(p), p)
	}

	// Sorted order: api-1, web-1, web-2 -> palette[0], palette[1], palette[2]
	assert.Equal(t, Palette[0], a1.Get("api-1"))
	assert.Equal(t, Palette[1], a1.Get("web-1"))
	assert.Equal(t, Palette[2], a1.Get("web-2"))
}

func TestGetAssignsUnseenPod(t *testing.T) {
	a := NewAssigner()
	a.Initialize([]string{"a", "b"})

	c := a.Get("c")
	assert.Equal(t, Palette[2], c)
	// Calling again must not reassign.
	assert.Equal(t, c, a.Get("c"))
}

func TestPaletteWraps(t *testing.T) {
	a := NewAssigner()
	names := make([]string, len(Palette)+3)
	for i := range names {
		names[i] = string(rune('a' + i))
	}
	a.Initialize(names)

	sorted := make([]string, len(names))
	copy(sorted, names)
	// names are already alphabetically increasing single letters.
	first := a.Get(sorted[0])
	wrapped := a.Get(sorted[len(Palette)])
	assert.Equal(t, first, wrapped)
}
