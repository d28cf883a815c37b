// Package color assigns terminal colors to pod names deterministically,
// using Kenneth Kelly's 20-color palette of maximum perceptual contrast.
package color

import (
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette is Kelly's palette of maximum contrast, minus white/black for
// terminal compatibility.
var Palette = []lipgloss.Color{
	lipgloss.Color("#F3C300"), // Vivid Yellow
	lipgloss.Color("#875692"), // Strong Purple
	lipgloss.Color("#F38400"), // Vivid Orange
	lipgloss.Color("#A1CAF1"), // Vivid Light Blue
	lipgloss.Color("#BE0032"), // Vivid Red
	lipgloss.Color("#C2B280"), // Grayish Yellow
	lipgloss.Color("#848482"), // Medium Gray
	lipgloss.Color("#008856"), // Strong Green
	lipgloss.Color("#E68FAC"), // Strong Purplish Pink
	lipgloss.Color("#0067A5"), // Strong Blue
	lipgloss.Color("#F99379"), // Vivid Yellowish Pink
	lipgloss.Color("#604E97"), // Strong Violet
	lipgloss.Color("#F6A600"), // Vivid Orange Yellow
	lipgloss.Color("#B3446C"), // Strong Purplish Red
	lipgloss.Color("#DCD300"), // Vivid Greenish Yellow
	lipgloss.Color("#882D17"), // Strong Reddish Brown
	lipgloss.Color("#8DB600"), // Vivid Yellow Green
	lipgloss.Color("#654522"), // Deep Yellowish Brown
	lipgloss.Color("#E25822"), // Vivid Reddish Orange
	lipgloss.Color("#2B3D26"), // Dark Olive Green
}

// Assigner deterministically maps pod names to palette colors. Safe for
// concurrent use: producers and the rotation watcher may call Get for pods
// discovered after Initialize.
type Assigner struct {
	mu          sync.Mutex
	palette     []lipgloss.Color
	assignments map[string]lipgloss.Color
	next        int
}

// NewAssigner creates an Assigner over the default Kelly palette.
func NewAssigner() *Assigner {
	return &Assigner{
		palette:     Palette,
		assignments: make(map[string]lipgloss.Color),
	}
}

// Initialize assigns colors to podNames sorted lexicographically, indices
// 0, 1, ... modulo len(palette). Never call this after streaming begins;
// it discards any prior assignments.
func (a *Assigner) Initialize(podNames []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sorted := make([]string, len(podNames))
	copy(sorted, podNames)
	sort.Strings(sorted)

	a.assignments = make(map[string]lipgloss.Color, len(sorted))
	a.next = 0
	for _, name := range sorted {
		a.assignLocked(name)
	}
}

// Get returns the color assigned to pod, assigning the next unused
// (wrapping) index if pod hasn't been seen before.
func (a *Assigner) Get(pod string) lipgloss.Color {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.assignments[pod]; ok {
		return c
	}
	return a.assignLocked(pod)
}

func (a *Assigner) assignLocked(pod string) lipgloss.Color {
	if c, ok := a.assignments[pod]; ok {
		return c
	}
	c := a.palette[a.next%len(a.palette)]
	a.assignments[pod] = c
	a.next++
	return c
}
