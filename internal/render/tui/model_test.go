package tui

import (
	"testing"

	"github.com/JoseManuelPS/KuLo/internal/color"
	"github.com/JoseManuelPS/KuLo/internal/model"
	"github.com/JoseManuelPS/KuLo/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRenderAppendsFormattedLine(t *testing.T) {
	colors := color.NewAssigner()
	colors.Initialize([]string{"web"})

	m := &Model{
		viewer:            NewLogViewer(),
		sidebar:           NewFuzzyList("Pods"),
		colors:            colors,
		alignmentWidth:    len("web"),
		singleNamespace:   true,
		podContainerCount: map[string]int{"web": 1},
		colorLogs:         false,
	}

	entry := model.LogEntry{
		Container: model.ContainerIdentity{Namespace: "default", PodName: "web", ContainerName: "nginx", Kind: model.KindMain},
		RawText:   "hello",
	}
	line := render.FormatEntry(entry, m.colors, m.alignmentWidth, m.singleNamespace, m.podContainerCount, !m.colorLogs)
	m.Update(logLineMsg{text: line})

	require.Len(t, m.viewer.allLines, 1)
	assert.Equal(t, "web > hello", m.viewer.allLines[0])
}

func TestModelEnsureAlignmentGrowsNotShrinks(t *testing.T) {
	m := &Model{alignmentWidth: 5}
	m.EnsureAlignment(3)
	assert.Equal(t, 5, m.alignmentWidth)
	m.EnsureAlignment(12)
	assert.Equal(t, 12, m.alignmentWidth)
}

func TestFuzzyListFiltersByPodName(t *testing.T) {
	f := NewFuzzyList("Pods")
	f.SetItems([]string{"web-1", "web-2", "worker-1"})

	f.textInput.SetValue("work")
	f.filterItems()

	assert.Equal(t, 1, len(f.filtered))
	assert.Equal(t, "worker-1", f.filtered[0].Str)
}

func TestFuzzyListGetSelectedEmptyWhenNoItems(t *testing.T) {
	f := NewFuzzyList("Pods")
	assert.Equal(t, "", f.GetSelected())
}

func TestLogViewerSetSearchQueryFilters(t *testing.T) {
	l := NewLogViewer()
	l.SetSize(80, 24)
	l.AppendLog("web > hello")
	l.AppendLog("worker > world")

	l.SetSearchQuery("worker")

	require.Len(t, l.filteredLines, 1)
	assert.Equal(t, "worker > world", l.filteredLines[0])
}
