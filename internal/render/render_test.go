package render

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/JoseManuelPS/KuLo/internal/color"
	"github.com/JoseManuelPS/KuLo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	return buf.String()
}

func newTestRenderer(alignmentWidth int, singleNamespace bool, counts map[string]int) *SnapshotRenderer {
	assigner := color.NewAssigner()
	assigner.Initialize([]string{"web"})
	return NewSnapshotRenderer(assigner, alignmentWidth, singleNamespace, counts, true)
}

func TestS1SingleNamespaceSingleContainerOmitsBoth(t *testing.T) {
	r := newTestRenderer(len("web"), true, map[string]int{"web": 1})
	c := model.ContainerIdentity{Namespace: "default", PodName: "web", ContainerName: "nginx", Kind: model.KindMain}

	out := captureStdout(t, func() {
		r.Render(model.LogEntry{Container: c, RawText: "hello"})
		r.Render(model.LogEntry{Container: c, RawText: "world"})
	})

	assert.Equal(t, "web > hello\nweb > world\n", out)
}

func TestS2MultiNamespacePadsToEqualWidth(t *testing.T) {
	width := AlignmentWidth("b", "p2", "", false, true)
	assigner := color.NewAssigner()
	assigner.Initialize([]string{"p1", "p2"})
	r := NewSnapshotRenderer(assigner, width, false, map[string]int{"p1": 1, "p2": 1}, true)

	out := captureStdout(t, func() {
		r.Render(model.LogEntry{Container: model.ContainerIdentity{Namespace: "a", PodName: "p1"}, RawText: "x"})
		r.Render(model.LogEntry{Container: model.ContainerIdentity{Namespace: "b", PodName: "p2"}, RawText: "y"})
	})

	require.NotEmpty(t, out)
	assert.Contains(t, out, "[a] p1")
	assert.Contains(t, out, "[b] p2")

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[0], " > "), strings.Index(lines[1], " > "))
	assert.Equal(t, width, strings.Index(lines[0], " > "))
}

func TestS3JSONIntelligenceExtractsLevelMessageMetadata(t *testing.T) {
	raw := `{"level":"INFO","msg":"Request received","path":"/api/users","method":"GET"}`
	parsed := ParseJSONLog(raw)
	require.NotNil(t, parsed)
	assert.Equal(t, "INFO", parsed.Level)
	assert.Equal(t, "Request received", parsed.Message)
	assert.Equal(t, []string{"path", "method"}, parsed.ExtraOrder)
	assert.Equal(t, "/api/users", parsed.Extra["path"])
	assert.Equal(t, "GET", parsed.Extra["method"])
}

// TestRenderAppliesJSONIntelligenceFromRawText guards against S3 regressing
// to dead code: a LogEntry as the manager actually produces it, with only
// RawText set and Parsed left nil, must still render with level/message/
// metadata extraction applied.
func TestRenderAppliesJSONIntelligenceFromRawText(t *testing.T) {
	r := newTestRenderer(len("web"), true, map[string]int{"web": 1})
	c := model.ContainerIdentity{Namespace: "default", PodName: "web", ContainerName: "nginx", Kind: model.KindMain}
	entry := model.LogEntry{Container: c, RawText: `{"level":"INFO","msg":"started","port":8080}`}
	require.Nil(t, entry.Parsed)

	out := captureStdout(t, func() { r.Render(entry) })

	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "started")
	assert.Contains(t, out, "port=8080")
}

func TestParseJSONLogNonJSONReturnsNil(t *testing.T) {
	assert.Nil(t, ParseJSONLog("plain text line"))
	assert.Nil(t, ParseJSONLog("  not json {"))
}

func TestNormalizeLevel(t *testing.T) {
	cases := map[string]string{
		"info": "INFO", "INF": "INFO",
		"warn": "WARN", "WARNING": "WARN",
		"error": "ERROR", "ERR": "ERROR", "fatal": "ERROR", "CRIT": "ERROR",
		"debug": "DEBUG", "DBG": "DEBUG",
		"unknown": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeLevel(in), in)
	}
}

func TestRenderIdempotent(t *testing.T) {
	r := newTestRenderer(len("web"), true, map[string]int{"web": 1})
	c := model.ContainerIdentity{Namespace: "default", PodName: "web", ContainerName: "nginx", Kind: model.KindMain}
	entry := model.LogEntry{Container: c, RawText: "hello"}

	out1 := captureStdout(t, func() { r.Render(entry) })
	out2 := captureStdout(t, func() { r.Render(entry) })
	assert.Equal(t, out1, out2)
}

func TestEnsureAlignmentGrowsNotShrinks(t *testing.T) {
	r := newTestRenderer(3, true, map[string]int{"web": 1})
	r.EnsureAlignment(2)
	assert.Equal(t, 3, r.alignmentWidth)
	r.EnsureAlignment(10)
	assert.Equal(t, 10, r.alignmentWidth)
}
