// Package render turns log entries into styled terminal lines: a
// `[NS] POD (CONTAINER) > message` prefix with smart omission, monotonic
// alignment, pod coloring, and JSON log intelligence. Grounded on
// original_source/utils.py's LOG_LEVEL_FIELDS/MESSAGE_FIELDS/LOG_LEVEL_COLORS
// tables and khelper/pkg/ui/styles.go's one-lipgloss.Style-per-concern idiom.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/JoseManuelPS/KuLo/internal/color"
	"github.com/JoseManuelPS/KuLo/internal/model"
)

// Renderer is the sole seam between the concurrency core and the terminal.
// The manager depends only on this interface, never on a concrete
// implementation (spec.md §4.7).
type Renderer interface {
	Render(entry model.LogEntry)
	Warn(text string)
	Error(text string)
}

// levelFields is the priority order extractLevel checks, narrowed to the
// three fields spec.md §4.6 names (the teacher's original list also carried
// loglevel/log_level; KuLo keeps only what the spec asks for).
var levelFields = []string{"level", "severity", "lvl"}

// messageFields is the priority order extractMessage checks.
var messageFields = []string{"msg", "message"}

var (
	levelColors = map[string]lipgloss.Style{
		"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("#008856")),
		"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("#F3C300")),
		"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("#BE0032")),
		"DEBUG": lipgloss.NewStyle().Faint(true),
	}
	dimStyle   = lipgloss.NewStyle().Faint(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F3C300")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#BE0032")).Bold(true)
)

// normalizeLevel maps raw level spellings onto the four canonical names per
// spec.md §4.6.
func normalizeLevel(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "INFO", "INF":
		return "INFO"
	case "WARN", "WARNING":
		return "WARN"
	case "ERROR", "ERR", "FATAL", "CRIT":
		return "ERROR"
	case "DEBUG", "DBG":
		return "DEBUG"
	default:
		return ""
	}
}

// ParseJSONLog attempts to extract level/message/metadata from a raw log
// line per spec.md §4.6's JSON intelligence rule. Returns nil if the line
// isn't a JSON object.
func ParseJSONLog(raw string) *model.ParsedLog {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	var order []string
	fields := make(map[string]any)
	if err := decodeObjectPreservingOrder(dec, fields, &order); err != nil {
		return nil
	}

	parsed := &model.ParsedLog{Extra: make(map[string]any)}

	levelKey, levelVal := firstStringField(fields, levelFields)
	msgKey, msgVal := firstStringField(fields, messageFields)
	parsed.Level = normalizeLevel(levelVal)
	parsed.Message = msgVal

	for _, key := range order {
		if key == levelKey || key == msgKey {
			continue
		}
		parsed.Extra[key] = fields[key]
		parsed.ExtraOrder = append(parsed.ExtraOrder, key)
	}

	return parsed
}

func firstStringField(fields map[string]any, priority []string) (key, value string) {
	for _, k := range priority {
		if v, ok := fields[k]; ok {
			if s, ok := v.(string); ok {
				return k, s
			}
		}
	}
	return "", ""
}

// decodeObjectPreservingOrder decodes a single JSON object, recording the
// source field order in *order since encoding/json discards it via a map.
func decodeObjectPreservingOrder(dec *json.Decoder, fields map[string]any, order *[]string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("not a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token")
		}

		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}

		fields[key] = val
		*order = append(*order, key)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// SnapshotRenderer is the default, always-available Renderer: it writes
// styled lines directly to os.Stdout. Deterministic; the only I/O it
// performs is the terminal write.
type SnapshotRenderer struct {
	colors *color.Assigner
	noColor bool

	mu              sync.Mutex
	alignmentWidth  int
	singleNamespace bool
	podContainerCount map[string]int
}

// NewSnapshotRenderer constructs a renderer. alignmentWidth is the max
// prefix width across the admitted container set, computed once at
// startup (spec.md §4.6 "Alignment"). singleNamespace suppresses the `[NS]`
// segment; podContainerCount maps pod name to its admitted container count,
// used to suppress `(CONTAINER)` for single-container pods.
func NewSnapshotRenderer(colors *color.Assigner, alignmentWidth int, singleNamespace bool, podContainerCount map[string]int, noColor bool) *SnapshotRenderer {
	return &SnapshotRenderer{
		colors:            colors,
		noColor:           noColor,
		alignmentWidth:    alignmentWidth,
		singleNamespace:   singleNamespace,
		podContainerCount: podContainerCount,
	}
}

// AlignmentWidth computes the prefix width for one container identity
// under the smart-omission rules, for use when pre-computing the run's
// overall alignment width at startup.
func AlignmentWidth(namespace, pod, container string, singleNamespace bool, singleContainer bool) int {
	prefix := prefixText(namespace, pod, container, singleNamespace, singleContainer)
	return lipgloss.Width(prefix)
}

func prefixText(namespace, pod, container string, singleNamespace, singleContainer bool) string {
	var b strings.Builder
	if !singleNamespace {
		b.WriteString("[" + namespace + "] ")
	}
	b.WriteString(pod)
	if !singleContainer {
		b.WriteString(" (" + container + ")")
	}
	return b.String()
}

// EnsureAlignment grows the alignment width to accommodate a container
// identity discovered after startup (pod rotation). The width never
// shrinks, per spec.md §4.6's monotonic-non-decreasing rule.
func (s *SnapshotRenderer) EnsureAlignment(width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width > s.alignmentWidth {
		s.alignmentWidth = width
	}
}

// Render writes one styled line for entry (spec.md §4.6).
func (s *SnapshotRenderer) Render(entry model.LogEntry) {
	s.mu.Lock()
	width := s.alignmentWidth
	s.mu.Unlock()

	fmt.Fprintln(os.Stdout, FormatEntry(entry, s.colors, width, s.singleNamespace, s.podContainerCount, s.noColor))
}

// FormatEntry renders entry's full prefixed, padded, styled line, with no
// trailing newline. Shared by SnapshotRenderer and the interactive TUI so
// both surfaces apply spec.md §4.6's smart-omission, alignment, and JSON
// intelligence identically.
func FormatEntry(entry model.LogEntry, colors *color.Assigner, alignmentWidth int, singleNamespace bool, podContainerCount map[string]int, noColor bool) string {
	c := entry.Container
	singleContainer := podContainerCount[c.PodName] <= 1
	prefix := prefixText(c.Namespace, c.PodName, c.ContainerName, singleNamespace, singleContainer)

	padded := prefix
	if w := lipgloss.Width(prefix); w < alignmentWidth {
		padded = strings.Repeat(" ", alignmentWidth-w) + prefix
	}

	renderedPrefix := padded
	if !noColor {
		renderedPrefix = lipgloss.NewStyle().Foreground(colors.Get(c.PodName)).Render(padded)
	}

	return fmt.Sprintf("%s > %s", renderedPrefix, formatBody(entry, colors, noColor))
}

// formatBody renders entry's message portion: JSON-intelligent when entry's
// raw line is a JSON object, otherwise the raw line colored with the pod's
// color. The manager never parses JSON itself (spec.md §4.7's render
// seam); parsing happens here, lazily, the first (and only) time a line is
// rendered.
func formatBody(entry model.LogEntry, colors *color.Assigner, noColor bool) string {
	podColor := colors.Get(entry.Container.PodName)
	podStyle := lipgloss.NewStyle().Foreground(podColor)

	parsed := entry.Parsed
	if parsed == nil {
		parsed = ParseJSONLog(entry.RawText)
	}

	if parsed == nil {
		if noColor {
			return entry.RawText
		}
		return podStyle.Render(entry.RawText)
	}

	p := parsed
	var b strings.Builder

	if p.Level != "" {
		if noColor {
			b.WriteString("[" + p.Level + "] ")
		} else {
			style, ok := levelColors[p.Level]
			if !ok {
				style = lipgloss.NewStyle()
			}
			b.WriteString(style.Render("["+p.Level+"]") + " ")
		}
	}

	msg := p.Message
	if msg == "" {
		msg = entry.RawText
	}
	if noColor {
		b.WriteString(msg)
	} else {
		b.WriteString(podStyle.Render(msg))
	}

	if len(p.ExtraOrder) > 0 {
		var kv []string
		for _, k := range p.ExtraOrder {
			kv = append(kv, fmt.Sprintf("%s=%v", k, p.Extra[k]))
		}
		meta := "  " + strings.Join(kv, " ")
		if noColor {
			b.WriteString(meta)
		} else {
			b.WriteString(dimStyle.Render(meta))
		}
	}

	return b.String()
}

// Warn writes a warning line (e.g. concurrency-cap truncation, permission
// denied on one stream) to stdout alongside the log stream.
func (s *SnapshotRenderer) Warn(text string) {
	if s.noColor {
		fmt.Fprintln(os.Stdout, "[WARN] "+text)
		return
	}
	fmt.Fprintln(os.Stdout, warnStyle.Render("[WARN]")+" "+text)
}

// Error writes a fatal-adjacent error line to stdout.
func (s *SnapshotRenderer) Error(text string) {
	if s.noColor {
		fmt.Fprintln(os.Stdout, "[ERROR] "+text)
		return
	}
	fmt.Fprintln(os.Stdout, errorStyle.Render("[ERROR]")+" "+text)
}
