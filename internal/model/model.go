// Package model holds the immutable data types shared across KuLo's
// discovery, streaming, and rendering components.
package model

import (
	"fmt"
	"regexp"
)

// ContainerKind distinguishes the three container categories a pod spec can
// declare.
type ContainerKind string

const (
	KindMain      ContainerKind = "main"
	KindInit      ContainerKind = "init"
	KindEphemeral ContainerKind = "ephemeral"
)

// ContainerIdentity is the immutable quadruple that uniquely keys one log
// stream within a run.
type ContainerIdentity struct {
	Namespace     string
	PodName       string
	ContainerName string
	Kind          ContainerKind
}

// UniqueID returns a stable string key for use in sets and maps.
func (c ContainerIdentity) UniqueID() string {
	return fmt.Sprintf("%s/%s/%s", c.Namespace, c.PodName, c.ContainerName)
}

// PodRecord is an immutable snapshot of a pod taken at discovery time.
type PodRecord struct {
	Namespace string
	Name      string
	UID       string
	Labels    map[string]string
	Phase     string
	Containers []ContainerIdentity
}

// PodKey identifies a pod across rotation events, independent of phase.
func (p PodRecord) PodKey() string {
	return fmt.Sprintf("%s/%s/%s", p.Namespace, p.Name, p.UID)
}

// StreamContext is the immutable input to one producer.
type StreamContext struct {
	Container    ContainerIdentity
	SinceSeconds int64
	TailLines    int64
	Follow       bool
}

// ParsedLog holds the fields the renderer extracted from a JSON log line.
type ParsedLog struct {
	Level   string
	Message string
	Extra   map[string]any
	// ExtraOrder preserves the source field order for deterministic metadata
	// rendering (Go map iteration order is randomized).
	ExtraOrder []string
}

// LogEntry is one immutable line read from a container's stream.
type LogEntry struct {
	Container ContainerIdentity
	RawText   string
	Parsed    *ParsedLog
}

// RunConfig is immutable for the duration of one run (spec.md §3). It is
// the single value threaded from cmd/kulo's flag parsing into the manager:
// the manager never sees raw flag locals, only this record.
type RunConfig struct {
	Namespaces       []string
	LabelSelector    string
	IncludePatterns  []*regexp.Regexp
	ExcludePatterns  []*regexp.Regexp
	ExcludeInit      bool
	ExcludeEphemeral bool
	SinceSeconds     int64
	TailLines        int64
	Follow           bool
	MaxContainers    int
	ColorLogs        bool
}

// PodEventKind enumerates pod lifecycle events from the watch API.
type PodEventKind string

const (
	PodEventAdded    PodEventKind = "added"
	PodEventModified PodEventKind = "modified"
	PodEventDeleted  PodEventKind = "deleted"
	PodEventBookmark PodEventKind = "bookmark"
)

// PodEvent is one item from the rotation watcher.
type PodEvent struct {
	Kind PodEventKind
	Pod  PodRecord
}
