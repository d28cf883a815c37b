package manager

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JoseManuelPS/KuLo/internal/model"
	"github.com/JoseManuelPS/KuLo/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStreamer serves pre-scripted lines per container, once (snapshot
// semantics): the second call for the same container returns EOF
// immediately, matching a real API server with no new log output.
type fakeStreamer struct {
	mu     sync.Mutex
	lines  map[string][]string
	served map[string]bool
}

func newFakeStreamer(lines map[string][]string) *fakeStreamer {
	return &fakeStreamer{lines: lines, served: make(map[string]bool)}
}

func (f *fakeStreamer) StreamLogs(ctx context.Context, sc model.StreamContext) (io.ReadCloser, error) {
	id := sc.Container.UniqueID()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.served[id] {
		return io.NopCloser(strings.NewReader("")), nil
	}
	f.served[id] = true
	body := strings.Join(f.lines[id], "\n")
	if body != "" {
		body += "\n"
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type noopWatcher struct{}

func (noopWatcher) WatchPods(ctx context.Context, namespace, labelSelector string) (<-chan model.PodEvent, error) {
	ch := make(chan model.PodEvent)
	close(ch)
	return ch, nil
}

// recordingRenderer captures rendered entries and warnings in arrival
// order, guarded by a mutex since the manager's shutdown path may race a
// test's read of the slices if not synchronized through consumerDone.
type recordingRenderer struct {
	mu       sync.Mutex
	entries  []model.LogEntry
	warnings []string
	renders  int32
}

func (r *recordingRenderer) Render(entry model.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	atomic.AddInt32(&r.renders, 1)
}

func (r *recordingRenderer) Warn(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, text)
}

func (r *recordingRenderer) Error(text string) {}

func (r *recordingRenderer) snapshot() ([]model.LogEntry, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]model.LogEntry, len(r.entries))
	copy(entries, r.entries)
	warnings := make([]string, len(r.warnings))
	copy(warnings, r.warnings)
	return entries, warnings
}

func containerFor(ns, pod, name string) model.ContainerIdentity {
	return model.ContainerIdentity{Namespace: ns, PodName: pod, ContainerName: name, Kind: model.KindMain}
}

func TestRunSnapshotRendersAllLinesInOrder(t *testing.T) {
	c := containerFor("default", "web", "nginx")
	streamer := newFakeStreamer(map[string][]string{
		c.UniqueID(): {"hello", "world"},
	})
	r := &recordingRenderer{}
	m := New(streamer, noopWatcher{}, model.RunConfig{TailLines: 2, Namespaces: []string{"default"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.Run(ctx, []model.ContainerIdentity{c}, r)
	require.NoError(t, err)

	entries, _ := r.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].RawText)
	assert.Equal(t, "world", entries[1].RawText)
}

func TestRunEnforcesConcurrencyCap(t *testing.T) {
	var containers []model.ContainerIdentity
	lines := make(map[string][]string)
	for i := 0; i < 25; i++ {
		c := containerFor("default", string(rune('a'+i))+"-pod", "main")
		containers = append(containers, c)
		lines[c.UniqueID()] = []string{"x"}
	}

	streamer := newFakeStreamer(lines)
	r := &recordingRenderer{}
	m := New(streamer, noopWatcher{}, model.RunConfig{TailLines: 1, Namespaces: []string{"default"}, MaxContainers: 10})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.Run(ctx, containers, r)
	require.NoError(t, err)

	entries, warnings := r.snapshot()
	assert.Len(t, entries, 10)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "10 of 25")
}

func TestRunUnlimitedWhenMaxContainersZero(t *testing.T) {
	containers := []model.ContainerIdentity{
		containerFor("default", "a", "main"),
		containerFor("default", "b", "main"),
	}
	lines := map[string][]string{
		containers[0].UniqueID(): {"one"},
		containers[1].UniqueID(): {"two"},
	}
	streamer := newFakeStreamer(lines)
	r := &recordingRenderer{}
	m := New(streamer, noopWatcher{}, model.RunConfig{TailLines: 1, Namespaces: []string{"default"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.Run(ctx, containers, r)
	require.NoError(t, err)

	entries, warnings := r.snapshot()
	assert.Len(t, entries, 2)
	assert.Empty(t, warnings)
}

func TestRunFollowStopsOnCancellation(t *testing.T) {
	c := containerFor("default", "web", "nginx")
	streamer := newFakeStreamer(map[string][]string{c.UniqueID(): {"line1"}})
	r := &recordingRenderer{}
	m := New(streamer, noopWatcher{}, model.RunConfig{Follow: true, Namespaces: []string{"default"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, []model.ContainerIdentity{c}, r)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

// slowFailReader blocks for delay on its first Read, then fails, simulating
// a stream that stayed up long enough to count as "healthy" (spec.md §4.4's
// S = healthyStreamThreshold) before dropping.
type slowFailReader struct {
	delay time.Duration
	read  bool
}

func (s *slowFailReader) Read(p []byte) (int, error) {
	if !s.read {
		s.read = true
		time.Sleep(s.delay)
		return 0, errors.New("stream interrupted")
	}
	return 0, io.EOF
}

func (s *slowFailReader) Close() error { return nil }

// flakyStreamer scripts three StreamLogs calls for one container: an
// instant transient failure, then a failure only after running past
// healthyStreamThreshold, then a clean (empty, EOF) stream. It records the
// wall-clock time of each call so the test can tell which backoff delay was
// actually used between them.
type flakyStreamer struct {
	mu    sync.Mutex
	calls []time.Time
}

func (f *flakyStreamer) StreamLogs(ctx context.Context, sc model.StreamContext) (io.ReadCloser, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, time.Now())
	f.mu.Unlock()

	switch n {
	case 0:
		return nil, errors.New("transient failure")
	case 1:
		return &slowFailReader{delay: healthyStreamThreshold + 300*time.Millisecond}, nil
	default:
		return io.NopCloser(strings.NewReader("")), nil
	}
}

func (f *flakyStreamer) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.calls))
	copy(out, f.calls)
	return out
}

// TestRunRetriesWithBackoffAndResetsAfterHealthyStream covers scenario S4:
// a producer whose stream runs at least healthyStreamThreshold before
// failing reconnects on the short backoff again, rather than continuing to
// grow it from the prior transient failure.
func TestRunRetriesWithBackoffAndResetsAfterHealthyStream(t *testing.T) {
	c := containerFor("default", "web", "nginx")
	streamer := &flakyStreamer{}
	r := &recordingRenderer{}
	m := New(streamer, noopWatcher{}, model.RunConfig{Follow: true, Namespaces: []string{"default"}})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, []model.ContainerIdentity{c}, r)
	}()

	require.Eventually(t, func() bool {
		return len(streamer.callTimes()) >= 3
	}, 12*time.Second, 20*time.Millisecond)

	cancel()
	<-done

	calls := streamer.callTimes()
	require.GreaterOrEqual(t, len(calls), 3)

	// Between call 0 (instant failure) and call 1: retry went 0->1, so the
	// wait is Backoff(1) = 2s.
	firstGap := calls[1].Sub(calls[0])
	assert.GreaterOrEqual(t, firstGap, 2*time.Second-200*time.Millisecond)

	// Call 1 itself runs past healthyStreamThreshold before failing, which
	// resets retry to 0. The wait before call 2 must be Backoff(0) = 1s, not
	// Backoff(2) = 4s (what an un-reset counter would produce).
	secondGap := calls[2].Sub(calls[1]) - (healthyStreamThreshold + 300*time.Millisecond)
	assert.Less(t, secondGap, 2500*time.Millisecond, "backoff did not reset after a healthy stream")
}

// scriptedWatcher replays a fixed sequence of PodEvents once, then leaves
// the channel open and silent, simulating a rotation watcher mid-run.
type scriptedWatcher struct {
	events []model.PodEvent
}

func (w *scriptedWatcher) WatchPods(ctx context.Context, namespace, labelSelector string) (<-chan model.PodEvent, error) {
	ch := make(chan model.PodEvent, len(w.events))
	for _, ev := range w.events {
		ch <- ev
	}
	return ch, nil
}

// TestRunRotationAppliesIncludeExcludeFilters covers scenario S5 together
// with the include/exclude gate: a rotated pod that matches the run's
// include pattern is streamed, one that doesn't is never admitted even
// though the watcher reports it too.
func TestRunRotationAppliesIncludeExcludeFilters(t *testing.T) {
	matching := model.PodRecord{
		Namespace: "default",
		Name:      "web-v2",
		UID:       "uid-web-v2",
		Phase:     "Running",
		Containers: []model.ContainerIdentity{
			containerFor("default", "web-v2", "nginx"),
		},
	}
	nonMatching := model.PodRecord{
		Namespace: "default",
		Name:      "worker-v1",
		UID:       "uid-worker-v1",
		Phase:     "Running",
		Containers: []model.ContainerIdentity{
			containerFor("default", "worker-v1", "nginx"),
		},
	}

	watcher := &scriptedWatcher{events: []model.PodEvent{
		{Kind: model.PodEventAdded, Pod: matching},
		{Kind: model.PodEventAdded, Pod: nonMatching},
	}}

	lines := map[string][]string{
		containerFor("default", "web-v2", "nginx").UniqueID():    {"admitted"},
		containerFor("default", "worker-v1", "nginx").UniqueID(): {"should never render"},
	}
	streamer := newFakeStreamer(lines)
	r := &recordingRenderer{}

	include, err := util.CompilePatterns("web-.*")
	require.NoError(t, err)

	m := New(streamer, watcher, model.RunConfig{
		Follow:          true,
		Namespaces:      []string{"default"},
		IncludePatterns: include,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, nil, r)
	}()

	require.Eventually(t, func() bool {
		entries, _ := r.snapshot()
		return len(entries) >= 1
	}, 3*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	entries, _ := r.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "admitted", entries[0].RawText)
}
