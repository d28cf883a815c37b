// Package manager is the concurrency core: it schedules bounded producers,
// drains them through a single consumer into a Renderer, and coordinates
// shutdown. It is the Go mapping of original_source/manager.py's asyncio
// LogManager onto goroutines, channels, and context.Context.
package manager

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/JoseManuelPS/KuLo/internal/color"
	"github.com/JoseManuelPS/KuLo/internal/discovery"
	"github.com/JoseManuelPS/KuLo/internal/kuloerr"
	"github.com/JoseManuelPS/KuLo/internal/model"
	"github.com/JoseManuelPS/KuLo/internal/render"
	"github.com/JoseManuelPS/KuLo/internal/util"
)

// healthyStreamThreshold is S from spec.md §4.4: a stream that ran at least
// this long before failing resets its producer's retry counter.
const healthyStreamThreshold = 5 * time.Second

// shutdownGrace bounds how long Run waits for producers to clean up after
// cancellation before returning anyway.
const shutdownGrace = 2 * time.Second

// queueCapacity is the consumer queue's backpressure bound (spec.md §5).
const queueCapacity = 1024

// consumerPollInterval is the period of the consumer's idle wake-up ticker.
// The consumer does not watch ctx; it exits only once Run closes the queue
// and everything left on it has been rendered.
const consumerPollInterval = 250 * time.Millisecond

// LogStreamer is the subset of k8s.Client the manager needs to open a log
// stream. Decoupled from the concrete client for testability.
type LogStreamer interface {
	StreamLogs(ctx context.Context, sc model.StreamContext) (io.ReadCloser, error)
}

// PodWatcher is the subset of k8s.Client the rotation watcher needs.
type PodWatcher interface {
	WatchPods(ctx context.Context, namespace, labelSelector string) (<-chan model.PodEvent, error)
}

// Manager owns the run's mutable concurrency state: the queue, the live
// producer set, the semaphore, and the color assigner (spec.md §3's
// "shared-resource policy" — these are owned by the manager alone; the
// renderer only reads from the same Assigner instance via Colors()).
// Constructed once per run and never reused.
type Manager struct {
	streamer LogStreamer
	watcher  PodWatcher

	cfg model.RunConfig

	queue chan model.LogEntry
	sem   chan struct{}

	mu   sync.Mutex
	live map[string]bool
	wg   sync.WaitGroup

	colors          *color.Assigner
	singleNamespace bool
}

// alignmentAware is implemented by render.SnapshotRenderer. Checked via
// type assertion so the manager stays decoupled from the concrete renderer.
type alignmentAware interface {
	EnsureAlignment(width int)
}

// New constructs a Manager bound to streamer (log streaming) and watcher
// (pod rotation, used only when cfg.Follow is true). cfg is the run's
// immutable configuration record (spec.md §3); New and Run are its sole
// consumers, so cmd/kulo never threads loose flag locals past this point.
func New(streamer LogStreamer, watcher PodWatcher, cfg model.RunConfig) *Manager {
	return &Manager{
		streamer: streamer,
		watcher:  watcher,
		cfg:      cfg,
		queue:    make(chan model.LogEntry, queueCapacity),
		live:     make(map[string]bool),
		colors:   color.NewAssigner(),
	}
}

// Colors exposes the run's color assigner so the renderer can look up a
// pod's assigned color. It is the same instance Run initializes from the
// admitted container set — the only Assigner constructed for the run.
func (m *Manager) Colors() *color.Assigner {
	return m.colors
}

// Run blocks until every producer has finished naturally (follow=false), a
// shutdown signal cancels ctx, or an unrecoverable error occurs. It returns
// cleanly in all cases: no dangling goroutines, no open streams, no items
// left on the queue (spec.md §4.4 public operation contract).
func (m *Manager) Run(ctx context.Context, containers []model.ContainerIdentity, r render.Renderer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	follow := m.cfg.Follow
	maxContainers := m.cfg.MaxContainers

	sorted := sortedContainers(containers)
	admitted, truncated := discovery.Truncate(sorted, maxContainers)
	if truncated {
		r.Warn(fmt.Sprintf("concurrency cap reached: admitting %d of %d containers (--max-containers=%d)", len(admitted), len(sorted), maxContainers))
	}

	m.colors.Initialize(uniquePodNames(admitted))
	m.singleNamespace = len(m.cfg.Namespaces) <= 1

	if maxContainers > 0 {
		m.sem = make(chan struct{}, maxContainers)
	}

	consumerDone := make(chan struct{})
	go m.consume(ctx, r, consumerDone)

	for _, c := range admitted {
		m.startProducer(ctx, c, follow, false, r)
	}

	var watchWG sync.WaitGroup
	if follow {
		for _, ns := range m.cfg.Namespaces {
			watchWG.Add(1)
			go func(ns string) {
				defer watchWG.Done()
				m.watchNamespace(ctx, ns, m.cfg.LabelSelector, follow, r)
			}(ns)
		}
	}

	if !follow {
		m.wg.Wait()
	} else {
		<-ctx.Done()
	}

	cancel()

	waitDone := make(chan struct{})
	go func() {
		m.wg.Wait()
		watchWG.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownGrace):
	}

	close(m.queue)
	<-consumerDone

	return nil
}

func sortedContainers(containers []model.ContainerIdentity) []model.ContainerIdentity {
	out := make([]model.ContainerIdentity, len(containers))
	copy(out, containers)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		if a.PodName != b.PodName {
			return a.PodName < b.PodName
		}
		return a.ContainerName < b.ContainerName
	})
	return out
}

func uniquePodNames(containers []model.ContainerIdentity) []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range containers {
		if !seen[c.PodName] {
			seen[c.PodName] = true
			names = append(names, c.PodName)
		}
	}
	return names
}

// startProducer launches one producer goroutine for container, tracked in
// the live set and the shutdown WaitGroup. A no-op if container is already
// tracked (rotation events can otherwise race discovery's initial set).
// rotated marks a container reported by the watcher after startup; only
// those widen the renderer's alignment, since the initial set's width was
// already computed when the renderer was built.
func (m *Manager) startProducer(ctx context.Context, container model.ContainerIdentity, follow, rotated bool, r render.Renderer) {
	id := container.UniqueID()

	m.mu.Lock()
	if m.live[id] {
		m.mu.Unlock()
		return
	}
	m.live[id] = true
	m.mu.Unlock()

	if aa, ok := r.(alignmentAware); ok && rotated {
		width := render.AlignmentWidth(container.Namespace, container.PodName, container.ContainerName, m.singleNamespace, false)
		aa.EnsureAlignment(width)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.live, id)
			m.mu.Unlock()
		}()
		m.produce(ctx, container, follow)
	}()
}

// produce implements the producer task retry loop from spec.md §4.4.
func (m *Manager) produce(ctx context.Context, container model.ContainerIdentity, follow bool) {
	if m.sem != nil {
		select {
		case m.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-m.sem }()
	}

	retry := 0
	for {
		if ctx.Err() != nil {
			return
		}

		streamStart := time.Now()
		sc := model.StreamContext{
			Container:    container,
			SinceSeconds: m.cfg.SinceSeconds,
			TailLines:    m.cfg.TailLines,
			Follow:       follow,
		}

		err := m.streamOnce(ctx, sc)
		streamed := time.Since(streamStart)

		switch {
		case err == nil:
			if !follow {
				return
			}
			retry = 0
			continue
		case errors.Is(err, kuloerr.ErrStreamGone):
			return
		case errors.Is(err, kuloerr.ErrPermissionDenied):
			m.enqueue(ctx, model.LogEntry{Container: container, RawText: fmt.Sprintf("permission denied streaming %s", container.UniqueID())})
			return
		default:
			if ctx.Err() != nil {
				return
			}
			if streamed >= healthyStreamThreshold {
				retry = 0
			} else {
				retry++
			}
			select {
			case <-time.After(util.Backoff(retry)):
			case <-ctx.Done():
				return
			}
		}
	}
}

// streamOnce opens one log stream and forwards each line to the queue until
// EOF, a stream error, or cancellation.
func (m *Manager) streamOnce(ctx context.Context, sc model.StreamContext) error {
	stream, err := m.streamer.StreamLogs(ctx, sc)
	if err != nil {
		return err
	}
	defer stream.Close()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		entry := model.LogEntry{Container: sc.Container, RawText: scanner.Text()}
		if !m.enqueue(ctx, entry) {
			return nil
		}
	}
	return scanner.Err()
}

// enqueue blocks on the queue (intentional backpressure onto the network
// reader) unless ctx is cancelled first, in which case it returns false.
func (m *Manager) enqueue(ctx context.Context, entry model.LogEntry) bool {
	select {
	case m.queue <- entry:
		return true
	case <-ctx.Done():
		return false
	}
}

// consume is the single consumer task: strictly FIFO on the queue, the only
// goroutine that calls Render. Warnings do not pass through it: Run calls
// r.Warn for the concurrency-cap truncation, and a rotation watcher calls
// r.Warn from its own goroutine when a namespace watch is denied.
func (m *Manager) consume(ctx context.Context, r render.Renderer, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(consumerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-m.queue:
			if !ok {
				return
			}
			r.Render(entry)
		case <-ticker.C:
			// Idle wake-up only. Shutdown is signalled by Run closing the
			// queue, which the receive above observes after the queue drains.
		}
	}
}

// watchNamespace runs the rotation watcher for one namespace, reconnecting
// with backoff on disconnect, until ctx is cancelled.
func (m *Manager) watchNamespace(ctx context.Context, namespace, labelSelector string, follow bool, r render.Renderer) {
	retry := 0
	for ctx.Err() == nil {
		events, err := m.watcher.WatchPods(ctx, namespace, labelSelector)
		if err != nil {
			if errors.Is(err, kuloerr.ErrPermissionDenied) {
				r.Warn(fmt.Sprintf("permission denied watching namespace %q", namespace))
				return
			}
			select {
			case <-time.After(util.Backoff(retry)):
				retry++
			case <-ctx.Done():
				return
			}
			continue
		}

		retry = 0
		m.consumeEvents(ctx, events, follow, r)
		select {
		case <-time.After(util.Backoff(retry)):
		case <-ctx.Done():
			return
		}
	}
}

// consumeEvents starts a producer for each newly added pod's containers,
// keyed by PodKey so a pod already seen this run (e.g. a Modified event
// following its own Added) is never double-started. A rotated pod is
// admitted through the same discovery.FilterPods include/exclude gate as
// the initial discovery set (spec.md §4.4: "whose pod passes the
// include/exclude regex filters"), never streamed unconditionally.
func (m *Manager) consumeEvents(ctx context.Context, events <-chan model.PodEvent, follow bool, r render.Renderer) {
	seenPods := make(map[string]bool)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != model.PodEventAdded {
				continue
			}
			if seenPods[ev.Pod.PodKey()] {
				continue
			}
			seenPods[ev.Pod.PodKey()] = true

			admitted := discovery.FilterPods([]model.PodRecord{ev.Pod}, m.cfg.IncludePatterns, m.cfg.ExcludePatterns)
			for _, c := range discovery.ExpandContainers(admitted, m.cfg.ExcludeInit, m.cfg.ExcludeEphemeral) {
				m.startProducer(ctx, c, follow, true, r)
			}
		case <-ctx.Done():
			return
		}
	}
}
