// Package discovery resolves namespaces, lists and filters pods, and
// expands the survivors into the container identities the log manager
// streams.
package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/JoseManuelPS/KuLo/internal/model"
	"github.com/JoseManuelPS/KuLo/internal/util"
)

// ClusterClient is the subset of k8s.Client discovery depends on.
type ClusterClient interface {
	ListNamespaces(ctx context.Context) ([]string, error)
	CheckNamespaceExists(ctx context.Context, namespace string) (bool, error)
	ListPods(ctx context.Context, namespace, labelSelector string) ([]model.PodRecord, error)
	CurrentNamespace() string
}

// ResolveNamespaces expands namespaceArgs (a mix of exact names and regex
// patterns, per util.IsRegexPattern) into a concrete, deduplicated
// namespace list. An empty namespaceArgs falls back to the kubeconfig
// context's namespace.
func ResolveNamespaces(ctx context.Context, client ClusterClient, namespaceArgs []string) ([]string, error) {
	if len(namespaceArgs) == 0 {
		return []string{client.CurrentNamespace()}, nil
	}

	var exact []string
	var patterns []*regexp.Regexp
	for _, arg := range namespaceArgs {
		if util.IsRegexPattern(arg) {
			re, err := regexp.Compile("(?i)" + arg)
			if err != nil {
				return nil, fmt.Errorf("invalid namespace regex pattern %q: %w", arg, err)
			}
			patterns = append(patterns, re)
		} else {
			exact = append(exact, arg)
		}
	}

	seen := make(map[string]bool)
	var resolved []string

	for _, ns := range exact {
		ok, err := client.CheckNamespaceExists(ctx, ns)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("namespace %q does not exist", ns)
		}
		if !seen[ns] {
			seen[ns] = true
			resolved = append(resolved, ns)
		}
	}

	if len(patterns) > 0 {
		all, err := client.ListNamespaces(ctx)
		if err != nil {
			return nil, err
		}
		for _, ns := range all {
			if seen[ns] {
				continue
			}
			if util.MatchesAny(ns, patterns) {
				seen[ns] = true
				resolved = append(resolved, ns)
			}
		}
	}

	return resolved, nil
}

// FilterPods applies client-side include/exclude regex to pod names.
// Exclude wins over include, per spec.
func FilterPods(pods []model.PodRecord, include, exclude []*regexp.Regexp) []model.PodRecord {
	var out []model.PodRecord
	for _, pod := range pods {
		if len(include) > 0 && !util.MatchesAny(pod.Name, include) {
			continue
		}
		if util.MatchesAny(pod.Name, exclude) {
			continue
		}
		out = append(out, pod)
	}
	return out
}

// loggablePhases are pod phases that imply a readable log stream might
// still exist. CrashLoopBackOff isn't a phase (it's a container wait
// reason folded into Running/Pending by the API) but pods reporting it are
// always Running or Pending, so no special case is needed here; they are
// kept and retired naturally via StreamGone when the container disappears.
var loggablePhases = map[string]bool{
	"Running":   true,
	"Succeeded": true,
	"Failed":    true,
	"Pending":   true,
}

// ExpandContainers expands pods into container identities, skipping
// non-loggable pods and kinds disabled by excludeInit/excludeEphemeral. The
// result is sorted by (namespace, pod, kind, container) for determinism.
func ExpandContainers(pods []model.PodRecord, excludeInit, excludeEphemeral bool) []model.ContainerIdentity {
	var out []model.ContainerIdentity

	for _, pod := range pods {
		if !loggablePhases[pod.Phase] {
			continue
		}

		for _, c := range pod.Containers {
			switch c.Kind {
			case model.KindInit:
				if excludeInit {
					continue
				}
			case model.KindEphemeral:
				if excludeEphemeral {
					continue
				}
			}
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		if a.PodName != b.PodName {
			return a.PodName < b.PodName
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ContainerName < b.ContainerName
	})

	return out
}

// Truncate enforces the max-concurrency cap: if containers exceeds
// maxContainers (and maxContainers > 0), returns the first maxContainers
// (already sorted deterministically by ExpandContainers) and true to
// signal truncation happened. maxContainers == 0 means unlimited.
func Truncate(containers []model.ContainerIdentity, maxContainers int) (result []model.ContainerIdentity, truncated bool) {
	if maxContainers <= 0 || len(containers) <= maxContainers {
		return containers, false
	}
	return containers[:maxContainers], true
}
