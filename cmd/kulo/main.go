// Command kulo aggregates container logs across a Kubernetes cluster into
// one color-coded, ordered-per-source terminal stream.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JoseManuelPS/KuLo/internal/color"
	kuloconfig "github.com/JoseManuelPS/KuLo/internal/config"
	"github.com/JoseManuelPS/KuLo/internal/discovery"
	"github.com/JoseManuelPS/KuLo/internal/k8s"
	"github.com/JoseManuelPS/KuLo/internal/kuloerr"
	"github.com/JoseManuelPS/KuLo/internal/logging"
	"github.com/JoseManuelPS/KuLo/internal/manager"
	"github.com/JoseManuelPS/KuLo/internal/model"
	"github.com/JoseManuelPS/KuLo/internal/render"
	"github.com/JoseManuelPS/KuLo/internal/render/tui"
	"github.com/JoseManuelPS/KuLo/internal/util"
)

var (
	namespaceArg     []string
	labelSelector    string
	includeArg       string
	excludeArg       string
	excludeInit      bool
	excludeEphemeral bool
	follow           bool
	since            string
	tailLines        int64
	maxContainers    int
	noColorLogs      bool
	verbosity        int
	useTUI           bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kulo",
		Short: "Aggregate Kubernetes container logs into one ordered, color-coded stream",
		RunE:  runKulo,
	}

	rootCmd.Flags().StringSliceVarP(&namespaceArg, "namespace", "n", nil, "Namespace(s), exact name or regex; repeatable or comma-separated")
	rootCmd.Flags().StringVarP(&labelSelector, "label-selector", "l", "", "Kubernetes label selector (server-side)")
	rootCmd.Flags().StringVarP(&includeArg, "include", "i", "", "Comma-separated regex patterns to include pods")
	rootCmd.Flags().StringVarP(&includeArg, "filter", "f", "", "Alias for --include")
	rootCmd.Flags().StringVarP(&excludeArg, "exclude", "e", "", "Comma-separated regex patterns to exclude pods")
	rootCmd.Flags().BoolVar(&excludeInit, "exclude-init", false, "Exclude init containers")
	rootCmd.Flags().BoolVar(&excludeEphemeral, "exclude-ephemeral", false, "Exclude ephemeral containers")
	rootCmd.Flags().BoolVar(&follow, "follow", false, "Follow log output and track pod rotation")
	rootCmd.Flags().StringVarP(&since, "since", "s", "10m", "Only return logs newer than this duration (e.g. 30s, 5m, 1h, 2d)")
	rootCmd.Flags().Int64VarP(&tailLines, "tail", "t", 25, "Number of lines to show from the end of each stream")
	rootCmd.Flags().IntVar(&maxContainers, "max-containers", 10, "Maximum concurrently streamed containers (0 = unlimited)")
	rootCmd.Flags().BoolVar(&noColorLogs, "no-color-logs", false, "Disable colored output")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase diagnostic log verbosity")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "Use the interactive renderer instead of the snapshot stream")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(kuloerr.ExitCodeOf(err)))
	}
}

func runKulo(cmd *cobra.Command, args []string) error {
	log := logging.New(verbosity)

	sinceDuration, err := util.ParseDuration(since)
	if err != nil {
		return kuloerr.NewFatal(kuloerr.ExitUsageOrValidation, err)
	}

	includePatterns, err := util.CompilePatterns(includeArg)
	if err != nil {
		return kuloerr.NewFatal(kuloerr.ExitUsageOrValidation, err)
	}
	excludePatterns, err := util.CompilePatterns(excludeArg)
	if err != nil {
		return kuloerr.NewFatal(kuloerr.ExitUsageOrValidation, err)
	}

	cfg, err := kuloconfig.Load()
	if err != nil {
		log.Warnf("failed to load persisted config: %v", err)
		cfg = &kuloconfig.Config{}
	}

	client, err := newClient(cfg)
	if err != nil {
		return kuloerr.NewFatal(kuloerr.ExitConnectionFailure, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	namespaces, err := discovery.ResolveNamespaces(ctx, client, namespaceArg)
	if err != nil {
		code := kuloerr.ExitUsageOrValidation
		if errors.Is(err, kuloerr.ErrPermissionDenied) {
			code = kuloerr.ExitAuthOrPermission
		}
		return kuloerr.NewFatal(code, err)
	}

	var allPods []model.PodRecord
	for _, ns := range namespaces {
		pods, err := client.ListPods(ctx, ns, labelSelector)
		if err != nil {
			return kuloerr.NewFatal(classifyStartupError(err), err)
		}
		allPods = append(allPods, pods...)
	}

	filtered := discovery.FilterPods(allPods, includePatterns, excludePatterns)
	containers := discovery.ExpandContainers(filtered, excludeInit, excludeEphemeral)

	if len(containers) == 0 {
		msg := "no containers matched the configured filters"
		if follow {
			log.Warn(msg)
			return nil
		}
		return kuloerr.NewFatal(kuloerr.ExitUsageOrValidation, fmt.Errorf("%s", msg))
	}

	saveRecentFilters(cfg)

	runCfg := model.RunConfig{
		Namespaces:       namespaces,
		LabelSelector:    labelSelector,
		IncludePatterns:  includePatterns,
		ExcludePatterns:  excludePatterns,
		ExcludeInit:      excludeInit,
		ExcludeEphemeral: excludeEphemeral,
		SinceSeconds:     int64(sinceDuration.Seconds()),
		TailLines:        tailLines,
		Follow:           follow,
		MaxContainers:    maxContainers,
		ColorLogs:        !noColorLogs,
	}

	m := manager.New(client, client, runCfg)
	r := buildRenderer(containers, m.Colors(), runCfg.ColorLogs)

	if err := m.Run(ctx, containers, r); err != nil {
		return kuloerr.NewFatal(kuloerr.ExitConnectionFailure, err)
	}

	return nil
}

// classifyStartupError maps a discovery-time failure onto the exit code
// taxonomy in spec.md §6: permission errors are distinguished from
// connection/transport failures so the caller sees the right code.
func classifyStartupError(err error) kuloerr.ExitCode {
	if errors.Is(err, kuloerr.ErrPermissionDenied) {
		return kuloerr.ExitAuthOrPermission
	}
	return kuloerr.ExitConnectionFailure
}

func newClient(cfg *kuloconfig.Config) (*k8s.Client, error) {
	if cfg.KubeConfig != "" {
		return k8s.NewClientWithConfig(cfg.KubeConfig)
	}
	return k8s.NewClient()
}

func saveRecentFilters(cfg *kuloconfig.Config) {
	for _, ns := range namespaceArg {
		_ = cfg.AddRecentNamespacePattern(ns)
	}
	_ = cfg.AddRecentIncludeFilter(includeArg)
	_ = cfg.AddRecentExcludeFilter(excludeArg)
	_ = cfg.AddRecentLabelSelector(labelSelector)
}

// buildRenderer computes the run's alignment width and smart-omission
// parameters from the admitted container set, then constructs either the
// snapshot renderer or the interactive TUI (spec.md §4.6, §4.7). colors is
// the manager's own Assigner (spec.md §3: the manager owns the color
// assigner for the run; the renderer only reads from it) — Manager.Run
// initializes it from the truncated, admitted container set before the
// first line is ever rendered, so buildRenderer never initializes it
// itself.
func buildRenderer(containers []model.ContainerIdentity, colors *color.Assigner, colorLogs bool) render.Renderer {
	namespaceSet := map[string]bool{}
	podContainerCount := map[string]int{}
	maxWidth := 0

	for _, c := range containers {
		namespaceSet[c.Namespace] = true
		podContainerCount[c.PodName]++
	}
	singleNamespace := len(namespaceSet) <= 1

	for _, c := range containers {
		singleContainer := podContainerCount[c.PodName] <= 1
		if w := render.AlignmentWidth(c.Namespace, c.PodName, c.ContainerName, singleNamespace, singleContainer); w > maxWidth {
			maxWidth = w
		}
	}

	if useTUI {
		return tui.NewModel(colors, maxWidth, singleNamespace, podContainerCount, colorLogs)
	}
	return render.NewSnapshotRenderer(colors, maxWidth, singleNamespace, podContainerCount, !colorLogs)
}
