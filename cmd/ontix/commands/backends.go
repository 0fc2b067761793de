package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/ontix/config"
	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/ontology"
)

// BackendsCmd probes every configured backend and reports its status.
var BackendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Probe configured backends",
	Long: `Probe every configured backend and report reachability.

Each backend is opened and asked for its class tree, with timing.
Failing backends are reported but do not abort the probe: the
federation layer tolerates the same failures at query time.

Examples:
  ontix backends
  ontix backends --timeout 5s`,
	RunE: runBackends,
}

var backendsTimeoutFlag time.Duration

func init() {
	BackendsCmd.Flags().DurationVar(&backendsTimeoutFlag, "timeout", 10*time.Second, "Per-backend probe timeout")
}

func runBackends(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	rows := pterm.TableData{
		{"Backend", "Kind", "Target", "Status", "Classes", "Latency"},
	}

	healthy := 0
	for i, bc := range cfg.Federation.Backends {
		name := bc.Name
		if name == "" {
			name = fmt.Sprintf("backend_%d", i+1)
		}
		target := bc.Path
		if bc.Kind == config.KindRemote {
			target = bc.URL
		}

		status, classes, latency := probeBackend(cmd.Context(), bc)
		if status == "" {
			status = pterm.Green("ok")
			healthy++
		}
		rows = append(rows, []string{name, bc.Kind, target, status, classes, latency})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	pterm.Println()
	if healthy == len(cfg.Federation.Backends) {
		pterm.Success.Printf("All %d backends reachable\n", healthy)
	} else {
		pterm.Warning.Printf("%d of %d backends reachable\n", healthy, len(cfg.Federation.Backends))
	}
	return nil
}

// probeBackend opens one backend and asks for its class tree. An empty
// status string means success.
func probeBackend(ctx context.Context, bc config.BackendConfig) (status, classes, latency string) {
	backend, closer, err := openBackend(bc)
	if err != nil {
		return pterm.Red("open failed: " + err.Error()), "-", "-"
	}
	defer closer()

	probeCtx, cancel := context.WithTimeout(ctx, backendsTimeoutFlag)
	defer cancel()

	start := time.Now()
	tree, err := backend.Provider.ClassTree(probeCtx)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		return pterm.Red("unreachable: " + err.Error()), "-", elapsed.String()
	}
	return "", fmt.Sprintf("%d", countClasses(tree)), elapsed.String()
}

func countClasses(tree []*ontology.ClassModel) int {
	n := 0
	for _, c := range tree {
		n += 1 + countClasses(c.Children)
	}
	return n
}
