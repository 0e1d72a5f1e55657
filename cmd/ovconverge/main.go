package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cuemby/ovconverge/pkg/log"
	"github.com/cuemby/ovconverge/pkg/metrics"
	"github.com/cuemby/ovconverge/pkg/modules"
	"github.com/cuemby/ovconverge/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ovconverge",
	Short: "ovconverge - declarative convergence for composable infrastructure",
	Long: `ovconverge converges resources on a composable-infrastructure controller
and its image streamer toward a desired state.

Each task names a module (oneview_server_profile, oneview_ethernet_network, ...)
and a state. Running the same task twice changes nothing the second time.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOutput, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"ovconverge version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().String("journal", os.Getenv("OVCONVERGE_JOURNAL"), "Path of the task journal database")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(historyCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ovconverge version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List modules and the states they accept",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODULE\tFACT\tSTATES")
		for _, m := range modules.All() {
			states := make([]string, 0, len(m.States()))
			for _, s := range m.States() {
				states = append(states, string(s))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.FactKey, strings.Join(states, ", "))
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded task results, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openJournal(cmd)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("--journal is required")
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		module, _ := cmd.Flags().GetString("module")
		prune, _ := cmd.Flags().GetInt("prune")
		asJSON, _ := cmd.Flags().GetBool("json")

		if prune > 0 {
			deleted, err := store.Prune(prune)
			if err != nil {
				return errors.Wrap(err, "failed to prune journal")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Pruned %d entries\n", deleted)
		}

		var entries []*storage.Entry
		if module != "" {
			entries, err = store.ListByModule(module, limit)
		} else {
			entries, err = store.List(limit)
		}
		if err != nil {
			return errors.Wrap(err, "failed to read journal")
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		return printHistory(cmd.OutOrStdout(), entries)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of entries (0 for all)")
	historyCmd.Flags().String("module", "", "Only show entries of this module")
	historyCmd.Flags().Int("prune", 0, "Keep only the newest N entries before listing")
	historyCmd.Flags().Bool("json", false, "Print entries as JSON")
}

// exportMetrics writes --metrics-file when set. Commands defer it so failed
// runs are exported too.
func exportMetrics(cmd *cobra.Command) {
	path, _ := cmd.Flags().GetString("metrics-file")
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		log.Logger.Warn().Err(err).Str("path", path).Msg("Failed to write metrics")
	}
}

// openJournal opens the journal named by --journal, nil when unset
func openJournal(cmd *cobra.Command) (storage.Store, error) {
	path, _ := cmd.Flags().GetString("journal")
	if path == "" {
		return nil, nil
	}
	store, err := storage.NewBoltStore(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func printHistory(out io.Writer, entries []*storage.Entry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tMODULE\tTASK\tSTATE\tRESULT\tDURATION")
	for _, e := range entries {
		result := e.Msg
		if e.Failed {
			result = "FAILED: " + e.Msg
		} else if e.Changed {
			result += " (changed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Format("2006-01-02 15:04:05"), e.Module, e.Name, e.State, result, e.Duration.Round(1e6))
	}
	return w.Flush()
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
