package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/ovconverge/pkg/dispatch"
	"github.com/cuemby/ovconverge/pkg/log"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/types"
)

// taskFile is the document accepted by run. A top-level config applies to
// every task that does not name its own.
type taskFile struct {
	Config string          `yaml:"config"`
	Tasks  []dispatch.Task `yaml:"tasks"`
}

// taskResult is one line of run output
type taskResult struct {
	Task   string         `json:"task"`
	Module string         `json:"module"`
	Result outcome.Result `json:"result"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tasks of a YAML file in order",
	Long: `Run converges every task of a YAML file in order and prints one JSON
result per task on stdout.

Example:
  config: /etc/ovconverge/controller.json
  tasks:
    - name: Create network
      module: oneview_ethernet_network
      params:
        state: present
        data:
          name: net-A
          vlanId: 201`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		keepGoing, _ := cmd.Flags().GetBool("keep-going")
		defer exportMetrics(cmd)

		tasks, err := loadTasks(path)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d, cleanup, err := newDispatcher(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		failed := runTasks(ctx, d, tasks, keepGoing, cmd.OutOrStdout())
		if failed > 0 {
			return fmt.Errorf("%d task(s) failed", failed)
		}
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec MODULE",
	Short: "Run a single module with JSON parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("params")
		name, _ := cmd.Flags().GetString("name")
		defer exportMetrics(cmd)

		params, err := loadParams(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d, cleanup, err := newDispatcher(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		res := d.Run(ctx, dispatch.Task{Name: name, Module: args[0], Params: params})
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.Failed() {
			return errors.New(res.Message())
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "YAML task file (required)")
	runCmd.Flags().Bool("keep-going", false, "Continue after a failed task")
	runCmd.MarkFlagRequired("file")

	execCmd.Flags().StringP("params", "p", "-", "JSON parameter file, - for stdin")
	execCmd.Flags().String("name", "", "Task name used in logs and the journal")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(execCmd)
}

// newDispatcher builds a dispatcher journaling to --journal when set. The
// cleanup func logs out of every session and closes the journal.
func newDispatcher(cmd *cobra.Command) (*dispatch.Dispatcher, func(), error) {
	store, err := openJournal(cmd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open journal")
	}

	var opts []dispatch.Option
	if store != nil {
		opts = append(opts, dispatch.WithJournal(store))
	}
	d := dispatch.New(opts...)

	cleanup := func() {
		if err := d.Close(); err != nil {
			log.Logger.Warn().Err(err).Msg("Failed to close controller sessions")
		}
		if store != nil {
			store.Close()
		}
	}
	return d, cleanup, nil
}

// runTasks runs tasks in order and writes one JSON line per result. It
// returns the number of failed tasks and stops at the first failure unless
// keepGoing is set.
func runTasks(ctx context.Context, d *dispatch.Dispatcher, tasks []dispatch.Task, keepGoing bool, out io.Writer) int {
	enc := json.NewEncoder(out)
	failed := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			failed++
			break
		}
		res := d.Run(ctx, task)
		if err := enc.Encode(taskResult{Task: task.Name, Module: task.Module, Result: res}); err != nil {
			log.Logger.Error().Err(err).Str("task", task.Name).Msg("Failed to write result")
		}
		if res.Failed() {
			failed++
			if !keepGoing {
				break
			}
		}
	}
	return failed
}

func loadTasks(path string) ([]dispatch.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read task file")
	}
	return parseTasks(data)
}

func parseTasks(data []byte) ([]dispatch.Task, error) {
	var doc taskFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse task file")
	}
	if len(doc.Tasks) == 0 {
		return nil, errors.New("task file has no tasks")
	}
	for i := range doc.Tasks {
		task := &doc.Tasks[i]
		if task.Module == "" {
			return nil, errors.Errorf("task %d has no module", i+1)
		}
		if task.Name == "" {
			task.Name = fmt.Sprintf("%s #%d", task.Module, i+1)
		}
		if task.Params.Config == "" {
			task.Params.Config = doc.Config
		}
	}
	return doc.Tasks, nil
}

func loadParams(path string, stdin io.Reader) (types.Params, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return types.Params{}, errors.Wrap(err, "failed to read parameters")
	}

	var params types.Params
	if err := json.Unmarshal(data, &params); err != nil {
		return types.Params{}, errors.Wrap(err, "failed to parse parameters")
	}
	return params, nil
}
