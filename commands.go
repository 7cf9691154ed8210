package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jobshop_greedy/bench"
	"jobshop_greedy/config"
	"jobshop_greedy/jsp"
	"jobshop_greedy/report"
	"jobshop_greedy/sched"
	"jobshop_greedy/trace"
)

// rootOptions holds global flags and the configuration they resolve to.
type rootOptions struct {
	Verbose     bool
	ConfigPath  string
	LogDir      string
	Repetitions int

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "jobshop",
		Short: "Feasible job-shop schedules, sequential or coordinated",
		Long: `jobshop builds a feasible schedule for a job-shop problem.

The sequential strategy greedily advances the job that can start earliest.
The parallel strategy spreads jobs over a pool of workers that take turns in
one shared region, reassigns stuck jobs to idle workers and finishes on a
single worker if the pool deadlocks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultConfigPath(), "path to a TOML config file")
	cmd.PersistentFlags().StringVar(&opts.LogDir, "log-dir", "", "directory for trace and timing logs (overrides config)")
	cmd.PersistentFlags().IntVar(&opts.Repetitions, "repetitions", 0, "timed repetitions per run (overrides config)")

	cmd.AddCommand(newSequentialCommand(opts))
	cmd.AddCommand(newParallelCommand(opts))
	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))

	return cmd
}

func (o *rootOptions) resolve(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return wrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.LogDir != "" {
		cfg.Output.LogDir = config.ExpandPath(o.LogDir)
	}
	if o.Repetitions > 0 {
		cfg.Run.Repetitions = o.Repetitions
	}
	o.cfg = cfg
	return nil
}

func (o *rootOptions) runner() bench.Runner {
	return bench.Runner{Repetitions: o.cfg.Run.Repetitions, Logger: o.logger}
}

func loadProblem(path string) (*jsp.Problem, error) {
	problem, err := jsp.LoadProblem(path)
	if err != nil {
		return nil, wrapExitError(ExitCommandError, "failed to read problem", err)
	}
	return problem, nil
}

func newSequentialCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sequential <input> <output>",
		Short: "Schedule with the greedy sequential strategy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem, err := loadProblem(args[0])
			if err != nil {
				return err
			}
			tr := trace.New(1, opts.cfg.Trace.Capacity)
			record, err := opts.runner().Run(problem, sched.NewSequential(problem, tr, opts.logger), tr)
			if err != nil {
				return wrapExitError(ExitFailure, "sequential scheduling failed", err)
			}

			logs := report.LogDir{Dir: opts.cfg.Output.LogDir}
			if err := logs.SaveSequential(problem.Name, record.Lanes[0]); err != nil {
				return wrapExitError(ExitCommandError, "failed to save trace", err)
			}
			if err := report.WriteSolutionFile(args[1], problem); err != nil {
				return wrapExitError(ExitCommandError, "failed to write solution", err)
			}
			summary := report.Summary{Input: problem.Name, Average: record.Average, RunID: record.RunID}
			if err := logs.AppendSummary(problem.Name, summary); err != nil {
				return wrapExitError(ExitCommandError, "failed to append summary", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Makespan: %d\n", record.Result.Makespan)
			fmt.Fprintf(out, "Average execution time (sequential): %.6f seconds\n", record.Average.Seconds())
			fmt.Fprintf(out, "Output written to %s\n", args[1])
			return nil
		},
	}
}

func newParallelCommand(opts *rootOptions) *cobra.Command {
	var threads int

	cmd := &cobra.Command{
		Use:   "parallel <input> <output>",
		Short: "Schedule with the coordinated worker-pool strategy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threads") {
				threads = opts.cfg.Run.Threads
			}
			if threads <= 0 {
				return wrapExitError(ExitCommandError, "invalid thread count",
					fmt.Errorf("threads must be positive (got %d)", threads))
			}
			problem, err := loadProblem(args[0])
			if err != nil {
				return err
			}

			effective := sched.EffectiveThreads(threads, problem.TotalOperations())
			tr := trace.New(effective, opts.cfg.Trace.Capacity)
			coordinator := sched.NewCoordinator(problem, sched.Options{Threads: threads, Trace: tr, Logger: opts.logger})
			record, err := opts.runner().Run(problem, coordinator, tr)
			if err != nil {
				return wrapExitError(ExitFailure, "parallel scheduling failed", err)
			}

			logs := report.LogDir{Dir: opts.cfg.Output.LogDir}
			if err := logs.SaveThreads(problem.Name, record.Lanes); err != nil {
				return wrapExitError(ExitCommandError, "failed to save trace", err)
			}
			if err := report.WriteSolutionFile(args[1], problem); err != nil {
				return wrapExitError(ExitCommandError, "failed to write solution", err)
			}
			summary := report.Summary{
				Input:     problem.Name,
				Parallel:  true,
				Requested: threads,
				Effective: coordinator.Threads(),
				Average:   record.Average,
				RunID:     record.RunID,
			}
			if err := logs.AppendSummary(problem.Name, summary); err != nil {
				return wrapExitError(ExitCommandError, "failed to append summary", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Makespan: %d\n", record.Result.Makespan)
			fmt.Fprintf(out, "Effective threads: %d (requested %d)\n", coordinator.Threads(), threads)
			if record.Result.Deadlock {
				fmt.Fprintf(out, "Warning: deadlock fallback used\n")
			}
			fmt.Fprintf(out, "Average execution time (parallel): %.6f seconds\n", record.Average.Seconds())
			fmt.Fprintf(out, "Output written to %s\n", args[1])
			return nil
		},
	}

	cmd.Flags().IntVarP(&threads, "threads", "t", 0, "requested worker count (default from config)")
	return cmd
}

func newCatalogCommand(opts *rootOptions) *cobra.Command {
	var threads int

	cmd := &cobra.Command{
		Use:   "catalog <instances.json>",
		Short: "Run both strategies over every instance of a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threads") {
				threads = opts.cfg.Run.Threads
			}
			instances, err := jsp.LoadCatalog(args[0])
			if err != nil {
				return wrapExitError(ExitCommandError, "failed to load catalog", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INSTANCE\tSIZE\tOPTIMUM\tSEQUENTIAL\tPARALLEL\tTHREADS")
			for _, instance := range instances {
				problem, err := instance.Problem()
				if err != nil {
					return wrapExitError(ExitCommandError, "bad catalog instance", err)
				}
				seq, err := sched.NewSequential(problem, nil, opts.logger).Run()
				if err != nil {
					return wrapExitError(ExitFailure, instance.Name, err)
				}
				coordinator := sched.NewCoordinator(problem, sched.Options{Threads: threads, Logger: opts.logger})
				par, err := coordinator.Run()
				if err != nil {
					return wrapExitError(ExitFailure, instance.Name, err)
				}
				optimum := "-"
				if instance.Optimum > 0 {
					optimum = fmt.Sprint(instance.Optimum)
				}
				fmt.Fprintf(w, "%s\t%dx%d\t%s\t%d\t%d\t%d\n", instance.Name, instance.Jobs, instance.Machines,
					optimum, seq.Makespan, par.Makespan, par.Threads)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&threads, "threads", "t", 0, "requested worker count (default from config)")
	return cmd
}

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <input> <solution>",
		Short: "Check a solution file against its problem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem, err := loadProblem(args[0])
			if err != nil {
				return err
			}
			file, err := os.Open(args[1])
			if err != nil {
				return wrapExitError(ExitCommandError, "failed to open solution", err)
			}
			defer file.Close()

			claimed, err := report.ReadSolution(file, problem)
			if err != nil {
				return wrapExitError(ExitCommandError, "failed to read solution", err)
			}
			if err := problem.Verify(); err != nil {
				return wrapExitError(ExitFailure, "solution rejected", err)
			}
			if actual := problem.Makespan(); actual != claimed {
				return wrapExitError(ExitFailure, "solution rejected",
					fmt.Errorf("claimed makespan %d, schedule gives %d", claimed, actual))
			}
			opts.logger.Debug("solution verified", "problem", problem.Name, "makespan", claimed)
			fmt.Fprintf(cmd.OutOrStdout(), "OK: makespan %d\n", claimed)
			return nil
		},
	}
}
