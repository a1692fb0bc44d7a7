package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/accel"
	"github.com/sarchlab/flexmmu/monitoring"
	"github.com/sarchlab/flexmmu/sim"
)

var runCmd = &cobra.Command{
	Use:   "run [trace.yaml]",
	Short: "Replay a trace against the accelerator model.",
	Long: "`run trace.yaml` maps the pages listed in the trace and replays " +
		"its accesses, flushes, and synchronizations. A summary is printed " +
		"when the trace ends.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromFlags(cmd)
		if err != nil {
			return err
		}

		trace, err := LoadTrace(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := runOptions{}
		opts.monitor, _ = cmd.Flags().GetBool("monitor")
		opts.openMonitor, _ = cmd.Flags().GetBool("open-monitor")

		summary, err := runTrace(ctx, cfg, trace, opts)
		exitOnFatal(err)

		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), summary)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64("frames", 0, "number of accelerator frames")
	runCmd.Flags().String("record", "", "record events into this sqlite file")
	runCmd.Flags().Bool("monitor", false, "serve the monitoring API")
	runCmd.Flags().Bool("open-monitor", false, "serve the monitoring API and open it in a browser")
}

type runOptions struct {
	monitor     bool
	openMonitor bool
}

// configFromFlags loads the configuration and applies the flags that are
// set on the command line.
func configFromFlags(cmd *cobra.Command) (Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if flags.Lookup("frames") != nil && flags.Changed("frames") {
		cfg.Frames, _ = flags.GetUint64("frames")
	}

	if flags.Lookup("record") != nil && flags.Changed("record") {
		cfg.Record, _ = flags.GetString("record")
	}

	return cfg, cfg.Validate()
}

// runTrace replays the trace on an MMU connected to the accelerator model.
func runTrace(
	ctx context.Context,
	cfg Config,
	trace *Trace,
	opts runOptions,
) (Summary, error) {
	logger := cfg.Logger()
	translator := vm.NewPageTableTranslator(trace.PageTable())

	acc := accel.MakeBuilder().
		WithCapacity(cfg.AccelCapacity).
		WithMMU("MMU.TopPort").
		Build("Accel")

	sys := newSystem(cfg, logger, translator, acc, acc.Port().AsRemote())
	defer sys.finish()

	conn := sim.NewDirectConnection("Conn")
	conn.PlugIn(sys.mmu.TopPort())
	conn.PlugIn(acc.Port())

	if err := sys.fillPages(trace.Pages); err != nil {
		return Summary{}, err
	}

	r := &replayer{
		sys:        sys,
		acc:        acc,
		translator: translator,
		logger:     logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopRun := context.WithCancel(gctx)

	g.Go(func() error {
		return sys.runMMU(runCtx)
	})

	var monitor *monitoring.Monitor

	if opts.monitor || opts.openMonitor {
		monitor = sys.newMonitor()
		monitor.RegisterComponent(acc)

		listener, err := monitor.Listen()
		if err != nil {
			stopRun()
			_ = g.Wait()

			return Summary{}, err
		}

		r.bar = monitor.CreateProgressBar("replay", uint64(len(trace.Ops)))

		g.Go(func() error {
			return monitor.Serve(runCtx, listener)
		})

		if opts.openMonitor {
			url := fmt.Sprintf("http://localhost:%d/api/residency",
				listener.Addr().(*net.TCPAddr).Port)
			if err := browser.OpenURL(url); err != nil {
				logger.WithError(err).Warn("cannot open the browser")
			}
		}
	}

	g.Go(func() error {
		defer stopRun()

		if monitor != nil {
			defer monitor.CompleteProgressBar(r.bar)
		}

		return r.replay(gctx, trace.Ops)
	})

	err := g.Wait()

	return r.summary, err
}
