package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/wire"
	"github.com/sarchlab/flexmmu/sim"
)

// accelPortName is the name a remote accelerator is addressed by.
const accelPortName = sim.RemotePort("Accel.Port")

var serveCmd = &cobra.Command{
	Use:   "serve [pages.yaml]",
	Short: "Serve the residency protocol to a remote accelerator.",
	Long: "`serve pages.yaml` maps the pages listed in the file and waits " +
		"for one accelerator to connect. Pages travel over the connection " +
		"along with the messages.",
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

		addr, _ := cmd.Flags().GetString("listen")
		monitor, _ := cmd.Flags().GetBool("monitor")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		err = serve(ctx, cfg, trace, addr, monitor)
		exitOnFatal(err)

		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "127.0.0.1:7471", "address to accept the accelerator on")
	serveCmd.Flags().Uint64("frames", 0, "number of accelerator frames")
	serveCmd.Flags().String("record", "", "record events into this sqlite file")
	serveCmd.Flags().Bool("monitor", false, "serve the monitoring API")
}

func serve(
	ctx context.Context,
	cfg Config,
	trace *Trace,
	addr string,
	monitor bool,
) error {
	logger := cfg.Logger()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	logger.WithField("addr", listener.Addr().String()).
		Info("waiting for the accelerator")

	stream, err := acceptContext(ctx, listener)
	if err != nil {
		return err
	}

	pages := wire.NewRemotePageBuffer()
	translator := vm.NewPageTableTranslator(trace.PageTable())

	sys := newSystem(cfg, logger, translator, pages, accelPortName)
	defer sys.finish()

	if err := sys.fillPages(trace.Pages); err != nil {
		return err
	}

	link := wire.MakeBuilder().
		WithStream(stream).
		WithPeer(accelPortName).
		WithPageBuffer(pages.Link()).
		Build("Link")
	link.PlugIn(sys.mmu.TopPort())

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopRun := context.WithCancel(gctx)

	g.Go(func() error {
		return sys.runMMU(runCtx)
	})

	g.Go(func() error {
		defer stopRun()
		return link.Serve(runCtx)
	})

	g.Go(func() error {
		<-runCtx.Done()
		return stream.Close()
	})

	if monitor {
		m := sys.newMonitor()

		monitorListener, err := m.Listen()
		if err != nil {
			stopRun()
			_ = g.Wait()

			return err
		}

		g.Go(func() error {
			return m.Serve(runCtx, monitorListener)
		})
	}

	err = g.Wait()

	logger.WithField("events", sys.counter.Kinds()).Info("accelerator disconnected")

	return err
}

func acceptContext(ctx context.Context, listener net.Listener) (net.Conn, error) {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, err
	}

	listener.Close()

	return conn, nil
}
