package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/flexmmu/datarecording"
	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/tracing"
)

var eventsCmd = &cobra.Command{
	Use:   "events [recording.sqlite3]",
	Short: "List the residency events of a recording.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		filter := eventFilter{}
		filter.kind, _ = cmd.Flags().GetString("kind")
		filter.hvp, _ = cmd.Flags().GetUint64("hvp")
		filter.limit, _ = cmd.Flags().GetInt("limit")
		filter.offset, _ = cmd.Flags().GetInt("offset")

		return listEvents(cmd.Context(), cmd.OutOrStdout(), reader, filter)
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().String("kind", "", "only list events of this kind")
	eventsCmd.Flags().Uint64("hvp", 0, "only list events of this host page")
	eventsCmd.Flags().Int("limit", 100, "maximum number of events, 0 for all")
	eventsCmd.Flags().Int("offset", 0, "number of events to skip")
}

type eventFilter struct {
	kind   string
	hvp    uint64
	limit  int
	offset int
}

func (f eventFilter) params() datarecording.QueryParams {
	var (
		conds []string
		args  []any
	)

	if f.kind != "" {
		conds = append(conds, "Kind = ?")
		args = append(args, f.kind)
	}

	if f.hvp != 0 {
		conds = append(conds, "HVP = ?")
		args = append(args, int64(vm.HVPOf(f.hvp)))
	}

	return datarecording.QueryParams{
		Where:  strings.Join(conds, " AND "),
		Args:   args,
		Limit:  f.limit,
		Offset: f.offset,
	}
}

func listEvents(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
	filter eventFilter,
) error {
	events, total, err := tracing.QueryRecordedEvents(ctx, reader, filter.params())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tKIND\tKEY\tHVP\tFRAME\tTHREAD\tCOUNT\tERROR")

	for _, e := range events {
		key := "-"
		if e.Key != 0 {
			key = vm.GVPKey(e.Key).String()
		}

		fmt.Fprintf(tw, "%d\t%.6f\t%s\t%s\t0x%x\t%d\t%d\t%d\t%s\n",
			e.Seq, e.Time, e.Kind, key, uint64(e.HVP), e.Frame,
			e.ThreadID, e.Count, e.Err)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%d of %d events\n", len(events), total)

	return nil
}
