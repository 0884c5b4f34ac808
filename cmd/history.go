package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/outagewatch/core/history"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/pkg/export"
)

var (
	histFrom     string
	histTo       string
	histFacility string
	histMinStage int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded alert scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.History.Backend == "" {
			return fmt.Errorf("alert history is disabled, set history.backend")
		}
		q := history.Query{FacilityID: histFacility, MinStage: model.Stage(histMinStage)}
		if q.Start, err = parseAt(histFrom); err != nil {
			return err
		}
		if q.End, err = parseAt(histTo); err != nil {
			return err
		}
		store, err := history.New(cfg.History)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		recs, err := store.Query(ctx, q)
		if err != nil {
			return err
		}
		if formatFlag != "" {
			f, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), f, recs, export.HistoryTable(recs))
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCANNED\tACTIVE\tSHOWN\tPUBLISHED\tBATCH")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n", r.Timestamp.Format(time.RFC3339), r.Total, len(r.Alerts), r.Published, r.BatchID)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().StringVar(&histFrom, "from", "", "earliest scan (RFC3339)")
	historyCmd.Flags().StringVar(&histTo, "to", "", "latest scan (RFC3339)")
	historyCmd.Flags().StringVar(&histFacility, "facility", "", "only scans alerting this facility")
	historyCmd.Flags().IntVar(&histMinStage, "min-stage", 0, "only scans with an alert at or above this stage")
	historyCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "output format: json, csv or xlsx")
	historyCmd.Flags().StringVarP(&outFlag, "out", "o", "", "write output to a file")
	rootCmd.AddCommand(historyCmd)
}
