package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/outagewatch/app"
	"github.com/kilianp07/outagewatch/core/equipment"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/risk"
	"github.com/kilianp07/outagewatch/pkg/export"
)

var (
	atFlag      string
	horizonFlag time.Duration
	outageFlag  time.Duration
	blockFlag   string
	limitFlag   int
	formatFlag  string
	outFlag     string
	allFlag     bool
)

var windowsCmd = &cobra.Command{
	Use:   "windows <municipality> <area>",
	Short: "List the outage windows of an area",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		at, err := parseAt(atFlag)
		if err != nil {
			return err
		}
		return withEngine(ctx, func(c *app.Components) error {
			key := model.AreaKey{Municipality: args[0], Area: args[1], Block: blockFlag}
			ws, err := c.Engine.ResolveWindows(key, at, horizonFlag)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "START\tEND\tSTAGE")
			for _, win := range ws {
				fmt.Fprintf(w, "%s\t%s\t%d\n", win.Start.Format(time.RFC3339), win.End.Format(time.RFC3339), win.Stage)
			}
			return w.Flush()
		})
	},
}

var assessCmd = &cobra.Command{
	Use:   "assess [facility-id]",
	Short: "Assess the outage risk of one facility, or all with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		at, err := parseAt(atFlag)
		if err != nil {
			return err
		}
		if !allFlag && len(args) == 0 {
			return fmt.Errorf("facility id required unless --all is set")
		}
		format, err := export.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		return withEngine(ctx, func(c *app.Components) error {
			if allFlag {
				list := c.Engine.AssessAll(at)
				return writeOutput(cmd.OutOrStdout(), format, list, export.AssessmentsTable(list))
			}
			res, err := c.Engine.Assess(args[0], at)
			if err != nil {
				return err
			}
			if formatFlag == "" {
				fmt.Fprintln(cmd.OutOrStdout(), risk.Describe(res))
				for _, r := range res.Recommendations {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", r)
				}
				return nil
			}
			list := []model.PowerRiskAssessment{res}
			return writeOutput(cmd.OutOrStdout(), format, res, export.AssessmentsTable(list))
		})
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List facilities currently in an outage window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		at, err := parseAt(atFlag)
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		return withEngine(ctx, func(c *app.Components) error {
			list := c.Engine.ActiveAlerts(at, limitFlag)
			return writeOutput(cmd.OutOrStdout(), format, list, export.AlertsTable(list))
		})
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank <equipment.json|->",
	Short: "Rank critical equipment for load-shedding mitigation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		var list []model.CriticalEquipment
		if err := json.NewDecoder(r).Decode(&list); err != nil {
			return fmt.Errorf("decode equipment: %w", err)
		}
		if outageFlag > 0 {
			return export.WriteJSON(cmd.OutOrStdout(), equipment.Survivability(list, outageFlag))
		}
		return export.WriteJSON(cmd.OutOrStdout(), equipment.Rank(list))
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Fetch the schedule feed once and report repaired issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withEngine(ctx, func(c *app.Components) error {
			snap := c.Engine.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "schedule v%d: %d areas, %d blocks, %d issues\n", snap.Version, len(snap.Areas()), snap.Len(), len(snap.Issues))
			for _, is := range snap.Issues {
				fmt.Fprintf(out, "  %s\n", is)
			}
			return nil
		})
	},
}

// writeOutput writes to --out when set, otherwise to w.
func writeOutput(w io.Writer, f export.Format, v any, t export.Table) error {
	if outFlag == "" {
		return export.Write(w, f, v, t)
	}
	file, err := os.Create(outFlag)
	if err != nil {
		return err
	}
	if err := export.Write(file, f, v, t); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func init() {
	for _, c := range []*cobra.Command{windowsCmd, assessCmd, alertsCmd} {
		c.Flags().StringVar(&atFlag, "at", "", "reference time (RFC3339), defaults to now")
	}
	windowsCmd.Flags().DurationVar(&horizonFlag, "horizon", 24*time.Hour, "lookahead")
	windowsCmd.Flags().StringVar(&blockFlag, "block", "", "restrict to one block")
	rankCmd.Flags().DurationVar(&outageFlag, "outage", 0, "report survivability for an outage of this length")
	assessCmd.Flags().BoolVar(&allFlag, "all", false, "assess every registered facility")
	for _, c := range []*cobra.Command{assessCmd, alertsCmd} {
		c.Flags().StringVarP(&formatFlag, "format", "f", "", "output format: json, csv or xlsx")
		c.Flags().StringVarP(&outFlag, "out", "o", "", "write output to a file")
	}
	alertsCmd.Flags().IntVar(&limitFlag, "limit", 0, "maximum alerts, 0 uses the configured limit")
	rootCmd.AddCommand(windowsCmd, assessCmd, alertsCmd, rankCmd, reloadCmd)
}
