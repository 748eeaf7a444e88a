package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fleetwatch/internal/alerts"
	"fleetwatch/internal/config"
	"fleetwatch/internal/gateway"
	"fleetwatch/internal/kvstore"
	"fleetwatch/internal/monitor"
	"fleetwatch/internal/poller"
)

var errCritical = errors.New("critical alerts present")

func newCheckCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Poll the gateway once and print usage and alerts",
		Long:  "check performs a single poll and prints token usage, cost and alerts.\nIt exits non-zero when any critical alert holds.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			view, err := checkOnce(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view)
			if critical, _ := alerts.Count(view.Alerts); critical > 0 {
				return errCritical
			}
			return nil
		},
	}
}

func checkOnce(ctx context.Context, cfg *config.Config) (poller.View, error) {
	var store monitor.Store = kvstore.NewMemory()
	if cfg.Server.DBPath != "" {
		db, err := kvstore.Open(cfg.Server.DBPath)
		if err != nil {
			return poller.View{}, fmt.Errorf("open store: %w", err)
		}
		defer db.Close()
		store = db
	}

	client := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.Token)
	client.SetCallTimeout(cfg.Gateway.CallTimeout)
	defer client.Close()

	tracker := monitor.NewDailyTracker(store, monitor.LoadLocation(cfg.Usage.Timezone))
	p := poller.New(client, tracker, alerts.NewEngine(cfg.Usage.ContextCap), cfg.Usage.Pricing, cfg.Gateway.PollInterval)
	return p.Poll(ctx), nil
}

func printView(w io.Writer, v poller.View) {
	if v.Snapshot.Connected {
		fmt.Fprintf(w, "Gateway: connected (%d sessions, %d agents, %d cron jobs)\n",
			len(v.Snapshot.Sessions), len(v.Snapshot.Agents), len(v.Snapshot.CronJobs))
	} else {
		fmt.Fprintf(w, "Gateway: offline (%s)\n", v.Snapshot.Error)
	}
	fmt.Fprintf(w, "Tokens:  %s in / %s out / %s total\n",
		monitor.FormatTokenCount(v.Totals.Input),
		monitor.FormatTokenCount(v.Totals.Output),
		monitor.FormatTokenCount(v.Totals.Total))
	fmt.Fprintf(w, "Today:   %s\n", monitor.FormatTokenCount(v.Daily.Total))
	fmt.Fprintf(w, "Cost:    %s\n", monitor.FormatCost(v.Cost.TotalCost))

	if len(v.Tree) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "AGENT\tHEALTH\tTOKENS\tCOST")
		for _, a := range v.Tree {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Name, a.Status,
				monitor.FormatTokenCount(v.PerAgent[a.Name].Total),
				monitor.FormatCost(v.PerAgentCost[a.Name]))
		}
		tw.Flush()
	}

	fmt.Fprintln(w)
	if len(v.Alerts) == 0 {
		fmt.Fprintln(w, "No alerts")
		return
	}
	critical, warning := alerts.Count(v.Alerts)
	fmt.Fprintf(w, "Alerts: %d critical, %d warning\n", critical, warning)
	for _, a := range v.Alerts {
		fmt.Fprintf(w, "  [%s] %s\n", a.Severity, a.Message)
	}
}
