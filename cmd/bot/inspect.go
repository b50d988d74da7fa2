package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"HeikinSentinel/internal/alertstate"
	"HeikinSentinel/internal/collector"
	"HeikinSentinel/internal/model"
	"HeikinSentinel/internal/notifier"
	"HeikinSentinel/internal/strategy"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "analyze <symbol> <interval>",
		Short: "Fetch one pair and print its smoothed candles and indicators",
		Long: `Fetch one symbol on one interval, run the Heikin-Ashi and indicator pipeline and
print the most recent rows with any detection on the last closed candle.
Alert state is neither read nor written.`,
		Example: "  heikinsentinel analyze BTC-USDT 1hour --rows 5",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := model.ParseTimeframe(args[1])
			if err != nil {
				return err
			}
			key := model.AlertKey{Symbol: strings.ToUpper(args[0]), Timeframe: tf}
			return analyze(cmd.Context(), cmd.OutOrStdout(), a.newCollector(), a.strategyParams(), key, rows)
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 10, "number of trailing rows to print")
	return cmd
}

func analyze(ctx context.Context, w io.Writer, col *collector.Collector, params strategy.Params, key model.AlertKey, rows int) error {
	analysis, err := col.Analyze(ctx, key)
	if err != nil {
		return err
	}
	printRows(w, analysis.Rows, rows)

	dets, err := strategy.Detect(key, analysis.Rows, params)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	if len(dets) == 0 {
		fmt.Fprintf(w, "%s: no opportunity on the last closed candle\n", key)
		return nil
	}
	for _, d := range dets {
		fmt.Fprintln(w, notifier.FormatAlert(d))
	}
	return nil
}

func printRows(w io.Writer, all []model.IndicatorRow, n int) {
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "time\tha_open\tha_high\tha_low\tha_close\tema\tbb_mid\tbb_top\tbb_bot\tbb_pctb\tmacd\tsignal\thist\t")
	for _, r := range all[len(all)-n:] {
		fmt.Fprintf(tw, "%s\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.3f\t%.4g\t%.4g\t%.4g\t\n",
			r.Time.UTC().Format("2006-01-02 15:04"),
			r.Open, r.High, r.Low, r.Close, r.TrendEMA,
			r.BBMiddle, r.BBTop, r.BBBottom, r.BBPercent,
			r.MACD, r.MACDSignal, r.MACDHistogram)
	}
	tw.Flush()
}

func newStateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted alert state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.newStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Load(cmd.Context()); err != nil {
				return err
			}
			return printState(cmd.OutOrStdout(), store.Snapshot(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw state as JSON")
	return cmd
}

func printState(w io.Writer, snap map[string]model.AlertRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	if len(snap) == 0 {
		fmt.Fprintln(w, "no alerts recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAIR\tLEVEL\tFIRED AT")
	for _, k := range alertstate.SortedKeys(snap) {
		rec := snap[k]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k, model.FormatThreshold(rec.Threshold), rec.FiredAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
