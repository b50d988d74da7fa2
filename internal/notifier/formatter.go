package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"HeikinSentinel/internal/model"
)

// CandleTimeLayout is how candle timestamps appear in messages (UTC).
const CandleTimeLayout = "2006-01-02 15:04:05"

// FormatAlert renders one detection as a Markdown alert message.
func FormatAlert(d model.Detection) string {
	mark := "✅"
	if d.Direction == model.Bearish {
		mark = "❌"
	}
	return fmt.Sprintf("*%s* [%s] %s %s opportunity!\nEMA hit body | BB%%=%.2f (~%s)\nTime: %s",
		d.Key.Symbol, d.Key.Timeframe, mark, d.Direction,
		d.BBPercent, model.FormatThreshold(d.Threshold),
		d.CandleTime.UTC().Format(CandleTimeLayout))
}

// FormatDigest renders the periodic alert summary.
func FormatDigest(sum *model.AlertSummary, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 *Daily digest* | %s\n\n", now.UTC().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Alerts since %s: %d\n", sum.Since.UTC().Format("2006-01-02 15:04"), sum.Total))
	if sum.Total > 0 {
		b.WriteString(fmt.Sprintf("  ✅ bullish: %d | ❌ bearish: %d\n",
			sum.ByDirection[model.Bullish], sum.ByDirection[model.Bearish]))
		levels := make([]string, 0, len(sum.ByThreshold))
		for level := range sum.ByThreshold {
			levels = append(levels, level)
		}
		sort.Strings(levels)
		for _, level := range levels {
			b.WriteString(fmt.Sprintf("  BB%% ~%s: %d\n", level, sum.ByThreshold[level]))
		}
	}
	b.WriteString(fmt.Sprintf("Scan cycles: %d\n", sum.Cycles))
	if sum.LastCycle != nil {
		b.WriteString("\n" + formatCycle(sum.LastCycle))
	}
	return b.String()
}

// FormatStatus renders the /status reply.
func FormatStatus(pairs int, timeframes []model.Timeframe, last *model.CycleStats, tracked int) string {
	var b strings.Builder
	b.WriteString("🛰 *Scanner status*\n\n")
	tfs := make([]string, len(timeframes))
	for i, tf := range timeframes {
		tfs[i] = tf.String()
	}
	b.WriteString(fmt.Sprintf("Pairs: %d (%s)\n", pairs, strings.Join(tfs, ", ")))
	b.WriteString(fmt.Sprintf("Tracked alert levels: %d\n", tracked))
	if last == nil {
		b.WriteString("No cycle completed yet\n")
		return b.String()
	}
	b.WriteString("\n" + formatCycle(last))
	return b.String()
}

func formatCycle(c *model.CycleStats) string {
	return fmt.Sprintf("Last cycle: %s (%s)\n  pairs %d | alerts %d | suppressed %d | failed %d\n",
		c.FinishedAt.UTC().Format("2006-01-02 15:04:05"), c.Duration().Round(time.Millisecond),
		c.Pairs, c.Alerts, c.Suppressed, c.Failed)
}

// FormatAlertState renders the last alerted level of every pair, newest first.
func FormatAlertState(snap map[string]model.AlertRecord, limit int) string {
	if len(snap) == 0 {
		return "No alerts recorded yet"
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := snap[keys[i]], snap[keys[j]]
		if !a.FiredAt.Equal(b.FiredAt) {
			return a.FiredAt.After(b.FiredAt)
		}
		return keys[i] < keys[j]
	})

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 *Alert levels* (%d)\n\n", len(keys)))
	for i, k := range keys {
		if limit > 0 && i == limit {
			b.WriteString(fmt.Sprintf("... and %d more\n", len(keys)-limit))
			break
		}
		rec := snap[k]
		b.WriteString(fmt.Sprintf("`%s` ~%s at %s\n", k, model.FormatThreshold(rec.Threshold), rec.FiredAt.UTC().Format("01-02 15:04")))
	}
	return b.String()
}

// HelpText lists the supported chat commands.
const HelpText = "Commands:\n/status - scanner status\n/alerts - last alerted level per pair\n/digest - alert summary for the last 24h\n/help - this message"
