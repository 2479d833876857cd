package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rcabello/lendbot/internal/domain"
)

// Console implements ports.Notifier, writing to stdout. Cycle results print
// as one compact line; stats print as a table when enabled.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier writing to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyCycle prints a one-line summary of a reconciliation cycle.
func (c *Console) NotifyCycle(_ context.Context, rec domain.CycleRecord) error {
	prefix := ""
	if rec.DryRun {
		prefix = "[dry-run] "
	}
	fmt.Fprintf(c.out, "[%s] %s%s r=%.6f p=%dd | cancelled:%d placed:%d ($%.2f) in %s\n",
		rec.StartedAt.Format("15:04:05"),
		prefix,
		rec.Strategy.Type,
		rec.Strategy.Rate,
		rec.Strategy.Period,
		rec.Cancelled,
		rec.Placed,
		rec.PlacedAmount,
		rec.Duration.Round(time.Millisecond),
	)
	return nil
}

// NotifyStats prints the funding stats, as a table in full mode or as a
// compact line otherwise. Rates display as daily and annualized percent.
func (c *Console) NotifyStats(_ context.Context, stats domain.FundingStats) error {
	apr := domain.AnnualRate(stats.AverageRate, 1) * 100

	if !c.table {
		fmt.Fprintf(c.out, "[%s] lent:$%.2f earn:$%.4f/day avg:%.6f (%.2f%% APY) frr:%.6f credits:%d\n",
			stats.At.Format("15:04:05"),
			stats.TotalLent,
			stats.DailyEarnings,
			stats.AverageRate,
			apr,
			stats.FRR,
			stats.Credits,
		)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] funding stats\n", stats.At.Format("2006-01-02 15:04:05"))

	table := tablewriter.NewWriter(c.out)
	table.Header("Total lent", "Daily earnings", "Avg daily rate", "APY", "FRR", "Credits")
	table.Append(
		fmt.Sprintf("$%.2f", stats.TotalLent),
		fmt.Sprintf("$%.4f", stats.DailyEarnings),
		fmt.Sprintf("%.6f", stats.AverageRate),
		fmt.Sprintf("%.2f%%", apr),
		fmt.Sprintf("%.6f", stats.FRR),
		fmt.Sprintf("%d", stats.Credits),
	)
	table.Render()
	return nil
}
