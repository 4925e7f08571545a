package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"visitstats/internal/domain"
)

const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatCSV      = "csv"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)

	t.Style().Title.Align = text.AlignCenter
	t.Style().Format.Header = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	return t
}

func render(t table.Writer, format string) error {
	switch format {
	case formatTable:
		t.Render()
	case formatMarkdown:
		t.RenderMarkdown()
	case formatCSV:
		t.RenderCSV()
	default:
		return fmt.Errorf("unknown format %q (want table, markdown or csv)", format)
	}
	return nil
}

// rangeFlags registers the --start and --end flags of a range report
func rangeFlags(cmd *cobra.Command, start, end *string) {
	cmd.Flags().StringVar(start, "start", "", "Range start (YYYY-MM-DD, YYYY-MM-DDTHH or RFC 3339)")
	cmd.Flags().StringVar(end, "end", "", "Range end, inclusive (same formats; a bare date covers the whole day)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func parseRange(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	lo, err := domain.ParseTimeBound(start, loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	hi, err := domain.ParseTimeBound(end, loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return lo, hi, nil
}

func summaryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Totals and unique clients for the day, month and year around a date",
		Args:  cobra.NoArgs,
	}
	var date string
	cmd.Flags().StringVarP(&date, "date", "d", "", "Reference date (default today)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		agg, err := opts.load(cmd.Context())
		if err != nil {
			return err
		}

		ref := time.Now().In(agg.Location())
		if date != "" {
			if ref, err = domain.ParseTimeBound(date, agg.Location(), false); err != nil {
				return err
			}
		}

		stats := agg.Summary(ref)
		t := newTable(cmd.OutOrStdout(), "SUMMARY "+ref.Format("2006-01-02"))
		t.AppendHeader(table.Row{"Scope", "Total", "Unique"})
		t.AppendRows([]table.Row{
			{"Day", stats.DayTotal, stats.DayUnique},
			{"Month", stats.MonthTotal, stats.MonthUnique},
			{"Year", stats.YearTotal, stats.YearUnique},
			{"All", stats.Total, stats.TotalUnique},
		})
		return render(t, opts.format)
	}
	return cmd
}

func rangeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Total and unique clients over a closed hour range",
		Args:  cobra.NoArgs,
	}
	var start, end string
	rangeFlags(cmd, &start, &end)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		agg, err := opts.load(cmd.Context())
		if err != nil {
			return err
		}
		lo, hi, err := parseRange(start, end, agg.Location())
		if err != nil {
			return err
		}

		stats := agg.Range(lo, hi)
		t := newTable(cmd.OutOrStdout(), "RANGE")
		t.AppendHeader(table.Row{"Range", "Total", "Unique"})
		t.AppendRow(table.Row{
			lo.Format("2006-01-02 15:00") + " .. " + hi.Format("2006-01-02 15:00"),
			stats.Total,
			stats.Unique,
		})
		return render(t, opts.format)
	}
	return cmd
}

func groupedCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grouped",
		Short: "Per-bucket totals at hour, day, month or year resolution",
		Args:  cobra.NoArgs,
	}
	var start, end, resolution string
	rangeFlags(cmd, &start, &end)
	cmd.Flags().StringVarP(&resolution, "resolution", "r", string(domain.ResolutionDay), "Bucket width: hour, day, month or year")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		res, err := domain.ParseResolution(resolution)
		if err != nil {
			return err
		}
		agg, err := opts.load(cmd.Context())
		if err != nil {
			return err
		}
		lo, hi, err := parseRange(start, end, agg.Location())
		if err != nil {
			return err
		}

		buckets, err := agg.Grouped(lo, hi, res)
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout(), "GROUPED BY "+string(res))
		t.AppendHeader(table.Row{"Bucket", "Total", "Unique"})
		var total int64
		for _, b := range buckets {
			t.AppendRow(table.Row{b.Label(), b.Total, b.Unique})
			total += b.Total
		}
		t.AppendFooter(table.Row{"Sum", total, ""})
		return render(t, opts.format)
	}
	return cmd
}

func weekdaysCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weekdays",
		Short: "Totals per day of week, Monday first",
		Args:  cobra.NoArgs,
	}
	var start, end string
	rangeFlags(cmd, &start, &end)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		agg, err := opts.load(cmd.Context())
		if err != nil {
			return err
		}
		lo, hi, err := parseRange(start, end, agg.Location())
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout(), "WEEKDAYS")
		t.AppendHeader(table.Row{"Weekday", "Total", "Unique"})
		for _, w := range agg.WeekdayBreakdown(lo, hi) {
			t.AppendRow(table.Row{w.Weekday, w.Total, w.Unique})
		}
		return render(t, opts.format)
	}
	return cmd
}
