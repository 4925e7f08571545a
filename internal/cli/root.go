package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"visitstats/internal/aggregator"
	"visitstats/internal/repository"
)

func showHelp(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// options are the persistent flags shared by every report
type options struct {
	backend  string
	state    string
	timezone string
	format   string
}

func RootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "visitstats",
		Short:         "Offline reports over a saved visit snapshot",
		Args:          cobra.NoArgs,
		RunE:          showHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.backend, "backend", "b", repository.BackendFile, "Snapshot backend to read (file or sqlite)")
	flags.StringVarP(&opts.state, "state", "s", "data/visits.json", "Path of the state file or SQLite database")
	flags.StringVar(&opts.timezone, "tz", "UTC", "Timezone for calendar boundaries")
	flags.StringVarP(&opts.format, "format", "f", formatTable, "Output format: table, markdown or csv")

	rootCmd.AddCommand(
		summaryCmd(opts),
		rangeCmd(opts),
		groupedCmd(opts),
		weekdaysCmd(opts),
	)
	return rootCmd
}

// load restores the snapshot selected by opts into a fresh index
func (o *options) load(ctx context.Context) (*aggregator.Aggregator, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", o.timezone, err)
	}

	var store repository.VisitStore
	switch o.backend {
	case repository.BackendFile:
		store, err = repository.NewFileStore(o.state)
	case repository.BackendSQLite:
		store, err = repository.NewSQLiteStore(ctx, o.state)
	default:
		return nil, fmt.Errorf("unsupported backend %q for offline reports (want file or sqlite)", o.backend)
	}
	if err != nil {
		return nil, err
	}
	defer store.Close()

	snapshot, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	agg := aggregator.New(loc)
	if err := agg.Restore(snapshot); err != nil {
		return nil, err
	}
	return agg, nil
}
