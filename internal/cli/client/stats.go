package client

import (
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/spf13/cobra"
)

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var stats *domain.CollectionStats
	if remote := NewAPIClientWithCmd(cmd); remote != nil {
		var err error
		stats, err = remote.Stats(ctx)
		if err != nil {
			return err
		}
	} else {
		p, err := openPipeline(ctx, cmd, false)
		if err != nil {
			return err
		}
		defer p.Close()

		stats, err = p.Index.Stats(ctx)
		if err != nil {
			return err
		}
	}

	if outputJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), stats)
	}
	printStats(cmd.OutOrStdout(), stats)
	return nil
}
