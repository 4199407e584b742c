package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/mondrian/internal/config"
	"github.com/marcin-skalski/mondrian/internal/fetch"
	"github.com/marcin-skalski/mondrian/internal/gerrit"
	"github.com/marcin-skalski/mondrian/internal/logging"
	"github.com/marcin-skalski/mondrian/internal/status"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List open changes that are ready for review or reviewed",
	Args:  cobra.NoArgs,
	RunE:  runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.LogFile, cfg.Log.Level, false)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logger.Close()

	gc := newGerrit(cfg, logger.Logger)
	changes, err := gc.ListOpenChanges(cmd.Context())
	if err != nil {
		return err
	}

	buckets := make(map[status.ReviewState][]gerrit.ChangeSummary)
	for _, ch := range changes {
		labels, err := gc.ChangeDetail(cmd.Context(), ch.ID)
		if errors.Is(err, fetch.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		state := status.ClassifyReview(labels, cfg.Gerrit.Label)
		buckets[state] = append(buckets[state], ch)
	}

	out := cmd.OutOrStdout()
	printBucket(out, status.CategoryReadyForReview, buckets[status.ReviewReady], cfg.Gerrit.LimitsReadyForReview)
	printBucket(out, status.CategoryReviewed, buckets[status.ReviewReviewed], cfg.Gerrit.LimitsReviewed)
	return nil
}

func printBucket(w io.Writer, cat status.Category, changes []gerrit.ChangeSummary, limits status.Thresholds) {
	fmt.Fprintf(w, "%s: %d (%s)\n", cat, len(changes), limits.Level(len(changes)))
	for _, ch := range changes {
		fmt.Fprintf(w, "  %d %s: %s\n", ch.Number, ch.Project, ch.Subject)
	}
}
