package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/engine"
	"github.com/kozaktomas/photo-finder/internal/facematch"
)

var searchCmd = &cobra.Command{
	Use:   "search <event-code> <selfie-path>",
	Short: "Find photos of a person in an event",
	Long: `Search an event's face corpus with a selfie and list every photo
the person appears in, best match first.

Example:
  photo-finder search summer-wedding selfie.jpg
  photo-finder search --threshold 0.45 --limit 20 summer-wedding selfie.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Float64("threshold", 0, "Similarity threshold (0-1); defaults per backend")
	searchCmd.Flags().Int("limit", 0, "Maximum number of photos to list (0 = all)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	code := args[0]
	selfiePath := args[1]
	limit := mustGetInt(cmd, "limit")

	var threshold *float64
	if cmd.Flags().Changed("threshold") {
		value := mustGetFloat64(cmd, "threshold")
		threshold = &value
	}

	ctx := context.Background()
	env, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.events == nil {
		return errors.New("DATABASE_URL environment variable is required for search")
	}

	event, err := env.events.GetEventByCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("event %s not found", code)
		}
		return fmt.Errorf("looking up event %s: %w", code, err)
	}

	selfie, err := os.ReadFile(selfiePath)
	if err != nil {
		return fmt.Errorf("reading selfie: %w", err)
	}

	result, err := env.engine.Search(ctx, event.ID, selfie, threshold, limit)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNoFaceDetected):
			return errors.New("no face detected in the selfie")
		case errors.Is(err, facematch.ErrThresholdRequired):
			return errors.New("this backend requires --threshold")
		default:
			return fmt.Errorf("search failed: %w", err)
		}
	}

	if len(result.Matches) == 0 {
		fmt.Printf("No matches in %s (threshold %.2f)\n", event.Code, result.ThresholdUsed)
		return nil
	}

	fmt.Printf("%d matching photos in %s (threshold %.2f):\n", result.TotalMatches, event.Code, result.ThresholdUsed)
	for i, match := range result.Matches {
		photoLabel := match.PhotoID
		if photo, err := env.photos.GetPhoto(ctx, match.PhotoID); err == nil {
			photoLabel = photo.Filename
		}
		fmt.Printf("%3d. %-40s similarity %.3f\n", i+1, photoLabel, match.Similarity)
	}
	return nil
}
