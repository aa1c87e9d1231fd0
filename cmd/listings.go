package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/listing"
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Print the normalized listing pool, or search it by keywords",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		e := setup()
		defer e.close()

		repo, closeStore, err := newRepository(ctx, e.config.Store, e.logger)
		if err != nil {
			e.logger.Fatal("opening listing store", zap.Error(err))
		}
		defer closeStore()

		keywords, _ := cmd.Flags().GetStringSlice("search")
		limit, _ := cmd.Flags().GetInt("limit")

		var listings []*listing.JobListing
		if len(keywords) > 0 {
			listings, err = repo.SearchListings(ctx, keywords, limit)
			if errors.Is(err, listing.ErrNoSearch) {
				e.logger.Fatal("the configured store does not support search", zap.String("driver", e.config.Store.Driver))
			}
		} else {
			listings, err = repo.FetchListings(ctx)
		}
		if err != nil {
			e.logger.Fatal("fetching listings", zap.Error(err))
		}

		e.logger.Info("listings loaded", zap.Int("count", len(listings)))
		if err := writeOutput(e.config.Output, listings); err != nil {
			e.logger.Fatal("writing results", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(listingsCmd)

	listingsCmd.Flags().StringSlice("search", nil, "keywords to search for in titles, skills and requirements")
	listingsCmd.Flags().Int("limit", 50, "maximum number of listings returned by --search")
}
