package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the résumé against the listing pool and print the ranked results as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		e := setup()
		defer e.close()

		profile, err := loadProfile(e.config.Profile)
		if err != nil {
			e.logger.Fatal("loading profile", zap.Error(err))
		}
		summary, err := loadSummary(e.config.SummaryFile)
		if err != nil {
			e.logger.Fatal("loading summary", zap.Error(err))
		}

		pool, _, closeStore := fetchFiltered(ctx, cmd, e)
		defer closeStore()

		matches := []matching.MatchedJob{}
		if len(pool) > 0 {
			svc, err := newService(ctx, e.config, e.logger)
			if err != nil {
				e.logger.Fatal("building matching service", zap.Error(err))
			}
			matches = svc.MatchResumeToJobs(ctx, profile, summary, pool)
		}

		if err := writeOutput(e.config.Output, matches); err != nil {
			e.logger.Fatal("writing results", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	addFilterFlags(matchCmd)
}
