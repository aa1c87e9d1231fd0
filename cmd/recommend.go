package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest job roles for the résumé",
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		e := setup()
		defer e.close()

		profile, err := loadProfile(e.config.Profile)
		if err != nil {
			e.logger.Fatal("loading profile", zap.Error(err))
		}

		svc, err := newService(ctx, e.config, e.logger)
		if err != nil {
			e.logger.Fatal("building matching service", zap.Error(err))
		}

		if err := writeOutput(e.config.Output, svc.GenerateJobRecommendations(ctx, profile)); err != nil {
			e.logger.Fatal("writing results", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}
