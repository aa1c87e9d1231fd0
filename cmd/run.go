package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/listing"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	PromptShowMatches         = "Show matches"
	PromptShowRecommendations = "Show recommendations"
	PromptReportByCompany     = "Report by company"
	PromptFilterStatus        = "Show filter status"
	PromptResultsToFile       = "Dump results to file"
	PromptAppendToExcludeFile = "Append matched listings to exclude file"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

// Results is what a run produces.
type Results struct {
	GeneratedAt     time.Time                 `json:"generated_at"`
	Matches         []matching.MatchedJob     `json:"matches"`
	Recommendations []matching.Recommendation `json:"recommendations,omitempty"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Match the résumé against the listing pool and review the results",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not open the interactive menu, print results as JSON")
	addFilterFlags(runCmd)
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e := setup()
	defer e.close()
	logger, config := e.logger, e.config

	logger.Info("starting the resume-matcher", zap.String("version", version))

	profile, err := loadProfile(config.Profile)
	if err != nil {
		logger.Fatal("loading profile", zap.Error(err))
	}
	summary, err := loadSummary(config.SummaryFile)
	if err != nil {
		logger.Fatal("loading summary", zap.Error(err))
	}

	pool, steps, closeStore := fetchFiltered(ctx, cmd, e)
	defer closeStore()
	if len(pool) == 0 {
		logger.Info("exiting", zap.String("reason", "no listings left to match"))
		return
	}

	svc, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("building matching service", zap.Error(err))
	}

	results := &Results{
		GeneratedAt: time.Now().UTC(),
		Matches:     svc.MatchResumeToJobs(ctx, profile, summary, pool),
	}
	if config.Recommendations == nil || config.Recommendations.Enabled {
		results.Recommendations = svc.GenerateJobRecommendations(ctx, profile)
	}

	logger.Info("matching completed",
		zap.Int("matches", len(results.Matches)),
		zap.Int("recommendations", len(results.Recommendations)),
	)

	if approved, _ := cmd.Flags().GetBool("auto-approve"); approved {
		if err := writeOutput(config.Output, results); err != nil {
			logger.Fatal("writing results", zap.Error(err))
		}
		return
	}

	excludeFile := ""
	if config.Filters != nil {
		excludeFile = strings.TrimSpace(config.Filters.ExcludeFile)
	}

	for {
		items := []string{PromptShowMatches, PromptShowRecommendations, PromptReportByCompany, PromptFilterStatus, PromptResultsToFile}
		if excludeFile != "" && len(results.Matches) > 0 {
			items = append(items, PromptAppendToExcludeFile)
		}

		menu := promptui.Select{
			Label: "What next?",
			Items: append(items, PromptExit),
		}

		_, action, err := menu.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, excludeFile, steps, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, excludeFile string, steps []filtering.Filter, results *Results) error {
	switch action {
	case PromptShowMatches:
		for i, match := range results.Matches {
			fmt.Println(formatMatch(i+1, match))
		}
		return nil
	case PromptShowRecommendations:
		if len(results.Recommendations) == 0 {
			logger.Info("no recommendations available")
		}
		for _, rec := range results.Recommendations {
			fmt.Println(rec.Describe())
		}
		return nil
	case PromptReportByCompany:
		matched := matchedListings(results.Matches)
		pretty, _ := json.MarshalIndent(matched.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("listings count", matched.Len()))
		return nil
	case PromptFilterStatus:
		for _, status := range filtering.Describe(steps) {
			fmt.Println(formatStatus(status))
		}
		return nil
	case PromptResultsToFile:
		filename, err := utils.DumpToTmpFile("resume-matcher_*.json", results)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(logger, excludeFile, results)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// appendToExcludeFile records every matched listing so later runs skip it.
func appendToExcludeFile(logger *zap.Logger, path string, results *Results) error {
	excluded, err := listing.GetExcludedListingsFromFile(path)
	if err != nil {
		return err
	}

	excluded.Append(matchedListings(results.Matches).ToExcluded())
	if err := excluded.ToFile(path); err != nil {
		return err
	}

	logger.Info("appended to exclude file",
		zap.String("filename", path),
		zap.Int("count", len(results.Matches)),
	)
	results.Matches = nil
	return nil
}

func matchedListings(matches []matching.MatchedJob) *listing.Listings {
	l := &listing.Listings{Items: make([]*listing.JobListing, 0, len(matches))}
	for _, m := range matches {
		l.Items = append(l.Items, m.JobListing)
	}
	return l
}

func formatMatch(rank int, m matching.MatchedJob) string {
	d := m.MatchDetails
	return fmt.Sprintf("%2d. [%3d] %s - %s / %s (%s)\n    matched: %s\n    missing: %s\n    %s",
		rank, d.MatchScore, d.JobFit, m.Title, m.Company, m.URL,
		strings.Join(d.MatchedSkills, ", "),
		strings.Join(d.MissingSkills, ", "),
		d.MatchReasoning,
	)
}

func formatStatus(s filtering.Status) string {
	state := "enabled"
	if !s.Enabled {
		state = "disabled"
		if s.Reason != "" {
			state += ": " + s.Reason
		}
	}

	keys := make([]string, 0, len(s.Details))
	for key := range s.Details {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	line := fmt.Sprintf("%s (%s)", s.Name, state)
	for _, key := range keys {
		line += fmt.Sprintf("\n    %s: %s", key, s.Details[key])
	}
	return line
}
