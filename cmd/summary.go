package cmd

import (
	"github.com/spf13/cobra"

	"whop-scraper/config"
	"whop-scraper/services"
	"whop-scraper/storage"
	"whop-scraper/utils"
)

var fromDB bool

var summaryCmd = &cobra.Command{
	Use:   "summary [csv-file]",
	Short: "Print the insight report for an earlier run",
	Long: `Recompute the insight report from a CSV written by "scrape"
(default CSV_OUTPUT_PATH), or from PostgreSQL with --from-db.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&fromDB, "from-db", false, "read communities from PostgreSQL instead of the CSV")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := utils.NewLogger(cfg.LogLevel)

	var source storage.RecordReader
	if fromDB {
		pg, err := storage.NewPostgresWriter(cmd.Context(), cfg.DSN(), logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		source = pg
	} else {
		path := cfg.CSVOutputPath
		if len(args) > 0 {
			path = args[0]
		}
		source = storage.NewCSVReader(path)
	}

	communities, err := source.FetchAll()
	if err != nil {
		return err
	}
	insights := services.NewInsightService(logger)
	insights.Print(cmd.OutOrStdout(), insights.Generate(communities))
	return nil
}
