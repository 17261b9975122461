package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/datapilot-ml/datapilot-go/pkg/config"
	"github.com/datapilot-ml/datapilot-go/pkg/pipeline"
	"github.com/datapilot-ml/datapilot-go/utils"
)

var (
	cfgFile    string
	flagTarget string
	flagOut    string
)

var rootCmd = &cobra.Command{
	Use:   "datapilot",
	Short: "Automated EDA and model selection for tabular datasets",
	Long: `datapilot ingests a delimited tabular file, infers a column schema,
cleans the data, profiles it statistically, cross-validates a fixed roster
of candidate models, and scores the dataset's learnability.`,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run the full analysis pipeline on a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagOut != "" {
			cfg.OutputDir = flagOut
		}

		logger := utils.NewLogger()
		logger.SetLevel(utils.ParseLogLevel(cfg.LogLevel))
		logger.SetFormat(cfg.LogFormat)

		runner := pipeline.NewRunner(cfg, logger)
		report, err := runner.Run(args[0], flagTarget)
		if err != nil {
			if report != nil {
				// training failed with insufficient data; the earlier
				// stages are still worth showing
				printReport(report)
			}
			return err
		}

		printReport(report)
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadConfigFile(cfgFile)
	}
	return config.LoadConfig()
}

func printReport(report *pipeline.RunReport) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "formatting report: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	analyzeCmd.Flags().StringVar(&flagTarget, "target", "", "target column to predict (inferred when omitted)")
	analyzeCmd.Flags().StringVar(&flagOut, "out", "", "artifact output directory (overrides config)")
	rootCmd.AddCommand(analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
