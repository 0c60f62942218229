package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inferloop/dataforge/internal/bootstrap"
	"github.com/inferloop/dataforge/internal/config"
	"github.com/inferloop/dataforge/internal/quality"
	"github.com/inferloop/dataforge/pkg/models"
)

type RunOptions struct {
	SourcePath    string
	TargetDataset string
	TargetTable   string
	ShowReport    bool
}

func NewRunCmd(cfgFile *string) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline against one source",
		Example: `  # Load a local CSV into the warehouse
  dataforge run --source ./orders.csv --dataset analytics --table dw_orders

  # Load from S3 and print the audit scorecard
  dataforge run --source s3://landing/orders.csv --dataset analytics --table dw_orders --report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), *cfgFile, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.SourcePath, "source", "s", "", "Source path or s3:// URI (required)")
	cmd.Flags().StringVarP(&opts.TargetDataset, "dataset", "d", "analytics", "Target warehouse dataset")
	cmd.Flags().StringVarP(&opts.TargetTable, "table", "t", "", "Target warehouse table (required)")
	cmd.Flags().BoolVar(&opts.ShowReport, "report", false, "Print the audit scorecard after the run")

	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("table")

	return cmd
}

func runPipeline(ctx context.Context, cfgFile string, opts *RunOptions) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg.Logging)
	runtime, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer runtime.Close()

	job := models.NewJob(opts.SourcePath, opts.TargetDataset, opts.TargetTable)
	result, err := runtime.Conductor.Run(ctx, job)
	if err != nil {
		return fmt.Errorf("pipeline ended with status %s: %w", result.Status, err)
	}

	fmt.Printf("Job %s finished: %s\n", result.ID, result.Status)
	fmt.Printf("  records read:         %d\n", result.Statistics.TotalRecordsRead)
	fmt.Printf("  records loaded:       %d\n", result.Statistics.TotalRecordsLoaded)
	fmt.Printf("  records rejected:     %d\n", result.Statistics.TotalRecordsRejected)
	fmt.Printf("  records deduplicated: %d\n", result.Statistics.TotalRecordsDeduplicated)

	if opts.ShowReport {
		scorer := quality.NewScorer()
		dq := scorer.DataQualityScore(result)
		compliance := scorer.ComplianceScore(result)
		fmt.Println()
		fmt.Println(scorer.RenderScorecard(result, dq, compliance))
	}
	return nil
}
