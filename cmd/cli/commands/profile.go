package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inferloop/dataforge/internal/anomaly"
	"github.com/inferloop/dataforge/internal/bootstrap"
	"github.com/inferloop/dataforge/internal/config"
	"github.com/inferloop/dataforge/internal/schema"
)

type ProfileOptions struct {
	SourcePath   string
	SampleSize   int
	OutputFormat string
}

// NewProfileCmd inspects a source without loading it: inferred schema,
// semantic tags, and anomaly findings.
func NewProfileCmd(cfgFile *string) *cobra.Command {
	opts := &ProfileOptions{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Infer the schema of a source and profile it for anomalies",
		Example: `  # Profile a local CSV
  dataforge profile --source ./orders.csv

  # JSON output for scripting
  dataforge profile --source s3://landing/orders.csv --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), *cfgFile, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.SourcePath, "source", "s", "", "Source path or s3:// URI (required)")
	cmd.Flags().IntVar(&opts.SampleSize, "sample", 10, "Rows sampled for type inference")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "text", "Output format (text, json)")

	cmd.MarkFlagRequired("source")

	return cmd
}

func runProfile(ctx context.Context, cfgFile string, opts *ProfileOptions) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg.Logging)
	src, err := bootstrap.NewSource(cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	rs, err := src.Fetch(ctx, opts.SourcePath, 0)
	if err != nil {
		return err
	}
	if len(rs.Rows) == 0 {
		return fmt.Errorf("source %s contains no rows", opts.SourcePath)
	}

	sample := *rs
	if opts.SampleSize > 0 && len(rs.Rows) > opts.SampleSize {
		sample.Rows = rs.Rows[:opts.SampleSize]
	}

	contract := schema.NewInferrer(logger).InferContract(&sample)
	findings := anomaly.NewEngine(logger).Profile(ctx, contract, rs.Rows)

	if opts.OutputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"contract": contract,
			"findings": findings,
		})
	}

	fmt.Printf("Source: %s (%d rows, fingerprint %s)\n\n", rs.Location, rs.TotalRows, rs.Fingerprint)
	fmt.Println("Fields:")
	for _, field := range contract.Fields {
		fmt.Printf("  %-24s %-10s confidence %.2f  nulls %.0f%%  tags %v\n",
			field.Name, field.InferredType, field.Confidence, field.NullPercentage*100, field.Tags)
	}

	if len(findings) == 0 {
		fmt.Println("\nNo anomalies found.")
		return nil
	}
	fmt.Printf("\nFindings (%d):\n", len(findings))
	for _, f := range findings {
		fmt.Printf("  [%s] %s %s: %s\n", f.Severity, f.FieldName, f.Type, f.Description)
	}
	return nil
}
