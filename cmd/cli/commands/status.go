package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/inferloop/dataforge/pkg/models"
)

type StatusOptions struct {
	ServerURL string
	Lineage   bool
	Report    bool
}

// NewStatusCmd queries a running dataforge server for a job.
func NewStatusCmd() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a job on a running server",
		Args:  cobra.ExactArgs(1),
		Example: `  dataforge status 7f3c2e10-...
  dataforge status 7f3c2e10-... --lineage
  dataforge status 7f3c2e10-... --report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.ServerURL, "server", "http://localhost:8080", "dataforge server URL")
	cmd.Flags().BoolVar(&opts.Lineage, "lineage", false, "Show the per-stage lineage")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "Show the audit report")

	return cmd
}

func runStatus(opts *StatusOptions, jobID string) error {
	client := &http.Client{Timeout: 15 * time.Second}

	var job models.Job
	if err := getJSON(client, fmt.Sprintf("%s/api/v1/jobs/%s", opts.ServerURL, jobID), &job); err != nil {
		return err
	}

	fmt.Printf("Job %s\n", job.ID)
	fmt.Printf("  status:  %s\n", job.Status)
	fmt.Printf("  source:  %s\n", job.SourcePath)
	fmt.Printf("  target:  %s.%s\n", job.TargetDataset, job.TargetTable)
	fmt.Printf("  read:    %d\n", job.Statistics.TotalRecordsRead)
	fmt.Printf("  loaded:  %d\n", job.Statistics.TotalRecordsLoaded)

	if opts.Lineage {
		var lineage struct {
			Lineage []models.LineageEntry `json:"lineage"`
		}
		if err := getJSON(client, fmt.Sprintf("%s/api/v1/jobs/%s/lineage", opts.ServerURL, jobID), &lineage); err != nil {
			return err
		}
		fmt.Println("\nLineage:")
		for _, entry := range lineage.Lineage {
			outcome := "ok"
			if entry.Failed {
				outcome = "FAILED: " + entry.Error
			}
			fmt.Printf("  %-18s %-10s in=%d out=%d %s\n",
				entry.Step, entry.StageName, entry.InputRecords, entry.OutputRecords, outcome)
		}
	}

	if opts.Report {
		var report struct {
			Scorecard string `json:"scorecard"`
		}
		if err := getJSON(client, fmt.Sprintf("%s/api/v1/jobs/%s/report", opts.ServerURL, jobID), &report); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(report.Scorecard)
	}
	return nil
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
