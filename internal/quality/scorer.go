// Package quality computes the data-quality and compliance scores for a
// finished run and renders the audit scorecard.
package quality

import (
	"fmt"
	"strings"

	"github.com/inferloop/dataforge/pkg/models"
)

const (
	rejectedPenalty = 0.1
	dedupPenalty    = 0.05
	errorPenalty    = 0.5

	missingTargetPenalty     = 20.0
	incompleteLineageLength  = 3
	incompleteLineagePenalty = 15.0
	anyErrorPenalty          = 10.0
	missingAuditPenalty      = 10.0
)

// Scorer evaluates jobs against fixed scoring rules.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// DataQualityScore returns the 0..100 quality score. Each rejected record
// costs 0.1 points, each deduplicated record 0.05, each error record 0.5.
func (s *Scorer) DataQualityScore(job *models.Job) float64 {
	score := 100.0
	score -= float64(job.Statistics.TotalRecordsRejected) * rejectedPenalty
	score -= float64(job.Statistics.TotalRecordsDeduplicated) * dedupPenalty
	score -= float64(len(job.Errors)) * errorPenalty
	return clamp(score)
}

// ComplianceScore returns the 0..100 compliance score based on target
// completeness, lineage depth, error presence, and audit-log presence.
func (s *Scorer) ComplianceScore(job *models.Job) float64 {
	score := 100.0
	if job.TargetDataset == "" || job.TargetTable == "" {
		score -= missingTargetPenalty
	}
	if len(job.Lineage) < incompleteLineageLength {
		score -= incompleteLineagePenalty
	}
	if len(job.Errors) > 0 {
		score -= anyErrorPenalty
	}
	if job.AuditLogPath == "" {
		score -= missingAuditPenalty
	}
	return clamp(score)
}

// Grade bands a score into a letter grade.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// RenderScorecard produces the human-readable audit report stored alongside
// the job.
func (s *Scorer) RenderScorecard(job *models.Job, dqScore, complianceScore float64) string {
	var b strings.Builder

	b.WriteString("=== Pipeline Audit Report ===\n")
	fmt.Fprintf(&b, "Job ID: %s\n", job.ID)
	fmt.Fprintf(&b, "Status: %s\n", job.Status)
	fmt.Fprintf(&b, "Dataset Version: %s\n", job.DatasetVersion)
	fmt.Fprintf(&b, "Mapping Version: %s\n\n", job.MappingVersion)

	b.WriteString("=== Data Quality Scorecard ===\n")
	fmt.Fprintf(&b, "Total Records Read: %d\n", job.Statistics.TotalRecordsRead)
	fmt.Fprintf(&b, "Total Records Loaded: %d\n", job.Statistics.TotalRecordsLoaded)
	fmt.Fprintf(&b, "Total Records Rejected: %d\n", job.Statistics.TotalRecordsRejected)
	fmt.Fprintf(&b, "Total Records Deduplicated: %d\n", job.Statistics.TotalRecordsDeduplicated)
	fmt.Fprintf(&b, "Data Quality Score: %.2f/100 (%s)\n\n", dqScore, Grade(dqScore))

	b.WriteString("=== Compliance Report ===\n")
	fmt.Fprintf(&b, "Compliance Score: %.2f/100 (%s)\n", complianceScore, Grade(complianceScore))
	fmt.Fprintf(&b, "Lineage Entries: %d\n", len(job.Lineage))
	fmt.Fprintf(&b, "Error Count: %d\n\n", len(job.Errors))

	b.WriteString("=== Lineage Tracking ===\n")
	for _, entry := range job.Lineage {
		fmt.Fprintf(&b, "[%s] %s (Duration: %dms)\n", entry.Step, entry.StageName, entry.Duration.Milliseconds())
		fmt.Fprintf(&b, "  Input Records: %d, Output Records: %d\n", entry.InputRecords, entry.OutputRecords)
	}

	if len(job.Findings) > 0 {
		b.WriteString("\n=== Anomaly Findings ===\n")
		for _, f := range job.Findings {
			fmt.Fprintf(&b, "[%s] %s (%s): %s\n", f.Severity, f.FieldName, f.Type, f.Description)
		}
	}

	if len(job.Errors) > 0 {
		b.WriteString("\n=== Errors Encountered ===\n")
		for _, e := range job.Errors {
			fmt.Fprintf(&b, "[%s] %s: %s\n", e.ErrorType, e.FieldName, e.Message)
		}
	}

	return b.String()
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
