package stages

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

const defaultMaxErrorRate = 0.10

var (
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	emailPattern   = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)
)

// ValidateStage checks the cleaned rows against the mappings' validation
// rules. Individual violations are recorded and non-fatal; the stage fails
// only when the violation rate exceeds the configured ceiling.
type ValidateStage struct {
	maxErrorRate float64
	logger       *logrus.Logger
}

func NewValidateStage(maxErrorRate float64, logger *logrus.Logger) *ValidateStage {
	if maxErrorRate <= 0 {
		maxErrorRate = defaultMaxErrorRate
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ValidateStage{maxErrorRate: maxErrorRate, logger: logger}
}

func (s *ValidateStage) Name() string { return "validate" }

func (s *ValidateStage) Execute(_ context.Context, job *models.Job) (*models.Job, error) {
	total := len(job.CleanedRows)
	if total == 0 {
		job.ReportCounts(0, 0)
		return job, nil
	}

	var violations int64
	for i, row := range job.CleanedRows {
		for _, fm := range job.Mappings {
			value, present := row[fm.SourceField]
			if !present || value == nil {
				continue
			}
			for _, rule := range fm.ValidationRules {
				if msg := checkRule(rule, value); msg != "" {
					violations++
					job.AppendError(models.ErrorRecord{
						RecordID:  fmt.Sprintf("row_%d", i),
						FieldName: fm.SourceField,
						ErrorType: rule.Type,
						Message:   msg,
						RawValue:  fmt.Sprintf("%v", value),
					})
				}
			}
		}
	}

	rate := float64(violations) / float64(total)
	job.ReportCounts(int64(total), int64(total))
	s.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"rows":       total,
		"violations": violations,
		"error_rate": rate,
	}).Info("Validation complete")

	if rate > s.maxErrorRate {
		return nil, apperrors.WrapError(apperrors.ErrErrorRateExceeded,
			apperrors.ErrorTypeStage, apperrors.CodeErrorRateExceeded,
			fmt.Sprintf("error rate %.3f exceeds ceiling %.3f", rate, s.maxErrorRate))
	}
	return job, nil
}

func checkRule(rule models.ValidationRule, value interface{}) string {
	switch rule.Type {
	case "LENGTH":
		if s, ok := value.(string); ok && len(s) > maxLength(rule.Expression) {
			return rule.Message
		}
	case "RANGE":
		if f, ok := toNumber(value); ok && f < 0 {
			return rule.Message
		}
	case "FORMAT":
		if s, ok := value.(string); ok && !isoDatePattern.MatchString(s) {
			return rule.Message
		}
	case "PATTERN":
		if s, ok := value.(string); ok && !emailPattern.MatchString(s) {
			return rule.Message
		}
	}
	return ""
}

func maxLength(expression string) int {
	idx := strings.LastIndex(expression, "<=")
	if idx < 0 {
		return 255
	}
	n, err := strconv.Atoi(strings.TrimSpace(expression[idx+2:]))
	if err != nil || n <= 0 {
		return 255
	}
	return n
}

func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
