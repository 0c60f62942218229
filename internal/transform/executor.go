package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/pkg/models"
)

// Result is the outcome of applying a spec to a record batch.
type Result struct {
	Rows         []map[string]interface{}
	Rejected     int64
	Deduplicated int64
	Errors       []models.ErrorRecord
}

// Executor applies a transformation spec to raw rows.
type Executor struct {
	logger *logrus.Logger
	now    func() time.Time
}

func NewExecutor(logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Executor{logger: logger, now: time.Now}
}

// Apply cleans every row per the spec's rules, rejects rows violating a
// reject-on-null rule, then deduplicates by the configured key fields. Field
// names are left as source names; renaming to canonical names happens at
// load time via the mappings.
func (e *Executor) Apply(spec *models.TransformationSpec, rows []map[string]string) *Result {
	res := &Result{Rows: make([]map[string]interface{}, 0, len(rows))}

	dropped := map[string]bool{}
	for _, rule := range spec.CleaningRules {
		if rule.NullHandling == models.NullDropField {
			dropped[rule.Field] = true
		}
	}

	for i, raw := range rows {
		row, errs := e.cleanRow(spec, raw, i, dropped)
		if row == nil {
			res.Rejected++
			res.Errors = append(res.Errors, errs...)
			continue
		}
		res.Errors = append(res.Errors, errs...)
		res.Rows = append(res.Rows, row)
	}

	if spec.Deduplication != nil && spec.Deduplication.Enabled {
		res.Rows, res.Deduplicated = deduplicate(res.Rows, spec.Deduplication)
	}

	e.logger.WithFields(logrus.Fields{
		"rows_in":      len(rows),
		"rows_out":     len(res.Rows),
		"rejected":     res.Rejected,
		"deduplicated": res.Deduplicated,
	}).Info("Transformation applied")
	return res
}

// cleanRow returns nil when the row is rejected outright.
func (e *Executor) cleanRow(spec *models.TransformationSpec, raw map[string]string, idx int, dropped map[string]bool) (map[string]interface{}, []models.ErrorRecord) {
	row := make(map[string]interface{}, len(raw))
	var errs []models.ErrorRecord

	for field, value := range raw {
		if dropped[field] {
			continue
		}
		rule := spec.Rule(field)
		if rule == nil {
			row[field] = value
			continue
		}

		if strings.TrimSpace(value) == "" {
			switch rule.NullHandling {
			case models.NullReject:
				errs = append(errs, models.ErrorRecord{
					RecordID:  fmt.Sprintf("row_%d", idx),
					FieldName: field,
					ErrorType: "NULL_KEY",
					Message:   "required field is empty",
				})
				return nil, errs
			case models.NullFillUnknown:
				row[field] = "UNKNOWN"
			case models.NullZero:
				row[field] = 0.0
			case models.NullCurrentDate:
				row[field] = e.now().UTC().Format("2006-01-02")
			default:
				row[field] = nil
			}
			continue
		}

		cleaned, err := applyOperations(value, rule.Operations)
		if err != nil {
			errs = append(errs, models.ErrorRecord{
				RecordID:  fmt.Sprintf("row_%d", idx),
				FieldName: field,
				ErrorType: "CLEANING_FAILED",
				Message:   err.Error(),
				RawValue:  value,
			})
			row[field] = value
			continue
		}
		row[field] = cleaned
	}
	return row, errs
}

func applyOperations(value string, ops []string) (interface{}, error) {
	var out interface{} = value
	for _, op := range ops {
		s, isStr := out.(string)
		switch op {
		case models.OpTrim:
			if isStr {
				out = strings.TrimSpace(s)
			}
		case models.OpUppercase:
			if isStr {
				out = strings.ToUpper(s)
			}
		case models.OpLowercase:
			if isStr {
				out = strings.ToLower(s)
			}
		case models.OpNormalizeUnicode:
			if isStr {
				out = strings.ToValidUTF8(s, "")
			}
		case models.OpParseNumeric:
			if isStr {
				f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				if err != nil {
					return nil, fmt.Errorf("parse numeric: %w", err)
				}
				out = f
			}
		case models.OpRoundTwoDecimals:
			if f, ok := out.(float64); ok {
				out = math.Round(f*100) / 100
			}
		case models.OpParseBoolean:
			if isStr {
				b, err := parseBoolean(s)
				if err != nil {
					return nil, err
				}
				out = b
			}
		case models.OpParseISODate:
			if isStr {
				t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
				if err != nil {
					return nil, fmt.Errorf("parse date: %w", err)
				}
				out = t.Format("2006-01-02")
			}
		case models.OpParseTimestamp:
			if isStr {
				t, err := parseTimestamp(strings.TrimSpace(s))
				if err != nil {
					return nil, err
				}
				out = t.UTC().Format(time.RFC3339)
			}
		}
	}
	return out, nil
}

func parseBoolean(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("parse boolean: unrecognized value %q", s)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp: unrecognized value %q", s)
}

// deduplicate keeps one survivor per key, merging later duplicates into it
// field by field per the survivorship rules.
func deduplicate(rows []map[string]interface{}, cfg *models.DeduplicationConfig) ([]map[string]interface{}, int64) {
	survivors := make([]map[string]interface{}, 0, len(rows))
	index := make(map[string]int, len(rows))
	var removed int64

	for _, row := range rows {
		key := dedupKey(row, cfg.KeyFields)
		pos, seen := index[key]
		if !seen {
			index[key] = len(survivors)
			survivors = append(survivors, row)
			continue
		}
		removed++
		merge(survivors[pos], row, cfg.SurvivorshipRules)
	}
	return survivors, removed
}

func dedupKey(row map[string]interface{}, keyFields []string) string {
	parts := make([]string, len(keyFields))
	for i, k := range keyFields {
		parts[i] = fmt.Sprintf("%v", row[k])
	}
	return strings.Join(parts, "\x1f")
}

func merge(survivor, duplicate map[string]interface{}, rules map[string]string) {
	for field, rule := range rules {
		dup, ok := duplicate[field]
		if !ok {
			continue
		}
		switch rule {
		case models.SurvivorKeepLatest:
			survivor[field] = dup
		case models.SurvivorKeepMax:
			if greater(dup, survivor[field]) {
				survivor[field] = dup
			}
		}
	}
}

func greater(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af > bf
	}
	return fmt.Sprintf("%v", a) > fmt.Sprintf("%v", b)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
