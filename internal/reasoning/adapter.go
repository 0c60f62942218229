// Package reasoning wraps a free-text suggestion service behind a validating
// adapter. Raw service output is untrusted; the adapter either produces a
// fully validated suggestion or a typed error, so nothing downstream ever
// parses model text ad hoc.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

// TextClient is the raw transport to a generative service. Implementations
// return unstructured text.
type TextClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Adapter validates raw completions into structured mapping suggestions. It
// satisfies the reasoning collaborator contract used by the mapping stage.
type Adapter struct {
	client TextClient
	logger *logrus.Logger
}

func NewAdapter(client TextClient, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Adapter{client: client, logger: logger}
}

// Suggest asks the service for a mapping rationale for the least confident
// field of the contract and validates the reply. An unavailable client or a
// reply that fails validation yields a typed error; callers treat either as
// advisory-only and continue without the suggestion.
func (a *Adapter) Suggest(ctx context.Context, contract *models.SchemaContract, targetDataset string) (*models.MappingSuggestion, error) {
	if a.client == nil {
		return nil, apperrors.WrapError(apperrors.ErrReasoningUnavailable,
			apperrors.ErrorTypeReasoning, apperrors.CodeReasoningUnavailable, "no reasoning client configured")
	}

	raw, err := a.client.Complete(ctx, buildPrompt(contract, targetDataset))
	if err != nil {
		return nil, apperrors.WrapError(err,
			apperrors.ErrorTypeReasoning, apperrors.CodeReasoningUnavailable, "reasoning request failed")
	}

	suggestion, err := parseSuggestion(raw)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"target_dataset": targetDataset,
			"reply_length":   len(raw),
		}).Warn("Discarding malformed reasoning reply")
		return nil, err
	}
	return suggestion, nil
}

func buildPrompt(contract *models.SchemaContract, targetDataset string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest a canonical mapping for dataset %q. Respond with a single JSON object ", targetDataset)
	b.WriteString(`with keys "source_field", "canonical_field", "rationale", "confidence".` + "\nFields:\n")
	for _, f := range contract.Fields {
		fmt.Fprintf(&b, "- %s (%s, confidence %.2f)\n", f.Name, f.InferredType, f.Confidence)
	}
	return b.String()
}

// parseSuggestion extracts the first JSON object from the reply and validates
// its fields. Replies often wrap the object in prose or code fences.
func parseSuggestion(raw string) (*models.MappingSuggestion, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, malformed("no JSON object in reply")
	}

	var s models.MappingSuggestion
	if err := json.Unmarshal([]byte(raw[start:end+1]), &s); err != nil {
		return nil, malformed(err.Error())
	}
	if s.SourceField == "" || s.CanonicalField == "" {
		return nil, malformed("missing source or canonical field")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return nil, malformed(fmt.Sprintf("confidence %v out of range", s.Confidence))
	}
	return &s, nil
}

func malformed(details string) error {
	return apperrors.WrapError(apperrors.ErrMalformedSuggestion,
		apperrors.ErrorTypeReasoning, apperrors.CodeMalformedSuggestion, "reasoning reply failed validation").
		WithDetails(details)
}
