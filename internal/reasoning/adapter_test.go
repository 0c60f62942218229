package reasoning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

type stubClient struct {
	reply string
	err   error
}

func (s *stubClient) Complete(_ context.Context, _ string) (string, error) {
	return s.reply, s.err
}

func testContract() *models.SchemaContract {
	return &models.SchemaContract{Fields: []*models.FieldDescriptor{
		{Name: "cust_no", InferredType: models.TypeInteger, Confidence: 0.6},
	}}
}

func TestSuggestValidReply(t *testing.T) {
	reply := "Here is the mapping:\n```json\n" +
		`{"source_field": "cust_no", "canonical_field": "customer_id", "rationale": "numeric customer key", "confidence": 0.82}` +
		"\n```"
	a := NewAdapter(&stubClient{reply: reply}, nil)

	s, err := a.Suggest(context.Background(), testContract(), "analytics")
	require.NoError(t, err)
	assert.Equal(t, "cust_no", s.SourceField)
	assert.Equal(t, "customer_id", s.CanonicalField)
	assert.Equal(t, 0.82, s.Confidence)
}

func TestSuggestMalformedReplies(t *testing.T) {
	for name, reply := range map[string]string{
		"no json":        "I think cust_no maps to customer_id.",
		"broken json":    `{"source_field": "cust_no",`,
		"missing fields": `{"rationale": "something", "confidence": 0.5}`,
		"bad confidence": `{"source_field": "a", "canonical_field": "b", "confidence": 7.5}`,
	} {
		a := NewAdapter(&stubClient{reply: reply}, nil)
		_, err := a.Suggest(context.Background(), testContract(), "analytics")
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, apperrors.ErrMalformedSuggestion), name)
	}
}

func TestSuggestClientFailure(t *testing.T) {
	a := NewAdapter(&stubClient{err: errors.New("connection refused")}, nil)
	_, err := a.Suggest(context.Background(), testContract(), "analytics")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrMalformedSuggestion))
}

func TestSuggestNoClient(t *testing.T) {
	a := NewAdapter(nil, nil)
	_, err := a.Suggest(context.Background(), testContract(), "analytics")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrReasoningUnavailable))
}
