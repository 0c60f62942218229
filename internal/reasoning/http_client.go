package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
)

// HTTPClient talks to a text-completion service over HTTP. The service
// receives {"prompt": ...} and answers {"completion": ...}.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrorTypeReasoning,
			apperrors.CodeReasoningUnavailable, "reasoning service request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewReasoningError(apperrors.CodeReasoningUnavailable,
			fmt.Sprintf("reasoning service returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrorTypeReasoning,
			apperrors.CodeReasoningUnavailable, "reasoning response unreadable")
	}

	var reply struct {
		Completion string `json:"completion"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrorTypeReasoning,
			apperrors.CodeReasoningUnavailable, "reasoning response is not JSON")
	}
	return reply.Completion, nil
}
