package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes caps how much of a provider reply is read.
const maxResponseBytes = 1 << 20

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// postJSON sends in as a JSON POST and decodes the reply into out. The reply
// is decoded whatever the status so that API error bodies reach the caller;
// the status is returned for the caller to judge.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

// cleanLabel turns raw model output into a label, failing on blank output.
func cleanLabel(provider, raw string) (string, error) {
	if label := firstLine(raw); label != "" {
		return label, nil
	}
	return "", fmt.Errorf("%s: empty response", provider)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
