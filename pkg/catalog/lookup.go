package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// LookupChecker asks an external service whether a message satisfies a rule,
// for predicates the process cannot decide locally (dictionary membership,
// profanity services). The engine enforces no timeout of its own; deadline
// policy belongs to the provided http.Client.
type LookupChecker struct {
	url    string
	client *http.Client
}

// NewLookupChecker builds a checker posting to url. A nil client falls back
// to http.DefaultClient.
func NewLookupChecker(url string, client *http.Client) *LookupChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &LookupChecker{url: url, client: client}
}

type lookupRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
	Author  string `json:"author,omitempty"`
}

type lookupResponse struct {
	OK bool `json:"ok"`
}

// Check implements Checker.
func (l *LookupChecker) Check(ctx context.Context, msg Message) (bool, error) {
	body, err := json.Marshal(lookupRequest{Text: msg.Text, Channel: msg.Channel, Author: msg.Author})
	if err != nil {
		return false, fmt.Errorf("lookup rule: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("lookup rule: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("lookup rule: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("lookup rule: service returned %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("lookup rule: decode: %w", err)
	}
	return out.OK, nil
}
