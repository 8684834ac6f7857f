// Package e2e drives the public HTTP API of a running givebridge server.
//
// The suite is black-box: it needs a server reachable at E2E_BASE_URL and
// pre-issued bearer tokens for one donor and one recipient persona
// (E2E_DONOR_TOKEN, E2E_RECIPIENT_TOKEN).
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// TestContext holds the state shared between steps of one scenario.
type TestContext struct {
	baseURL string
	client  *http.Client
	tokens  map[string]string
	persona string

	lastStatus int
	lastBody   []byte

	donationID string
	matchID    string
}

func NewTestContext() *TestContext {
	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		tokens: map[string]string{
			"donor":     os.Getenv("E2E_DONOR_TOKEN"),
			"recipient": os.Getenv("E2E_RECIPIENT_TOKEN"),
		},
		persona: "donor",
	}
}

// Reset clears per-scenario state while keeping the configured personas.
func (tc *TestContext) Reset() {
	tc.persona = "donor"
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.donationID = ""
	tc.matchID = ""
}

// SetPersona switches which persona's token subsequent requests use.
func (tc *TestContext) SetPersona(persona string) error {
	if _, ok := tc.tokens[persona]; !ok {
		return fmt.Errorf("unknown persona %q", persona)
	}
	tc.persona = persona
	return nil
}

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	return tc.do(http.MethodPost, path, reader)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := tc.tokens[tc.persona]; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// GetResponseField reads a top-level field from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("last response is not a JSON object: %w", err)
	}
	value, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return value, nil
}

func (tc *TestContext) GetDonationID() string     { return tc.donationID }
func (tc *TestContext) SetDonationID(id string)   { tc.donationID = id }
func (tc *TestContext) GetMatchID() string        { return tc.matchID }
func (tc *TestContext) SetMatchID(id string)      { tc.matchID = id }
