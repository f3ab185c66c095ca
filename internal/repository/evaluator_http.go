package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bgscan/internal/domain/analysis"
	"bgscan/internal/errors"
)

type initRequest struct {
	Model string `json:"model"`
}

type initResponse struct {
	Ok bool `json:"ok"`
}

type evaluateRequest struct {
	ID       string `json:"id"`
	Position string `json:"position"`
}

// HttpEvaluator calls an evaluator exposed over HTTP: POST {url}/init and
// POST {url}/evaluate, both JSON.
type HttpEvaluator struct {
	log    *zap.SugaredLogger
	url    string
	client *http.Client
}

func NewHttpEvaluator(log *zap.SugaredLogger, url string, client *http.Client) *HttpEvaluator {
	if client == nil {
		client = &http.Client{}
	}
	return &HttpEvaluator{
		log:    log,
		url:    strings.TrimRight(url, "/"),
		client: client,
	}
}

func (h *HttpEvaluator) Init(ctx context.Context, modelRef string) bool {
	var resp initResponse
	if err := h.post(ctx, "/init", initRequest{Model: modelRef}, &resp); err != nil {
		h.log.Warnw("http evaluator init failed", "url", h.url, "error", err)
		return false
	}
	return resp.Ok
}

func (h *HttpEvaluator) Evaluate(ctx context.Context, encoded string) (analysis.PositionAnalysis, error) {
	var result analysis.PositionAnalysis
	req := evaluateRequest{ID: uuid.New().String(), Position: encoded}
	if err := h.post(ctx, "/evaluate", req, &result); err != nil {
		return analysis.PositionAnalysis{}, err
	}
	return result, nil
}

func (h *HttpEvaluator) post(ctx context.Context, path string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %v", errors.ErrEvaluatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code: %d", errors.ErrEvaluatorUnavailable, resp.StatusCode)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
