package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"tripvoucher/internal"
	"tripvoucher/internal/config"
	"tripvoucher/internal/logging"
)

const remoteAttempts = 5

// Remote asks a classification service over HTTP:
//
//	POST {DECISION_URL}/classify {"excursion": "..."}
//	-> {"success": true, "data": {"tag": "safari"}}
type Remote struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *RateLimiter
	log        *slog.Logger
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type classifyPayload struct {
	Tag string `json:"tag"`
}

func NewRemote(cfg config.Config, log *slog.Logger) *Remote {
	return &Remote{
		baseURL:    strings.TrimRight(cfg.DecisionURL, "/"),
		token:      cfg.DecisionToken,
		httpClient: &http.Client{Timeout: time.Duration(cfg.DecisionTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.DecisionRateLimitRPS),
		log:        logging.OrDiscard(log),
	}
}

func (r *Remote) Decide(ctx context.Context, excursion string) (internal.Category, error) {
	body, err := json.Marshal(map[string]string{"excursion": excursion})
	if err != nil {
		return "", err
	}
	data, err := r.postJSON(ctx, "classify", body)
	if err != nil {
		return "", err
	}

	var payload classifyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decision service payload: %w", err)
	}
	category, err := internal.ParseCategory(payload.Tag)
	if err != nil {
		return "", fmt.Errorf("decision service: %w", err)
	}
	r.log.Debug("remote decision", slog.String("excursion", excursion), slog.String("category", string(category)))
	return category, nil
}

func (r *Remote) postJSON(ctx context.Context, endpoint string, body []byte) (json.RawMessage, error) {
	if r.baseURL == "" {
		return nil, errors.New("missing DECISION_URL")
	}
	u := r.baseURL + "/" + endpoint

	var lastErr error
	for attempt := 1; attempt <= remoteAttempts; attempt++ {
		if err := r.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if r.token != "" {
			req.Header.Set("Authorization", "Bearer "+r.token)
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < remoteAttempts {
				lastErr = fmt.Errorf("decision service status %d", resp.StatusCode)
				r.log.Warn("decision service retry", slog.Int("status", resp.StatusCode), slog.Int("attempt", attempt))
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				if err := sleepCtx(ctx, backoff); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("decision service error: status=%d body=%s", resp.StatusCode, string(respBody))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("decision service unsuccessful: %s %s", apiResp.Message, string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("decision request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
