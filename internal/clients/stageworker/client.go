package stageworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/abdullah0408/server/internal/platform/ctxutil"
	"github.com/abdullah0408/server/internal/platform/httpx"
	"github.com/abdullah0408/server/internal/platform/logger"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	maxErrorBody   = 64 << 10
)

// Client performs one stage of course generation for a job id.
type Client interface {
	Perform(ctx context.Context, op Operation, id uuid.UUID) error
}

type Config struct {
	BaseURL string
	// Zero disables the client-side timeout.
	Timeout time.Duration
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func New(cfg Config, log *logger.Logger) Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &client{
		log:        log.With("client", "StageWorker", "base_url", baseURL),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *client) Perform(ctx context.Context, op Operation, id uuid.UUID) error {
	body, err := json.Marshal(map[string]string{op.IDField: id.String()})
	if err != nil {
		return &Error{Op: op.Name, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+op.Path, bytes.NewReader(body))
	if err != nil {
		return &Error{Op: op.Name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RunID != "" {
		req.Header.Set("X-Request-Id", td.RunID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("Stage worker call failed", "op", op.Name, "id", id, "error", err)
		return &Error{Op: op.Name, Err: err}
	}
	defer resp.Body.Close()

	if httpx.IsSuccessStatus(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.Debug("Stage worker call succeeded", "op", op.Name, "id", id, "duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &Error{Op: op.Name, StatusCode: resp.StatusCode}
	var env Response
	if readErr == nil && len(raw) > 0 && json.Unmarshal(raw, &env) == nil {
		se.Code = strings.TrimSpace(env.Code)
		se.Message = strings.TrimSpace(env.Error)
		if se.Code == "" {
			se.Code = CodeForMessage(se.Message)
		}
		if se.Code == "" && resp.StatusCode >= http.StatusInternalServerError {
			se.Code = CodeInternal
		}
	}
	if se.Message == "" {
		se.Message = strings.TrimSpace(string(raw))
	}
	if se.Message == "" {
		se.Message = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return se
}
