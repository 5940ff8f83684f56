package estimate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

// ErrNoEstimator is returned when no estimator URL is configured.
var ErrNoEstimator = errors.New("no estimator configured")

// Config configures the remote estimator client.
type Config struct {
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`

	// Breaker settings.
	FailureThreshold uint32        `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
	HalfOpenMax      uint32        `yaml:"half_open_max"`
}

// DefaultConfig returns the default estimator configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		MaxAttempts:      5,
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMax:      3,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("estimator max_attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("estimator timeout must be positive")
	}
	return nil
}

// Request is the body posted to the estimator service.
type Request struct {
	Function string   `json:"function"`
	Params   []string `json:"params"`
	Body     string   `json:"body"`
}

// Response is the estimator service reply.
type Response struct {
	Expression string `json:"expression"`
}

// Result is the outcome of one Estimate call.
type Result struct {
	Expression string
	Attempts   int
	FellBack   bool
	Err        error
}

// Remote asks an external estimator service for cost expressions.
type Remote struct {
	config *Config
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewRemote creates a remote estimator client.
func NewRemote(cfg *Config) (*Remote, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, ErrNoEstimator
	}

	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "estimator",
		MaxRequests: cfg.HalfOpenMax,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Remote{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     cb,
	}, nil
}

// Estimate requests a cost expression for info. Each reply must compile; up to
// MaxAttempts requests are made. When none succeeds the statement count is
// returned as the expression and FellBack is set.
func (r *Remote) Estimate(ctx context.Context, info *models.FunctionInfo, body string) Result {
	req := Request{Function: info.Signature, Params: info.Params, Body: body}

	var lastErr error
	attempts := 0
	for attempts < r.config.MaxAttempts {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts++

		out, err := r.cb.Execute(func() (interface{}, error) {
			return r.post(ctx, req)
		})
		if err != nil {
			lastErr = err
			if errors.Is(err, gobreaker.ErrOpenState) {
				break
			}
			continue
		}

		expression := strings.TrimSpace(out.(string))
		if _, err := Compile(expression); err != nil {
			lastErr = err
			continue
		}
		return Result{Expression: expression, Attempts: attempts}
	}

	log.Printf("Estimator gave up on %s after %d attempts: %v", info.Signature, attempts, lastErr)
	return Result{
		Expression: strconv.Itoa(info.StatementCount),
		Attempts:   attempts,
		FellBack:   true,
		Err:        lastErr,
	}
}

func (r *Remote) post(ctx context.Context, req Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.URL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("estimator returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(out.Expression) == "" {
		return "", errors.New("empty expression")
	}
	return out.Expression, nil
}
