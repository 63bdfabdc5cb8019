package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openvitality/careline/internal/balancer"
	"github.com/openvitality/careline/internal/metrics"
)

// RemoteConfig configures the zero-shot HTTP classifier.
type RemoteConfig struct {
	// Endpoint of the zero-shot classification model.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// APIKeys are rotated through the circuit breaker.
	APIKeys []string `yaml:"api_keys" json:"api_keys"`

	// Threshold is the minimum upstream score to accept; below it the
	// keyword fallback answers instead.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// Timeout bounds one classification call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// RequestsPerSecond throttles upstream calls; 0 disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// DefaultRemoteConfig returns sensible defaults.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Threshold:         0.7,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 10,
	}
}

// RemoteClassifier calls a zero-shot classification endpoint and falls
// back to the keyword classifier on any upstream trouble. The fallback
// also answers when the upstream's best score is below the threshold.
type RemoteClassifier struct {
	config   RemoteConfig
	client   *http.Client
	keys     *balancer.Balancer
	limiter  *rate.Limiter
	fallback *KeywordClassifier
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewRemoteClassifier creates the classifier. fallback must not be nil.
func NewRemoteClassifier(config RemoteConfig, fallback *KeywordClassifier, logger *zap.Logger) *RemoteClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRemoteConfig().Timeout
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultRemoteConfig().Threshold
	}
	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return &RemoteClassifier{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		keys:     balancer.New(config.APIKeys, 5, 5*time.Minute, logger),
		limiter:  limiter,
		fallback: fallback,
		logger:   logger.With(zap.String("component", "remote_classifier")),
	}
}

// WithMetrics attaches a metrics collector.
func (c *RemoteClassifier) WithMetrics(m *metrics.Collector) *RemoteClassifier {
	c.metrics = m
	return c
}

// WithHTTPClient replaces the HTTP client, for tests.
func (c *RemoteClassifier) WithHTTPClient(client *http.Client) *RemoteClassifier {
	c.client = client
	return c
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Method identifies this classifier in metrics.
func (c *RemoteClassifier) Method() string { return "remote" }

// Classify tries the remote endpoint first and degrades to the keyword
// classifier. Classification itself never fails; upstream errors are
// logged and absorbed by the fallback.
func (c *RemoteClassifier) Classify(ctx context.Context, text string) (Result, error) {
	result, err := c.classifyRemote(ctx, text)
	if err != nil {
		c.logger.Warn("remote classification failed, using keyword fallback", zap.Error(err))
		return c.classifyFallback(ctx, text)
	}
	if result.Confidence < c.config.Threshold {
		c.logger.Debug("remote score below threshold, using keyword fallback",
			zap.String("intent", result.Intent),
			zap.Float64("confidence", result.Confidence),
		)
		return c.classifyFallback(ctx, text)
	}
	return result, nil
}

func (c *RemoteClassifier) classifyFallback(ctx context.Context, text string) (Result, error) {
	start := time.Now()
	result, err := c.fallback.Classify(ctx, text)
	if c.metrics != nil {
		c.metrics.RecordClassification("keyword", time.Since(start))
	}
	return result, err
}

func (c *RemoteClassifier) classifyRemote(ctx context.Context, text string) (Result, error) {
	if c.config.Endpoint == "" {
		return Result{}, fmt.Errorf("no remote endpoint configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, err
		}
	}
	key, err := c.keys.Acquire()
	if err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: Labels},
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.keys.ReportFailure(key)
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.keys.ReportFailure(key)
		return Result{}, fmt.Errorf("zero-shot endpoint returned status %d", resp.StatusCode)
	}

	var parsed zeroShotResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.keys.ReportFailure(key)
		return Result{}, fmt.Errorf("decode zero-shot response: %w", err)
	}
	if len(parsed.Labels) == 0 || len(parsed.Labels) != len(parsed.Scores) {
		c.keys.ReportFailure(key)
		return Result{}, fmt.Errorf("malformed zero-shot response")
	}

	c.keys.ReportSuccess(key)
	if c.metrics != nil {
		c.metrics.RecordClassification("remote", time.Since(start))
	}
	return Result{Intent: parsed.Labels[0], Confidence: parsed.Scores[0]}, nil
}
