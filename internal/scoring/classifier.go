package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/cyber-patrol/pkg/httpclient"
	"github.com/richxcame/cyber-patrol/pkg/resilience"
	"github.com/sony/gobreaker"
)

// ErrClassifierUnavailable is returned when the external classifier cannot answer.
// The engine absorbs it and scores locally.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Classification is the external classifier's verdict
type Classification struct {
	Confidence float64  `json:"confidence"`
	Labels     []string `json:"labels"`
}

// Classifier is an optional multilingual/multimodal collaborator
type Classifier interface {
	Classify(ctx context.Context, content Content) (*Classification, error)
}

// HTTPClassifier calls a classification service over HTTP behind a circuit breaker
type HTTPClassifier struct {
	client  *httpclient.Client
	breaker *resilience.CircuitBreaker
}

// NewHTTPClassifier creates a classifier client for baseURL
func NewHTTPClassifier(baseURL string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		client: httpclient.NewClient(baseURL, timeout),
		breaker: resilience.NewCircuitBreaker(
			resilience.ClassifierSettings(),
			resilience.Degraded(resilience.DependencyClassifier),
		),
	}
}

// Classify posts content to /classify
func (c *HTTPClassifier) Classify(ctx context.Context, content Content) (*Classification, error) {
	result, err := c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		body, err := c.client.Post(ctx, "/classify", content, nil)
		if err != nil {
			return nil, err
		}
		var out Classification
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode classification: %w", err)
		}
		if out.Confidence < 0 || out.Confidence > 1 {
			return nil, fmt.Errorf("confidence %v out of range", out.Confidence)
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	classification, ok := result.(*Classification)
	if !ok || classification == nil {
		return nil, ErrClassifierUnavailable
	}
	return classification, nil
}

// Healthy is false while the breaker is open
func (c *HTTPClassifier) Healthy() bool {
	return c.breaker.State() != gobreaker.StateOpen
}
