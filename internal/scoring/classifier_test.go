package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClassifier_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify", r.URL.Path)
		var content Content
		require.NoError(t, json.NewDecoder(r.Body).Decode(&content))
		assert.Equal(t, "book now", content.Text)
		w.Write([]byte(`{"confidence":0.9,"labels":["booking_scam"]}`))
	}))
	defer server.Close()

	classifier := NewHTTPClassifier(server.URL, time.Second)
	got, err := classifier.Classify(context.Background(), Content{Text: "book now"})

	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, []string{"booking_scam"}, got.Labels)
	assert.True(t, classifier.Healthy())
}

func TestHTTPClassifier_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewHTTPClassifier(server.URL, time.Second).Classify(context.Background(), Content{Text: "x"})

	assert.True(t, errors.Is(err, ErrClassifierUnavailable))
}

func TestHTTPClassifier_RejectsOutOfRangeConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"confidence":4.2}`))
	}))
	defer server.Close()

	_, err := NewHTTPClassifier(server.URL, time.Second).Classify(context.Background(), Content{Text: "x"})

	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestHTTPClassifier_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	classifier := NewHTTPClassifier(server.URL, time.Second)
	for i := 0; i < 5; i++ {
		_, _ = classifier.Classify(context.Background(), Content{Text: "x"})
	}

	assert.False(t, classifier.Healthy())
	engine, err := NewEngine(Config{Classifier: classifier})
	require.NoError(t, err)
	assert.Equal(t, ClassifierHealthDegraded, engine.ClassifierHealth())
}
