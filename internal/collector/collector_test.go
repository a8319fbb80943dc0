package collector

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/richxcame/cyber-patrol/pkg/eventbus"
	"github.com/richxcame/cyber-patrol/pkg/models"
	"github.com/richxcame/cyber-patrol/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscription struct {
	unsubscribed bool
}

func (s *fakeSubscription) Unsubscribe() error {
	s.unsubscribed = true
	return nil
}

type published struct {
	subject   string
	eventType string
	data      interface{}
}

type fakeBus struct {
	mu        sync.Mutex
	handler   eventbus.Handler
	sub       *fakeSubscription
	published []published
	subErr    error
	pubErr    error
}

func (b *fakeBus) Publish(_ context.Context, subject, eventType string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{subject, eventType, data})
	return b.pubErr
}

func (b *fakeBus) Subscribe(_ context.Context, _, _ string, handler eventbus.Handler) (eventbus.Subscription, error) {
	if b.subErr != nil {
		return nil, b.subErr
	}
	b.handler = handler
	b.sub = &fakeSubscription{}
	return b.sub, nil
}

func collectedEvent(t *testing.T, payload CollectedPayload) *eventbus.Event {
	t.Helper()
	event, err := eventbus.NewEvent(EventItemsCollected, "scraper", payload)
	require.NoError(t, err)
	return event
}

func TestNATSCollector_StartDeliverStop(t *testing.T) {
	bus := &fakeBus{}
	c := NewNATSCollector("facebook", bus, 5*time.Minute, 2)

	handle, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	require.Len(t, bus.published, 1)
	assert.Equal(t, "patrol.commands.facebook", bus.published[0].subject)
	assert.Equal(t, EventCollectStart, bus.published[0].eventType)
	assert.Equal(t, 300, bus.published[0].data.(CommandPayload).ScrapeInterval)

	payload := CollectedPayload{
		Items: []RawItem{{SourceID: "p1", Content: "a"}, {SourceID: "p2", Content: "b"}, {SourceID: "p3", Content: "c"}},
		Stats: models.Metadata{"pages": models.Int(3)},
	}
	event := collectedEvent(t, payload)
	done := make(chan error, 1)
	go func() { done <- bus.handler(context.Background(), event) }()

	first := <-c.Batches()
	second := <-c.Batches()
	require.NoError(t, <-done)

	assert.Len(t, first.Items, 2)
	assert.Len(t, second.Items, 1)
	assert.Equal(t, "facebook", first.Items[0].Platform)
	assert.Equal(t, ItemKindPost, first.Items[0].Kind)
	assert.False(t, first.Items[0].CollectedAt.IsZero())
	assert.NotNil(t, first.Stats)
	assert.Nil(t, second.Stats)

	batches := c.Batches()
	require.NoError(t, c.Stop(context.Background()))
	assert.True(t, bus.sub.unsubscribed)
	assert.Equal(t, EventCollectStop, bus.published[len(bus.published)-1].eventType)
	_, open := <-batches
	assert.False(t, open)
}

func TestNATSCollector_StopUnblocksPendingDelivery(t *testing.T) {
	bus := &fakeBus{}
	c := NewNATSCollector("telegram", bus, time.Minute, 1)
	_, err := c.Start(context.Background())
	require.NoError(t, err)

	payload := CollectedPayload{Items: []RawItem{{SourceID: "1"}, {SourceID: "2"}, {SourceID: "3"}, {SourceID: "4"}, {SourceID: "5"}, {SourceID: "6"}}}
	event := collectedEvent(t, payload)
	done := make(chan error, 1)
	go func() { done <- bus.handler(context.Background(), event) }()

	// nobody reads: the buffer fills and the handler blocks until Stop
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler still blocked after Stop")
	}
}

func TestNATSCollector_IgnoresOtherEventsAndMalformedData(t *testing.T) {
	bus := &fakeBus{}
	c := NewNATSCollector("instagram", bus, time.Minute, 10)
	_, err := c.Start(context.Background())
	require.NoError(t, err)
	defer c.Stop(context.Background())

	other, err := eventbus.NewEvent("heartbeat", "scraper", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.NoError(t, bus.handler(context.Background(), other))

	bad := &eventbus.Event{Type: EventItemsCollected, Data: json.RawMessage(`"nope"`)}
	assert.NoError(t, bus.handler(context.Background(), bad))

	select {
	case <-c.Batches():
		t.Fatal("unexpected batch")
	default:
	}
}

func TestNATSCollector_StartErrors(t *testing.T) {
	bus := &fakeBus{subErr: errors.New("nats down")}
	_, err := NewNATSCollector("x", bus, time.Minute, 1).Start(context.Background())
	assert.Error(t, err)

	ok := NewNATSCollector("y", &fakeBus{}, time.Minute, 1)
	_, err = ok.Start(context.Background())
	require.NoError(t, err)
	_, err = ok.Start(context.Background())
	assert.Error(t, err)
	require.NoError(t, ok.Stop(context.Background()))
	assert.NoError(t, ok.Stop(context.Background()))
}

func TestNATSCollector_StartFailsFastWhileBusIsDown(t *testing.T) {
	bus := &fakeBus{pubErr: errors.New("nats: connection closed")}
	c := NewNATSCollector("instagram", bus, time.Minute, 1)

	for i := 0; i < 3; i++ {
		_, err := c.Start(context.Background())
		require.Error(t, err)
		assert.True(t, bus.sub.unsubscribed)
	}
	require.Len(t, bus.published, 3)

	_, err := c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	dependency, degraded := resilience.IsDegraded(err)
	assert.True(t, degraded)
	assert.Equal(t, "collector:instagram", dependency)
	assert.Len(t, bus.published, 3, "no command is sent while the breaker is open")
	assert.Nil(t, c.Batches())
}

func TestDomainWatchCollector_EmitsAndStops(t *testing.T) {
	c := NewDomainWatchCollector("domains", StaticDomains([]string{"a.tk", "b.com", "c.xyz"}), time.Hour, 2)

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	first := <-c.Batches()
	second := <-c.Batches()
	assert.Len(t, first.Items, 2)
	assert.Len(t, second.Items, 1)
	assert.Equal(t, ItemKindDomain, first.Items[0].Kind)
	assert.Equal(t, "a.tk", first.Items[0].SourceID)
	cycles, _ := first.Stats["cycles"].AsNumber()
	assert.Equal(t, 1.0, cycles)

	batches := c.Batches()
	require.NoError(t, c.Stop(context.Background()))
	_, open := <-batches
	assert.False(t, open)
}

func TestDomainWatchCollector_SourceErrorReportsStats(t *testing.T) {
	failing := func(context.Context) ([]string, error) { return nil, errors.New("feed offline") }
	c := NewDomainWatchCollector("domains", failing, time.Hour, 10)

	_, err := c.Start(context.Background())
	require.NoError(t, err)
	defer c.Stop(context.Background())

	batch := <-c.Batches()
	assert.Empty(t, batch.Items)
	msg, _ := batch.Stats["last_error"].AsString()
	assert.Equal(t, "feed offline", msg)
}

func TestRawItemKey(t *testing.T) {
	item := RawItem{Platform: "facebook", SourceID: "123"}
	assert.Equal(t, "facebook:123", item.Key())
}

func TestNATSCollector_StartUsesRunScrapeInterval(t *testing.T) {
	bus := &fakeBus{}
	c := NewNATSCollector("telegram", bus, 5*time.Minute, 10)

	_, err := c.Start(WithScrapeInterval(context.Background(), 45*time.Second))
	require.NoError(t, err)
	defer func() { _ = c.Stop(context.Background()) }()

	require.Len(t, bus.published, 1)
	assert.Equal(t, 45, bus.published[0].data.(CommandPayload).ScrapeInterval)
}

func TestScrapeIntervalFrom(t *testing.T) {
	assert.Equal(t, time.Minute, ScrapeIntervalFrom(context.Background(), time.Minute))
	assert.Equal(t, time.Minute, ScrapeIntervalFrom(WithScrapeInterval(context.Background(), 0), time.Minute))
	assert.Equal(t, 10*time.Second, ScrapeIntervalFrom(WithScrapeInterval(context.Background(), 10*time.Second), time.Minute))
}
