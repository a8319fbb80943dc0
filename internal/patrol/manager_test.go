package patrol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/internal/supervisor"
	"github.com/richxcame/cyber-patrol/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCollector struct {
	mu       sync.Mutex
	startErr error
	interval time.Duration
	hang     chan struct{}
	batches  chan collector.Batch
}

func (c *stubCollector) Start(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return "", c.startErr
	}
	c.interval = collector.ScrapeIntervalFrom(ctx, 0)
	c.batches = make(chan collector.Batch, 4)
	return uuid.New().String(), nil
}

func (c *stubCollector) Stop(ctx context.Context) error {
	c.mu.Lock()
	hang := c.hang
	c.mu.Unlock()
	if hang != nil {
		<-hang
	}
	return nil
}

func (c *stubCollector) Batches() <-chan collector.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

type countingSink struct{}

func (countingSink) ProcessBatch(_ context.Context, b collector.Batch) (collector.BatchOutcome, error) {
	return collector.BatchOutcome{Scraped: len(b.Items), Kept: 1, Discarded: len(b.Items) - 1}, nil
}

func newTestManager(t *testing.T, names ...string) (*Manager, *supervisor.Supervisor, map[string]*stubCollector) {
	t.Helper()
	stubs := make(map[string]*stubCollector, len(names))
	collectors := make(map[string]collector.Collector, len(names))
	for _, n := range names {
		stubs[n] = &stubCollector{}
		collectors[n] = stubs[n]
	}
	sup := supervisor.New(supervisor.Config{StartTimeout: time.Second, StopTimeout: 100 * time.Millisecond}, collectors, countingSink{})
	return NewManager(sup), sup, stubs
}

func TestStartSession_StartsServicesWithConfig(t *testing.T) {
	m, sup, stubs := newTestManager(t, "facebook", "telegram")

	session, err := m.StartSession(context.Background(), &StartSessionRequest{
		Services: []string{"facebook", "telegram", "facebook"},
		Config:   SessionConfig{ScrapeInterval: 120, EnableRealTime: true},
	})

	require.NoError(t, err)
	assert.True(t, session.Active)
	assert.Equal(t, []string{"facebook", "telegram"}, session.Services)
	assert.False(t, session.StartedAt.IsZero())
	for _, name := range []string{"facebook", "telegram"} {
		svc, _ := sup.Status(name)
		assert.Equal(t, supervisor.StatusRunning, svc.Status, name)
		assert.Equal(t, 2*time.Minute, stubs[name].interval, name)
	}
	assert.True(t, m.RealTimeEnabled("facebook"))
}

func TestStartSession_ServiceInUse(t *testing.T) {
	m, _, _ := newTestManager(t, "facebook", "telegram")
	_, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook"}})
	require.NoError(t, err)

	_, err = m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"telegram", "facebook"}})

	assert.ErrorIs(t, err, ErrServiceInUse)
	// the rejected session reserved nothing
	_, err = m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"telegram"}})
	assert.NoError(t, err)
}

func TestStartSession_ConcurrentClaimsOnlyOneWins(t *testing.T) {
	m, _, _ := newTestManager(t, "facebook")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, inUse int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook"}})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrServiceInUse) {
				inUse++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, inUse)
}

func TestStartSession_Validation(t *testing.T) {
	m, _, _ := newTestManager(t, "facebook")

	_, err := m.StartSession(context.Background(), &StartSessionRequest{})
	assert.ErrorIs(t, err, ErrNoServices)

	_, err = m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"myspace"}})
	assert.ErrorIs(t, err, supervisor.ErrUnknownService)

	_, err = m.StartSession(context.Background(), &StartSessionRequest{
		Services: []string{"facebook"},
		Config:   SessionConfig{ScrapeInterval: -1},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Empty(t, m.List())
}

func TestStartSession_RollsBackOnFailure(t *testing.T) {
	m, sup, stubs := newTestManager(t, "a", "b")
	stubs["b"].startErr = errors.New("captcha wall")

	_, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"a", "b"}})

	require.Error(t, err)
	svc, _ := sup.Status("a")
	assert.Equal(t, supervisor.StatusStopped, svc.Status)
	svc, _ = sup.Status("b")
	assert.Equal(t, supervisor.StatusError, svc.Status)
	assert.Empty(t, m.List())
	_, held := m.ActiveSessionFor("a")
	assert.False(t, held)
}

func TestStartSession_AdoptsRunningService(t *testing.T) {
	m, sup, _ := newTestManager(t, "facebook")
	_, err := sup.Start(context.Background(), "facebook")
	require.NoError(t, err)

	session, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook"}})

	require.NoError(t, err)
	owner, ok := m.ActiveSessionFor("facebook")
	require.True(t, ok)
	assert.Equal(t, session.ID, owner.ID)
}

func TestStopSession(t *testing.T) {
	m, sup, _ := newTestManager(t, "facebook", "telegram")
	session, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook", "telegram"}})
	require.NoError(t, err)

	stopped, err := m.StopSession(context.Background(), session.ID)

	require.NoError(t, err)
	assert.False(t, stopped.Active)
	require.NotNil(t, stopped.StoppedAt)
	for _, name := range []string{"facebook", "telegram"} {
		svc, _ := sup.Status(name)
		assert.Equal(t, supervisor.StatusStopped, svc.Status)
	}
	assert.False(t, m.RealTimeEnabled("facebook"))

	_, err = m.StopSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrSessionNotActive)
	_, err = m.StopSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// services are free for a new session
	_, err = m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook"}})
	assert.NoError(t, err)
}

func TestStopSession_ForcedStopStillCloses(t *testing.T) {
	m, sup, stubs := newTestManager(t, "facebook")
	session, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook"}})
	require.NoError(t, err)
	release := make(chan struct{})
	defer close(release)
	stubs["facebook"].mu.Lock()
	stubs["facebook"].hang = release
	stubs["facebook"].mu.Unlock()

	stopped, err := m.StopSession(context.Background(), session.ID)

	require.NoError(t, err)
	assert.False(t, stopped.Active)
	svc, _ := sup.Status("facebook")
	assert.Equal(t, supervisor.StatusStopped, svc.Status)

	view, err := m.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Stats.ForcedStops)
}

func TestGet_AggregatesServiceStats(t *testing.T) {
	m, _, stubs := newTestManager(t, "facebook", "telegram")
	session, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook", "telegram"}})
	require.NoError(t, err)

	items := []collector.RawItem{{Platform: "facebook", SourceID: "1"}, {Platform: "facebook", SourceID: "2"}, {Platform: "facebook", SourceID: "3"}}
	stubs["facebook"].batches <- collector.Batch{Items: items, Stats: models.Metadata{"pages": models.Int(1)}}
	stubs["telegram"].batches <- collector.Batch{Items: items[:1]}

	require.Eventually(t, func() bool {
		view, _ := m.Get(session.ID)
		return view.Stats.BatchesReceived == 2 && view.Stats.ItemsKept == 2
	}, time.Second, 5*time.Millisecond)

	view, err := m.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Stats.ServicesRunning)
	assert.Equal(t, 4, view.Stats.ItemsScraped)
	assert.Equal(t, 2, view.Stats.ItemsDiscarded)
	assert.Len(t, view.ServiceStatus, 2)

	_, err = m.Get(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestShutdown_StopsActiveSessions(t *testing.T) {
	m, sup, _ := newTestManager(t, "facebook")
	_, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook"}})
	require.NoError(t, err)

	m.Shutdown(context.Background())

	svc, _ := sup.Status("facebook")
	assert.Equal(t, supervisor.StatusStopped, svc.Status)
	for _, s := range m.List() {
		assert.False(t, s.Active)
	}
}

func TestGet_NewSessionStartsFromZero(t *testing.T) {
	m, _, stubs := newTestManager(t, "facebook")
	first, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook"}})
	require.NoError(t, err)

	stubs["facebook"].batches <- collector.Batch{Items: []collector.RawItem{
		{Platform: "facebook", SourceID: "1"},
		{Platform: "facebook", SourceID: "2"},
	}}
	require.Eventually(t, func() bool {
		view, _ := m.Get(first.ID)
		return view.Stats.ItemsKept == 1
	}, time.Second, 5*time.Millisecond)

	_, err = m.StopSession(context.Background(), first.ID)
	require.NoError(t, err)

	second, err := m.StartSession(context.Background(), &StartSessionRequest{Services: []string{"facebook"}})
	require.NoError(t, err)

	view, err := m.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionStats{ServicesRunning: 1}, view.Stats)

	stubs["facebook"].batches <- collector.Batch{Items: []collector.RawItem{{Platform: "facebook", SourceID: "3"}}}
	require.Eventually(t, func() bool {
		view, _ := m.Get(second.ID)
		return view.Stats.BatchesReceived == 1
	}, time.Second, 5*time.Millisecond)

	view, err = m.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Stats.ItemsScraped)
	assert.Equal(t, 0, view.Stats.ItemsDiscarded)

	// the closed session keeps its own totals
	old, err := m.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionStats{BatchesReceived: 1, ItemsScraped: 2, ItemsKept: 1, ItemsDiscarded: 1}, old.Stats)
}
