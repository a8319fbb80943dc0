package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err   error
	delay time.Duration
}

func (f *fakePinger) Ping(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

type fakeBus bool

func (f fakeBus) IsConnected() bool { return bool(f) }

func TestDefaultCheckerConfig(t *testing.T) {
	assert.Equal(t, 2*time.Second, DefaultCheckerConfig().Timeout)
}

func TestDatabaseChecker(t *testing.T) {
	cfg := CheckerConfig{Timeout: 50 * time.Millisecond}

	tests := []struct {
		name    string
		db      Pinger
		wantErr string
	}{
		{"nil pool", nil, "database connection is nil"},
		{"healthy", &fakePinger{}, ""},
		{"ping error", &fakePinger{err: errors.New("connection refused")}, "connection refused"},
		{"slow ping times out", &fakePinger{delay: time.Second}, context.DeadlineExceeded.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DatabaseChecker(tt.db, cfg)()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestRedisChecker(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	check := RedisChecker(db, DefaultCheckerConfig())
	assert.NoError(t, check())
	assert.Error(t, check())
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.EqualError(t, RedisChecker(nil, DefaultCheckerConfig())(), "redis client is nil")
}

func TestNATSChecker(t *testing.T) {
	assert.NoError(t, NATSChecker(fakeBus(true))())
	assert.Error(t, NATSChecker(fakeBus(false))())
	assert.Error(t, NATSChecker(nil)())
}
