package alertstate

import (
	"context"
	"errors"
	"testing"

	goredis "github.com/go-redis/redis/v8"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

type fakeHash struct {
	fields map[string]string
	err    error
	closed bool
}

func newFakeHash() *fakeHash { return &fakeHash{fields: make(map[string]string)} }

func (f *fakeHash) HGetAll(_ context.Context, _ string) *goredis.StringStringMapCmd {
	if f.err != nil {
		return goredis.NewStringStringMapResult(nil, f.err)
	}
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return goredis.NewStringStringMapResult(out, nil)
}

func (f *fakeHash) HSet(_ context.Context, _ string, values ...interface{}) *goredis.IntCmd {
	if f.err != nil {
		return goredis.NewIntResult(0, f.err)
	}
	for i := 0; i+1 < len(values); i += 2 {
		f.fields[values[i].(string)] = values[i+1].(string)
	}
	return goredis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHash) Close() error {
	f.closed = true
	return nil
}

func TestRedisStore_RecordAndReload(t *testing.T) {
	ctx := context.Background()
	client := newFakeHash()
	s := newRedisStore(client, "", zerolog.Nop())
	assert.NoError(t, s.Load(ctx))
	assert.True(t, s.ShouldFire(btcHour, 0.5))

	assert.NoError(t, s.Record(ctx, btcHour, 0.5, firedAt))
	assert.False(t, s.ShouldFire(btcHour, 0.5))
	assert.Equal(t, client.fields["BTC-USDT_1hour"], `{"threshold":0.5,"firedAt":"2025-03-01T12:00:00Z"}`)

	reloaded := newRedisStore(client, "", zerolog.Nop())
	assert.NoError(t, reloaded.Load(ctx))
	assert.False(t, reloaded.ShouldFire(btcHour, 0.5))
	assert.True(t, reloaded.ShouldFire(btcHour, 1))

	assert.NoError(t, reloaded.Close())
	assert.True(t, client.closed)
}

func TestRedisStore_SkipsMalformedFields(t *testing.T) {
	client := newFakeHash()
	client.fields["BTC-USDT_1hour"] = "garbage"
	client.fields["ETH-USDT_5min"] = `{"threshold":1,"firedAt":"2025-03-01T12:00:00Z"}`

	s := newRedisStore(client, "alerts", zerolog.Nop())
	assert.NoError(t, s.Load(context.Background()))
	assert.Equal(t, len(s.Snapshot()), 1)
	assert.False(t, s.ShouldFire(ethFive, 1))
}

func TestRedisStore_WriteFailureRetriedOnFlush(t *testing.T) {
	ctx := context.Background()
	client := newFakeHash()
	s := newRedisStore(client, "alerts", zerolog.Nop())
	assert.NoError(t, s.Load(ctx))

	client.err = errors.New("connection refused")
	err := s.Record(ctx, btcHour, 0, firedAt)
	var ioErr *StoreIOError
	assert.True(t, errors.As(err, &ioErr))
	assert.False(t, s.ShouldFire(btcHour, 0))

	client.err = nil
	assert.NoError(t, s.Flush(ctx))
	_, ok := client.fields["BTC-USDT_1hour"]
	assert.True(t, ok)
}

func TestRedisStore_LoadFailure(t *testing.T) {
	client := newFakeHash()
	client.err = errors.New("timeout")
	s := newRedisStore(client, "alerts", zerolog.Nop())
	err := s.Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, len(s.Snapshot()), 0)
}
