package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordlane/cloudcrm/internal/config"
	"github.com/nordlane/cloudcrm/internal/worker"
)

func TestRedisStream_Send(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStream(client, "cloudcrm:notifications")
	require.NoError(t, s.Send(context.Background(), Message{Kind: KindBalanceCredited, UserID: "u1", Text: "+500.00"}))

	msgs, err := client.XRange(context.Background(), "cloudcrm:notifications", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "balance_credited", msgs[0].Values["kind"])
	assert.Equal(t, "u1", msgs[0].Values["user_id"])
	assert.Equal(t, "+500.00", msgs[0].Values["text"])
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

type recordingNotifier struct {
	mu   sync.Mutex
	got  []Message
	fail bool
}

func (r *recordingNotifier) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
	if r.fail {
		return errors.New("bot offline")
	}
	return nil
}

func TestDispatcher_DeliversAsync(t *testing.T) {
	pool := worker.NewPool(2, 16)
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, pool, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	d.Notify(Message{Kind: KindServiceDeleted, UserID: "u1"})
	d.Notify(Message{Kind: KindServiceSuspended, UserID: "u2"})
	pool.Stop()

	assert.Len(t, rec.got, 2)
}

func TestDispatcher_SwallowsSendErrors(t *testing.T) {
	pool := worker.NewPool(1, 4)
	var logs bytes.Buffer
	d := NewDispatcher(&recordingNotifier{fail: true}, pool, slog.New(slog.NewTextHandler(&logs, nil)))

	assert.NotPanics(t, func() { d.Notify(Message{Kind: KindBalanceCredited, UserID: "u1"}) })
	pool.Stop()
	assert.Contains(t, logs.String(), "notification send failed")
}

func TestDispatcher_StoppedPoolDrops(t *testing.T) {
	pool := worker.NewPool(1, 1)
	pool.Stop()
	var logs bytes.Buffer
	d := NewDispatcher(&recordingNotifier{}, pool, slog.New(slog.NewTextHandler(&logs, nil)))

	d.Notify(Message{Kind: KindBalanceCredited, UserID: "u1"})
	assert.Contains(t, logs.String(), "notification dropped")
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, n.Send(context.Background(), Message{Kind: KindServiceDeleted, UserID: "u9"}))
	assert.Contains(t, buf.String(), "user_id=u9")
}

var _ Notifier = (*RedisStream)(nil)
