package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	domcart "example.com/shoecart/internal/domain/cart"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestFeed_DrainPerSession(t *testing.T) {
	feed := NewFeed(0)
	feed.now = func() time.Time { return fixedNow }

	feed.Error(domcart.WithSession(context.Background(), "a"), "first")
	feed.Error(domcart.WithSession(context.Background(), "b"), "other")
	feed.Error(domcart.WithSession(context.Background(), "a"), "second")

	got := feed.Drain("a")
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Message)
	require.Equal(t, "second", got[1].Message)
	require.Equal(t, LevelError, got[0].Level)
	require.Equal(t, fixedNow, got[0].At)

	require.Empty(t, feed.Drain("a"), "drain forgets delivered notifications")
	require.Len(t, feed.Drain("b"), 1)
}

func TestFeed_KeepsNewestWhenFull(t *testing.T) {
	feed := NewFeed(2)
	ctx := domcart.WithSession(context.Background(), "a")

	feed.Error(ctx, "1")
	feed.Error(ctx, "2")
	feed.Error(ctx, "3")

	got := feed.Drain("a")
	require.Len(t, got, 2)
	require.Equal(t, "2", got[0].Message)
	require.Equal(t, "3", got[1].Message)
}

func TestLogger_WritesWarnLine(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogger(zerolog.New(&buf))

	n.Error(domcart.WithSession(context.Background(), "s1"), "Quantidade solicitada fora de estoque")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "s1", line["session"])
	require.Equal(t, "Quantidade solicitada fora de estoque", line["message"])
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafka_PublishesJSONEvent(t *testing.T) {
	w := &fakeWriter{}
	k := NewKafka(w, zerolog.Nop())
	k.now = func() time.Time { return fixedNow }

	k.Error(domcart.WithSession(context.Background(), "s1"), "Erro na adição do produto")

	require.Len(t, w.msgs, 1)
	require.Equal(t, "s1", string(w.msgs[0].Key))
	var n Notification
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &n))
	require.Equal(t, Notification{Session: "s1", Level: LevelError, Message: "Erro na adição do produto", At: fixedNow}, n)
}

func TestKafka_WriteFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	k := NewKafka(&fakeWriter{err: errors.New("broker down")}, zerolog.New(&buf))

	require.NotPanics(t, func() {
		k.Error(context.Background(), "msg")
	})
	require.Contains(t, buf.String(), "broker down")
}

func TestMulti_FansOut(t *testing.T) {
	a := NewFeed(0)
	b := NewFeed(0)
	ctx := domcart.WithSession(context.Background(), "s")

	Multi{a, nil, b}.Error(ctx, "hello")

	require.Len(t, a.Drain("s"), 1)
	require.Len(t, b.Drain("s"), 1)
}
