package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestKickerNilClientIsNoOp(t *testing.T) {
	k := NewKicker(nil)
	// Must not panic or block.
	k.Kick(context.Background(), KickDispatch)
}

func TestKickerPushesToQueue(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	k := NewKicker(client)
	k.Kick(context.Background(), KickDispatch)
	k.Kick(context.Background(), KickReplies)

	values, err := mr.List(kickQueueKey)
	if err != nil {
		t.Fatalf("read kick queue: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("queue length = %d, want 2", len(values))
	}
}

func TestKickListenerWakesDispatch(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	listener := NewKickListener(client)
	listener.Start()
	defer listener.Stop()

	NewKicker(client).Kick(context.Background(), KickDispatch)

	select {
	case <-listener.Dispatch:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch wake never arrived")
	}

	// The replies channel must stay quiet.
	select {
	case <-listener.Replies:
		t.Error("unexpected replies wake")
	default:
	}
}

func TestKickListenerNilClient(t *testing.T) {
	listener := NewKickListener(nil)
	listener.Start()
	listener.Stop() // must not hang
}
