package stream

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	client := hub.Register("run-1")
	defer hub.Unregister(client)

	hub.Broadcast("run-1", []byte("hello"))

	select {
	case msg := <-client.Send:
		if string(msg) != "hello" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
	if hub.Watchers("run-1") != 1 {
		t.Fatalf("expected one watcher")
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("abc")
	if ch != "runs:abc:snapshots" {
		t.Fatalf("unexpected channel %q", ch)
	}
	if runIDFromChannel(ch) != "abc" {
		t.Fatalf("unexpected run id")
	}
	if runIDFromChannel("bad") != "" {
		t.Fatalf("expected empty run id")
	}
	if runIDFromChannel("tracking:abc:broadcast") != "" {
		t.Fatalf("expected foreign channel to be ignored")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil, nil)
	client := hub.Register("run-2")
	hub.Unregister(client)
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
	if hub.Watchers("run-2") != 0 {
		t.Fatalf("expected no watchers")
	}
}

func TestHubRedisRelay(t *testing.T) {
	s := miniredis.RunT(t)
	publisherClient := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer publisherClient.Close()
	watcherClient := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer watcherClient.Close()

	publisher := NewHub(publisherClient, nil)
	defer publisher.Close()
	watcher := NewHub(watcherClient, nil)
	defer watcher.Close()

	local := publisher.Register("run-redis")
	defer publisher.Unregister(local)
	remote := watcher.Register("run-redis")
	defer watcher.Unregister(remote)

	publisher.Broadcast("run-redis", []byte("ping"))

	for _, c := range []*Client{local, remote} {
		select {
		case msg := <-c.Send:
			if string(msg) != "ping" {
				t.Fatalf("unexpected message %q", msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for relayed broadcast")
		}
	}
}

func TestHubRedisPublishErrorFallsBackToLocal(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	defer client.Close()

	hub := NewHub(client, nil)
	defer hub.Close()
	server.Close()

	watcher := hub.Register("run-bad")
	defer hub.Unregister(watcher)

	hub.Broadcast("run-bad", []byte("ping"))

	select {
	case msg := <-watcher.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected local delivery")
	}
}
