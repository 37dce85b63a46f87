package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "runs:"
	channelSuffix  = ":snapshots"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans live run payloads out to websocket watchers. With redis configured
// every broadcast is also published so watchers connected to other instances
// receive it.
type Hub struct {
	redis   *redis.Client
	logger  *zap.Logger
	origin  string
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	cancel  context.CancelFunc
}

type Client struct {
	RunID string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		redis:   redisClient,
		logger:  logger,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		ready := make(chan struct{})
		go h.subscribeRedis(ctx, ready)
		<-ready
	}
	return h
}

func (h *Hub) Register(runID string) *Client {
	client := &Client{
		RunID: runID,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[runID] == nil {
		h.clients[runID] = map[*Client]struct{}{}
	}
	h.clients[runID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if runClients, ok := h.clients[client.RunID]; ok {
		if _, registered := runClients[client]; !registered {
			return
		}
		delete(runClients, client)
		if len(runClients) == 0 {
			delete(h.clients, client.RunID)
		}
		close(client.Send)
	}
}

// Watchers reports how many local clients follow a run.
func (h *Hub) Watchers(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[runID])
}

// Broadcast delivers payload to local watchers and publishes it for the other
// instances. With redis configured, local delivery happens through the
// subscription so every instance sees the same order.
func (h *Hub) Broadcast(runID string, payload []byte) {
	if h.redis == nil {
		h.deliver(runID, payload)
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(runID), payload).Err(); err != nil {
		h.logger.Warn("redis publish failed, delivering locally",
			zap.String("run_id", runID), zap.Error(err))
		h.deliver(runID, payload)
	}
}

// Close stops the redis relay.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Hub) deliver(runID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[runID] {
		select {
		case client.Send <- payload:
		default:
			h.logger.Debug("watcher lagging, dropping payload", zap.String("run_id", runID))
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, ready chan<- struct{}) {
	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	// wait for the subscription confirmation so early broadcasts are not lost
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Warn("redis subscribe failed", zap.Error(err))
	}
	close(ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			runID := runIDFromChannel(msg.Channel)
			if runID == "" {
				continue
			}
			h.deliver(runID, []byte(msg.Payload))
		}
	}
}

func redisChannel(runID string) string {
	return channelPrefix + runID + channelSuffix
}

func runIDFromChannel(ch string) string {
	// runs:{id}:snapshots
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
