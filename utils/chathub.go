package utils

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const chatChannelPrefix = "planex:chat:"

// ChatHub fans new team chat messages out to open stream connections. With
// Redis available every instance publishes to a shared channel and delivers
// what it receives; otherwise delivery stays in-process.
type ChatHub struct {
	mu   sync.RWMutex
	subs map[uint]map[chan []byte]struct{}
}

// Hub is the process-wide chat hub.
var Hub = NewChatHub()

func NewChatHub() *ChatHub {
	return &ChatHub{subs: make(map[uint]map[chan []byte]struct{})}
}

// Subscribe registers a listener for teamID. The returned func must be called
// to release it.
func (h *ChatHub) Subscribe(teamID uint) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	if h.subs[teamID] == nil {
		h.subs[teamID] = make(map[chan []byte]struct{})
	}
	h.subs[teamID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[teamID], ch)
			if len(h.subs[teamID]) == 0 {
				delete(h.subs, teamID)
			}
			h.mu.Unlock()
		})
	}
}

// Subscribers reports how many listeners are open for a team.
func (h *ChatHub) Subscribers(teamID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[teamID])
}

// Publish delivers payload to every listener of teamID, across instances when
// Redis is connected.
func (h *ChatHub) Publish(ctx context.Context, teamID uint, payload []byte) {
	if RedisClient != nil {
		err := RedisClient.Publish(ctx, chatChannelPrefix+strconv.FormatUint(uint64(teamID), 10), payload).Err()
		if err == nil {
			return
		}
		zap.L().Warn("chat publish failed, delivering locally", zap.Uint("team_id", teamID), zap.Error(err))
	}
	h.dispatch(teamID, payload)
}

// dispatch never blocks: a listener whose buffer is full misses the message
// and picks it up on its next poll.
func (h *ChatHub) dispatch(teamID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[teamID] {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Run relays Redis chat messages to local listeners until ctx is cancelled.
// It returns immediately when Redis is not configured.
func (h *ChatHub) Run(ctx context.Context) {
	if RedisClient == nil {
		return
	}
	ps := RedisClient.PSubscribe(ctx, chatChannelPrefix+"*")
	defer ps.Close()

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			id, err := strconv.ParseUint(strings.TrimPrefix(m.Channel, chatChannelPrefix), 10, 64)
			if err != nil {
				continue
			}
			h.dispatch(uint(id), []byte(m.Payload))
		}
	}
}
