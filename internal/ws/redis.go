package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/playgauntlet/backend/internal/match"
)

var rdbClient *redis.Client

// matchEventsChannel carries broadcast notifications across instances
const matchEventsChannel = "match_events"

func SetRedisClient(r *redis.Client) {
	rdbClient = r
}

// fanoutMessage is the cross-instance broadcast envelope
type fanoutMessage struct {
	MatchID string                 `json:"match_id"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// publishMatchEvent pushes a broadcast notification through Redis so every
// instance subscribed to the channel delivers it to its local room. Returns
// false when pub/sub is unavailable so the caller can fall back to a local
// broadcast.
func publishMatchEvent(matchID string, n match.Notification) bool {
	if rdbClient == nil {
		return false
	}
	b, err := json.Marshal(fanoutMessage{MatchID: matchID, Type: n.Type, Payload: n.Payload})
	if err != nil {
		log.Printf("[WS] marshal fanout for match %s failed: %v", matchID, err)
		return false
	}
	if err := rdbClient.Publish(context.Background(), matchEventsChannel, b).Err(); err != nil {
		log.Printf("[WS] publish fanout for match %s failed: %v", matchID, err)
		return false
	}
	return true
}

// StartEventSubscriber subscribes to the match events channel and broadcasts
// incoming notifications to the local match rooms
func StartEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, matchEventsChannel)
	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] match_events subscriber started")
		for msg := range ch {
			var fm fanoutMessage
			if err := json.Unmarshal([]byte(msg.Payload), &fm); err != nil {
				log.Printf("[WS] invalid fanout payload: %v", err)
				continue
			}
			if fm.MatchID == "" {
				continue
			}
			MatchHub.BroadcastToMatch(fm.MatchID, map[string]interface{}{
				"type":    fm.Type,
				"payload": fm.Payload,
			})
		}
	}()
}
