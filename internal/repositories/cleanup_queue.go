package repositories

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrphanCleanupTask is one pruning job for the background worker: references
// inside a recipient's notification collection that no longer resolve.
type OrphanCleanupTask struct {
	RecipientID uint      `json:"recipient_id"`
	TweetIDs    []string  `json:"tweet_ids,omitempty"`
	ActorIDs    []uint    `json:"actor_ids,omitempty"`
	QueuedAt    time.Time `json:"queued_at"`
}

// CleanupQueueKey is the Redis list the out-of-process worker consumes.
const CleanupQueueKey = "notifications:orphan-cleanup"

// RedisCleanupQueue queues orphan-reference cleanup onto a Redis list.
// Fire-and-forget: enqueue failures are logged, never propagated, because a
// missed cleanup only means the orphan is re-detected on the next read.
type RedisCleanupQueue struct {
	client *redis.Client
}

func NewRedisCleanupQueue(client *redis.Client) *RedisCleanupQueue {
	return &RedisCleanupQueue{client: client}
}

func (q *RedisCleanupQueue) QueueOrphanCleanup(ctx context.Context, recipientID uint, missingTweetIDs []string, missingActorIDs []uint) {
	if len(missingTweetIDs) == 0 && len(missingActorIDs) == 0 {
		return
	}
	task := OrphanCleanupTask{
		RecipientID: recipientID,
		TweetIDs:    missingTweetIDs,
		ActorIDs:    missingActorIDs,
		QueuedAt:    time.Now().UTC(),
	}
	raw, err := json.Marshal(task)
	if err != nil {
		log.Printf("marshal orphan cleanup task for user %d: %v", recipientID, err)
		return
	}
	if err := q.client.LPush(ctx, CleanupQueueKey, raw).Err(); err != nil {
		log.Printf("queue orphan cleanup for user %d: %v", recipientID, err)
	}
}
