package service

import (
	"context"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/repository"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/zaplogger"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// RedisChangesChannel is the Redis channel change records are relayed to
var RedisChangesChannel = "CH:API:CIRCUIT:CHANGES"

// PublishService relays circuit-change NOTIFY payloads from Postgres to a
// Redis channel so subscribers get change records without polling the table.
type PublishService struct {
	redisClient *redis.Client
	pgConnStr   string
}

// NewPublishService creates a new publish service
func NewPublishService(redisClient *redis.Client, pgConnStr string) *PublishService {
	return &PublishService{
		redisClient: redisClient,
		pgConnStr:   pgConnStr,
	}
}

// PublishChangesToRedisChannel listens on the Postgres notification channel
// and republishes every payload to Redis. Blocks; run in a goroutine.
func (s *PublishService) PublishChangesToRedisChannel() {

	listener := pq.NewListener(s.pgConnStr, 10*time.Second, time.Minute, nil)
	err := listener.Listen(repository.CircuitChangesChannel)
	if err != nil {
		zaplogger.Error("Failed to listen on Postgres channel", zaplogger.Fields{
			"channel": repository.CircuitChangesChannel,
			"error":   err.Error(),
		})
		return
	}

	ctx := context.Background()

	for {
		select {
		case n := <-listener.Notify:
			if n == nil {
				continue
			}
			err := s.redisClient.Publish(ctx, RedisChangesChannel, n.Extra).Err()
			if err != nil {
				zaplogger.Error("Failed to publish to Redis", zaplogger.Fields{"error": err})
			}
		case <-time.After(90 * time.Second):
			go func() {
				err := listener.Ping()
				if err != nil {
					zaplogger.Error("Error pinging PostgreSQL", zaplogger.Fields{"error": err})
				}
			}()
		}
	}
}
