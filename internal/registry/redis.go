package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/ekinaydin/intrachat/internal/models"
)

const pushChannelPrefix = "chat:push:"

// RedisRegistry fans push events out through Redis pub/sub so that a
// recipient connected to another process still gets its frame. Connection
// slots stay process-local; only event distribution crosses processes.
type RedisRegistry struct {
	local  *MemoryRegistry
	client *redis.Client
	sub    *redis.PubSub
}

func NewRedisRegistry(url string) (*RedisRegistry, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis registry: parse url: %w", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis registry: ping: %w", err)
	}

	r := &RedisRegistry{
		local:  NewMemoryRegistry(),
		client: client,
		sub:    client.PSubscribe(context.Background(), pushChannelPrefix+"*"),
	}
	go r.dispatch()

	return r, nil
}

func (r *RedisRegistry) Register(userID int64, h *Handle) { r.local.Register(userID, h) }
func (r *RedisRegistry) Unregister(h *Handle)             { r.local.Unregister(h) }
func (r *RedisRegistry) Lookup(userID int64) (*Handle, bool) {
	return r.local.Lookup(userID)
}

func (r *RedisRegistry) Push(userID int64, event models.PushEvent) {
	frame, err := json.Marshal(event)
	if err != nil {
		log.Printf("registry: encode push event: %v", err)
		return
	}
	if err := r.client.Publish(context.Background(), pushChannelPrefix+strconv.FormatInt(userID, 10), frame).Err(); err != nil {
		log.Printf("registry: publish push event: %v", err)
	}
}

// dispatch delivers published frames to whichever handle this process holds.
// Frames for users connected elsewhere are simply not ours to deliver.
func (r *RedisRegistry) dispatch() {
	for msg := range r.sub.Channel() {
		userID, err := strconv.ParseInt(strings.TrimPrefix(msg.Channel, pushChannelPrefix), 10, 64)
		if err != nil {
			continue
		}
		r.local.deliver(userID, []byte(msg.Payload))
	}
}

func (r *RedisRegistry) Close() error {
	_ = r.sub.Close()
	return r.client.Close()
}
