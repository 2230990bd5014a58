package cluster

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultServerGroup is the redis.PubSub channel group used when
// RedisOptions.ServerGroup is left blank.
const DefaultServerGroup = "wsrelay-cluster-default"

// RedisOptions configures a RedisAdapter.
type RedisOptions struct {
	// ServerName uniquely identifies this process within ServerGroup, so
	// it can recognize and discard its own broadcasts coming back off the
	// subscription. Left blank, a random name is generated.
	ServerName string

	// ServerGroup partitions RedisAdapter instances into separate pub/sub
	// channels. Left blank, DefaultServerGroup is used.
	ServerGroup string
}

// transmission is the wire envelope published to the group's pub/sub
// channel: the originating server's name plus the broadcast payload.
type transmission struct {
	ServerName string `json:"server_name"`
	Text       string `json:"text,omitempty"`
	Binary     []byte `json:"binary,omitempty"`
}

// RedisAdapter implements Adapter using a Redis pub/sub channel to
// synchronize broadcasts between wsrelay processes.
type RedisAdapter struct {
	client      *redis.Client
	ps          *redis.PubSub
	ctx         context.Context
	channelName string
	opts        RedisOptions
	logger      *slog.Logger
}

// NewRedisAdapter dials redisOpts, verifies the connection with a Ping, and
// subscribes to the group's broadcast channel.
func NewRedisAdapter(ctx context.Context, redisOpts *redis.Options, opts *RedisOptions, logger *slog.Logger) (*RedisAdapter, error) {
	client := redis.NewClient(redisOpts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &RedisOptions{}
	}
	resolved := *opts
	if resolved.ServerGroup == "" {
		resolved.ServerGroup = DefaultServerGroup
	}
	if resolved.ServerName == "" {
		uid := make([]byte, 16)
		if _, err := rand.Read(uid); err != nil {
			return nil, err
		}
		resolved.ServerName = hex.EncodeToString(uid)
	}
	if logger == nil {
		logger = slog.Default()
	}

	channelName := resolved.ServerGroup + ":broadcasts"

	return &RedisAdapter{
		client:      client,
		ps:          client.Subscribe(ctx, channelName),
		ctx:         ctx,
		channelName: channelName,
		opts:        resolved,
		logger:      logger,
	}, nil
}

// Init satisfies the Adapter interface; the subscription is already
// established by NewRedisAdapter.
func (r *RedisAdapter) Init() {}

// Shutdown closes the subscription, then the backend connection.
func (r *RedisAdapter) Shutdown() error {
	if err := r.ps.Close(); err != nil {
		return err
	}
	return r.client.Close()
}

// BroadcastToBackend publishes b to the group's pub/sub channel, tagged
// with this adapter's server name.
func (r *RedisAdapter) BroadcastToBackend(b *BroadcastMsg) {
	t := transmission{ServerName: r.opts.ServerName, Text: b.Text, Binary: b.Binary}

	data, err := json.Marshal(t)
	if err != nil {
		r.logger.Error("cluster: marshal broadcast failed", slog.String("err", err.Error()))
		return
	}

	if err := r.client.Publish(context.Background(), r.channelName, string(data)).Err(); err != nil {
		r.logger.Error("cluster: publish broadcast failed", slog.String("err", err.Error()))
	}
}

// BroadcastFromBackend receives broadcasts from the channel and forwards
// everything not originating from this adapter onto ch. Returns once the
// subscription is closed by Shutdown.
func (r *RedisAdapter) BroadcastFromBackend(ch chan<- *BroadcastMsg) {
	for msg := range r.ps.Channel() {
		t, err := decodeTransmission([]byte(msg.Payload))
		if err != nil {
			r.logger.Error("cluster: unmarshal broadcast failed", slog.String("err", err.Error()))
			continue
		}
		if isOwnTransmission(t, r.opts.ServerName) {
			continue
		}
		ch <- &BroadcastMsg{Text: t.Text, Binary: t.Binary}
	}
}

func decodeTransmission(payload []byte) (transmission, error) {
	var t transmission
	err := json.Unmarshal(payload, &t)
	return t, err
}

func marshalTransmission(t transmission) ([]byte, error) {
	return json.Marshal(t)
}

// isOwnTransmission reports whether t originated from serverName, the
// signal a subscriber uses to avoid re-delivering its own broadcasts to
// itself once they round-trip through the pub/sub channel.
func isOwnTransmission(t transmission, serverName string) bool {
	return t.ServerName == serverName
}
