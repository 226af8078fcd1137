package actions

import (
	"context"
	"strconv"

	"github.com/RealZimboGuy/gophertrigger/internal/config"
	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisPublish publishes a templated message on a Redis channel.
type RedisPublish struct {
	core.BaseAction
	client redis.Cmdable
}

func NewRedisPublish(client redis.Cmdable) *RedisPublish {
	return &RedisPublish{client: client}
}

func (a *RedisPublish) ID() string                 { return "redis-publish" }
func (a *RedisPublish) Name() string               { return "Publish to Redis" }
func (a *RedisPublish) RequiredPackages() []string { return []string{config.CAPABILITY_REDIS} }

func (a *RedisPublish) Fields() []core.Field {
	return []core.Field{
		{Name: "channel", Type: core.FieldText, Label: "Channel", Required: true},
		{Name: "message", Type: core.FieldTextarea, Label: "Message", Required: true, HelperText: "Supports magic attributes"},
	}
}

func (a *RedisPublish) MagicAttributeFields() []string { return []string{"channel", "message"} }

func (a *RedisPublish) Execute(ctx context.Context, data map[string]any, exec core.Execution, _ core.AttributeSource, _ map[string]any, _ map[string]any) error {
	channel := stringValue(data, "channel")
	if channel == "" {
		return errors.WithMessage(engine.ErrConfiguration, "redis channel is empty")
	}
	receivers, err := a.client.Publish(ctx, channel, stringValue(data, "message")).Result()
	if err != nil {
		return errors.WithMessagef(engine.ErrActionExecution, "publish to %s: %v", channel, err)
	}
	exec.Log("published to " + channel + ", receivers: " + strconv.FormatInt(receivers, 10))
	return nil
}
