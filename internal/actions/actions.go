// Package actions holds the built-in workflow actions.
package actions

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/RealZimboGuy/gophertrigger/internal/config"
	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Deps carries the clients shared by the built-in actions. Nil clients disable the
// actions needing them.
type Deps struct {
	HTTPClient *http.Client
	Redis      redis.Cmdable
}

// RegisterBuiltins registers every built-in action whose packages are available. Actions
// requiring a capability that is not configured are skipped with a log line.
func RegisterBuiltins(registry *engine.ActionRegistry, deps Deps) error {
	client := deps.HTTPClient
	if client == nil {
		client = NewHTTPClient()
	}
	builtins := []core.Action{
		NewSendWebhook(client),
		NewLogMessage(),
		NewSetSharedData(),
		NewPushFirebaseNotification(client),
	}
	if deps.Redis != nil {
		builtins = append(builtins, NewRedisPublish(deps.Redis))
	}
	for _, a := range builtins {
		err := registry.Register(a)
		if errors.Is(err, engine.ErrCapabilityMissing) {
			slog.Warn("Skipping action, capability not configured", "action_id", a.ID(), "packages", a.RequiredPackages())
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func NewHTTPClient() *http.Client {
	timeout, err := time.ParseDuration(config.GetSystemSettingString(config.ACTION_HTTP_TIMEOUT))
	if err != nil || timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func stringValue(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func boolValue(data map[string]any, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	}
	return false
}

func stringSlice(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

func stringMap(data map[string]any, key string) map[string]string {
	out := map[string]string{}
	switch v := data[key].(type) {
	case map[string]string:
		for k, s := range v {
			out[k] = s
		}
	case map[string]any:
		for k, s := range v {
			out[k] = fmt.Sprint(s)
		}
	}
	return out
}
