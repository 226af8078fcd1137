package actions

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/pkg/errors"
)

// maxResponseLog caps how much of a response body ends up in the execution log.
const maxResponseLog = 512

// SendWebhook sends an HTTP request and fails on non 2xx answers.
type SendWebhook struct {
	core.BaseAction
	client *http.Client
}

func NewSendWebhook(client *http.Client) *SendWebhook {
	return &SendWebhook{client: client}
}

func (a *SendWebhook) ID() string   { return "send-webhook" }
func (a *SendWebhook) Name() string { return "Send webhook" }

func (a *SendWebhook) Fields() []core.Field {
	return []core.Field{
		{Name: "url", Type: core.FieldURL, Label: "URL", Required: true, HelperText: "Supports magic attributes"},
		{Name: "method", Type: core.FieldText, Label: "Method", Default: http.MethodPost},
		{Name: "headers", Type: core.FieldKeyValue, Label: "Headers"},
		{Name: "body", Type: core.FieldTextarea, Label: "Body", HelperText: "Supports magic attributes"},
	}
}

func (a *SendWebhook) MagicAttributeFields() []string {
	return []string{"url", "headers", "body"}
}

func (a *SendWebhook) Execute(ctx context.Context, data map[string]any, exec core.Execution, _ core.AttributeSource, _ map[string]any, shared map[string]any) error {
	url := stringValue(data, "url")
	if url == "" {
		return errors.WithMessage(engine.ErrConfiguration, "webhook url is empty")
	}
	method := strings.ToUpper(stringValue(data, "method"))
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if b := stringValue(data, "body"); b != "" {
		body = strings.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.WithMessagef(engine.ErrConfiguration, "build request: %v", err)
	}
	for k, v := range stringMap(data, "headers") {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.WithMessagef(engine.ErrActionExecution, "%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseLog))

	shared["webhook_status"] = resp.StatusCode
	exec.Log(method + " " + url + " answered " + resp.Status)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.WithMessagef(engine.ErrActionExecution, "webhook answered %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
