package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/RealZimboGuy/gophertrigger/internal/config"
	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/templating"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/pkg/errors"
)

// PushFirebaseNotification sends a push notification through the FCM legacy HTTP API.
type PushFirebaseNotification struct {
	core.BaseAction
	client *http.Client
	URL    string
}

func NewPushFirebaseNotification(client *http.Client) *PushFirebaseNotification {
	return &PushFirebaseNotification{client: client, URL: config.GetSystemSettingString(config.FIREBASE_URL)}
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
	Badge string `json:"badge"`
	Image string `json:"image,omitempty"`
}

type fcmRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    fcmNotification   `json:"notification"`
	Priority        string            `json:"priority"`
	Data            map[string]string `json:"data"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

func (a *PushFirebaseNotification) ID() string   { return "push-firebase-notification" }
func (a *PushFirebaseNotification) Name() string { return "Push firebase Notification" }
func (a *PushFirebaseNotification) RequiredPackages() []string {
	return []string{config.CAPABILITY_FIREBASE}
}

func (a *PushFirebaseNotification) Fields() []core.Field {
	return []core.Field{
		{Name: "server_key", Type: core.FieldText, Label: "Server key", Required: true, Default: config.GetSystemSettingString(config.FIREBASE_SERVER_KEY)},
		{Name: "tokens", Type: core.FieldList, Label: "Device tokens"},
		{Name: "token_attribute", Type: core.FieldText, Label: "Token attribute", HelperText: "Entity attribute holding the device token, e.g. fcm_token"},
		{Name: "icon", Type: core.FieldURL, Label: "Icon"},
		{Name: "title", Type: core.FieldText, Label: "Title", Required: true, HelperText: "Supports magic attributes"},
		{Name: "body", Type: core.FieldTextarea, Label: "Body", Required: true, HelperText: "Supports magic attributes"},
		{Name: "data", Type: core.FieldKeyValue, Label: "Data"},
	}
}

func (a *PushFirebaseNotification) MagicAttributeFields() []string {
	return []string{"title", "body", "data", "tokens"}
}

func (a *PushFirebaseNotification) Execute(ctx context.Context, data map[string]any, exec core.Execution, entity core.AttributeSource, _ map[string]any, _ map[string]any) error {
	serverKey := stringValue(data, "server_key")
	if serverKey == "" {
		return errors.WithMessage(engine.ErrConfiguration, "firebase server key is empty")
	}
	tokens := stringSlice(data, "tokens")
	if attr := stringValue(data, "token_attribute"); attr != "" && entity != nil {
		if v, err := core.Resolve(entity, attr); err == nil {
			if t := templating.Stringify(v); t != "" {
				tokens = append(tokens, t)
			}
		} else {
			exec.Log("token attribute (" + attr + ") could not be resolved")
		}
	}
	if len(tokens) == 0 {
		return errors.WithMessage(engine.ErrConfiguration, "no device tokens to notify")
	}

	payload, err := json.Marshal(fcmRequest{
		RegistrationIDs: tokens,
		Notification: fcmNotification{
			Title: stringValue(data, "title"),
			Body:  stringValue(data, "body"),
			Sound: "default",
			Badge: "1",
			Image: stringValue(data, "icon"),
		},
		Priority: "high",
		Data:     stringMap(data, "data"),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(payload))
	if err != nil {
		return errors.WithMessagef(engine.ErrConfiguration, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+serverKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.WithMessagef(engine.ErrActionExecution, "firebase request: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseLog))

	var answer fcmResponse
	if err := json.Unmarshal(raw, &answer); err == nil && answer.Success == 1 {
		exec.Log("Push notification succeeded")
		return nil
	}
	exec.Fail(string(raw))
	return nil
}
