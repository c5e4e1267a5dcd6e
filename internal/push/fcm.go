package push

import (
	"context"
	"encoding/json"
	"log"

	"firebase.google.com/go/v4/messaging"

	"github.com/pulse-social/backend/internal/notifications"
)

// DeviceTokenSource yields the registered push tokens for a user.
type DeviceTokenSource interface {
	GetDeviceTokens(userID uint) ([]string, error)
}

// FCMSender delivers offline notifications through Firebase Cloud Messaging,
// fanning out to every device token the user has registered. Best-effort:
// failures are logged and reported as a false return, never retried here.
type FCMSender struct {
	client *messaging.Client
	tokens DeviceTokenSource
}

func NewFCMSender(client *messaging.Client, tokens DeviceTokenSource) *FCMSender {
	return &FCMSender{client: client, tokens: tokens}
}

func (s *FCMSender) SendPush(ctx context.Context, userID uint, typ notifications.Type, payload interface{}) bool {
	tokens, err := s.tokens.GetDeviceTokens(userID)
	if err != nil {
		log.Printf("load device tokens for user %d: %v", userID, err)
		return false
	}
	if len(tokens) == 0 {
		return false
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal push payload for user %d: %v", userID, err)
		return false
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Data: map[string]string{
			"type":    string(typ),
			"payload": string(body),
		},
	}
	resp, err := s.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		log.Printf("send push to user %d: %v", userID, err)
		return false
	}
	if resp.FailureCount > 0 {
		log.Printf("push to user %d: %d of %d devices failed", userID, resp.FailureCount, len(tokens))
	}
	return resp.SuccessCount > 0
}
