package services

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"
)

// VerifiedNotification is published to the integrator once a receipt is
// verified, so dashboards can update without polling.
type VerifiedNotification struct {
	Type           string `json:"type"`
	VerificationID string `json:"verification_id"`
	Username       string `json:"username"`
	Reference      string `json:"reference"`
	ReceiptURL     string `json:"receipt_url"`
}

// Notifier delivers realtime verification events.
type Notifier interface {
	NotifyVerified(ctx context.Context, userID string, n VerifiedNotification) error
}

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
}

// PubNubNotifier publishes to the per-user channel "user-<id>".
type PubNubNotifier struct {
	pn *pubnub.PubNub
}

func NewPubNubNotifier(cfg PubNubConfig) *PubNubNotifier {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey

	return &PubNubNotifier{pn: pubnub.NewPubNub(pnCfg)}
}

func (p *PubNubNotifier) NotifyVerified(_ context.Context, userID string, n VerifiedNotification) error {
	_, _, err := p.pn.Publish().
		Channel(userChannel(userID)).
		Message(n).
		Execute()
	if err != nil {
		return fmt.Errorf("NotifyVerified: pubnub.Publish: %w", err)
	}
	return nil
}

func userChannel(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}
