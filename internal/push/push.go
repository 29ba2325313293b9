package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/pacto/internal/model"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// WebPushConfig holds VAPID configuration.
type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// Configured reports whether both VAPID keys are present.
func (c WebPushConfig) Configured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// WebPushSender delivers to browser subscriptions.
type WebPushSender struct {
	cfg        WebPushConfig
	httpClient webpush.HTTPClient
}

func NewWebPushSender(cfg WebPushConfig) *WebPushSender {
	if cfg.Subscriber == "" {
		cfg.Subscriber = "mailto:noreply@pacto.app"
	}
	return &WebPushSender{cfg: cfg}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *WebPushSender) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Send pushes msg to a web subscription stored as a device token.
func (s *WebPushSender) Send(ctx context.Context, d model.DeviceToken, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: d.Token,
		Keys: webpush.Keys{
			P256dh: d.P256dhKey,
			Auth:   d.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
