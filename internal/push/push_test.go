package push

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/pacto/internal/model"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestWebPushConfigConfigured(t *testing.T) {
	if (WebPushConfig{VAPIDPublicKey: "pub"}).Configured() {
		t.Error("expected unconfigured without private key")
	}
	if !(WebPushConfig{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}).Configured() {
		t.Error("expected configured with both keys")
	}
}

// newWebSubscription returns a device token whose keys are valid for
// payload encryption.
func newWebSubscription(t *testing.T, endpoint string) model.DeviceToken {
	t.Helper()
	p256dh, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate subscription key: %v", err)
	}
	auth := make([]byte, 16)
	rand.Read(auth)
	return model.DeviceToken{
		ID:        "d-web",
		UserID:    "ana",
		Token:     endpoint,
		Platform:  model.PlatformWeb,
		P256dhKey: p256dh,
		AuthKey:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

func newTestWebPushSender(t *testing.T, client *http.Client) *WebPushSender {
	t.Helper()
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}
	s := NewWebPushSender(WebPushConfig{VAPIDPublicKey: pub, VAPIDPrivateKey: priv})
	s.httpClient = client
	return s
}

func TestWebPushSend(t *testing.T) {
	var gotEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEncoding = r.Header.Get("Content-Encoding")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sender := newTestWebPushSender(t, server.Client())
	sub := newWebSubscription(t, server.URL+"/sub/1")

	if err := sender.Send(context.Background(), sub, Message{Title: "Hola", Body: "Prueba"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotEncoding != "aes128gcm" {
		t.Errorf("Content-Encoding = %q, want aes128gcm", gotEncoding)
	}
}

func TestWebPushSendGone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	sender := newTestWebPushSender(t, server.Client())
	sub := newWebSubscription(t, server.URL+"/sub/1")

	err := sender.Send(context.Background(), sub, Message{Title: "Hola"})
	if !errors.Is(err, ErrExpired) {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}
