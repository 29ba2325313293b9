package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/pacto/internal/model"
)

func newTestDevice(id, userID, token string, platform model.Platform) *model.DeviceToken {
	return &model.DeviceToken{
		ID:        id,
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func TestDeviceUpsert(t *testing.T) {
	ds := NewDeviceStore(setupTestDB(t))
	ctx := context.Background()

	d, err := ds.Upsert(ctx, newTestDevice("d1", "u1", "ExponentPushToken[aaa]", model.PlatformIOS))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if d.ID != "d1" || d.UserID != "u1" {
		t.Errorf("got %+v, want d1 owned by u1", d)
	}

	// Same token registered by another user moves ownership and keeps the row.
	moved := newTestDevice("d2", "u2", "ExponentPushToken[aaa]", model.PlatformAndroid)
	moved.UpdatedAt = testNow.Add(time.Minute)
	d, err = ds.Upsert(ctx, moved)
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if d.ID != "d1" {
		t.Errorf("id = %q, want original row d1", d.ID)
	}
	if d.UserID != "u2" || d.Platform != model.PlatformAndroid {
		t.Errorf("got %s/%s, want u2/android", d.UserID, d.Platform)
	}
	if !d.UpdatedAt.Equal(moved.UpdatedAt) {
		t.Errorf("updated_at = %v, want %v", d.UpdatedAt, moved.UpdatedAt)
	}
}

func TestDeviceWebKeys(t *testing.T) {
	ds := NewDeviceStore(setupTestDB(t))

	web := newTestDevice("d1", "u1", "https://push.example.com/sub/1", model.PlatformWeb)
	web.P256dhKey = "p256"
	web.AuthKey = "auth"
	d, err := ds.Upsert(context.Background(), web)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if d.P256dhKey != "p256" || d.AuthKey != "auth" {
		t.Errorf("keys = %q/%q, want p256/auth", d.P256dhKey, d.AuthKey)
	}
}

func TestDeviceListByUsers(t *testing.T) {
	ds := NewDeviceStore(setupTestDB(t))
	ctx := context.Background()

	ds.Upsert(ctx, newTestDevice("d1", "u1", "t1", model.PlatformIOS))
	ds.Upsert(ctx, newTestDevice("d2", "u1", "t2", model.PlatformAndroid))
	ds.Upsert(ctx, newTestDevice("d3", "u2", "t3", model.PlatformIOS))
	ds.Upsert(ctx, newTestDevice("d4", "u3", "t4", model.PlatformIOS))

	tokens, err := ds.ListByUsers(ctx, []string{"u1", "u2"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tokens) != 3 {
		t.Errorf("len = %d, want 3", len(tokens))
	}

	tokens, err = ds.ListByUsers(ctx, nil)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("len = %d, want 0", len(tokens))
	}
}

func TestDeviceDelete(t *testing.T) {
	ds := NewDeviceStore(setupTestDB(t))
	ctx := context.Background()

	ds.Upsert(ctx, newTestDevice("d1", "u1", "t1", model.PlatformIOS))
	ds.Upsert(ctx, newTestDevice("d2", "u1", "t2", model.PlatformIOS))
	ds.Upsert(ctx, newTestDevice("d3", "u2", "t3", model.PlatformIOS))

	if err := ds.DeleteByToken(ctx, "t3"); err != nil {
		t.Fatalf("delete by token: %v", err)
	}
	if d, _ := ds.GetByToken(ctx, "t3"); d != nil {
		t.Error("expected t3 to be gone")
	}

	n, err := ds.DeleteByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
}
