package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/pacto/internal/model"
)

func setupActivityTestDB(t *testing.T) (*ActivityStore, *PactStore) {
	t.Helper()
	db := setupTestDB(t)
	seedHousehold(t, NewHouseholdStore(db), "h1", "u1")
	return NewActivityStore(db), NewPactStore(db)
}

func appendActivity(t *testing.T, as *ActivityStore, id, pactID string, typ model.ActivityType, at time.Time) {
	t.Helper()
	err := as.Create(context.Background(), &model.PactActivity{
		ID:          id,
		PactID:      pactID,
		HouseholdID: "h1",
		ByUserID:    "u1",
		Type:        typ,
		CreatedAt:   at,
	})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
}

func TestActivityFeedOrderAndSummary(t *testing.T) {
	as, ps := setupActivityTestDB(t)
	ctx := context.Background()

	p := newTestPact("p1", "h1", testNow)
	p.Title = "Sacar basura"
	createPact(t, ps, p)

	appendActivity(t, as, "a1", "p1", model.ActivityCreated, testNow)
	appendActivity(t, as, "a2", "p1", model.ActivityAssigned, testNow.Add(time.Second))

	items, err := as.ListFeed(ctx, "h1", 10, nil)
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ID != "a2" || items[1].ID != "a1" {
		t.Errorf("order = [%s %s], want [a2 a1]", items[0].ID, items[1].ID)
	}
	if items[0].Pact == nil || items[0].Pact.Title != "Sacar basura" {
		t.Errorf("pact summary = %+v, want title Sacar basura", items[0].Pact)
	}
	if items[0].Payload == nil {
		t.Error("expected empty payload object, got nil")
	}
}

func TestActivityFeedPayloadRoundTrip(t *testing.T) {
	as, _ := setupActivityTestDB(t)
	ctx := context.Background()

	err := as.Create(ctx, &model.PactActivity{
		ID: "a1", PactID: "p1", HouseholdID: "h1", ByUserID: "u1",
		Type:      model.ActivityUpdated,
		Payload:   map[string]any{"fields": []string{"title", "dueAt"}},
		CreatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	items, _ := as.ListFeed(ctx, "h1", 10, nil)
	fields, ok := items[0].Payload["fields"].([]any)
	if !ok || len(fields) != 2 || fields[0] != "title" {
		t.Errorf("payload = %v, want fields [title dueAt]", items[0].Payload)
	}
}

func TestActivityFeedDeletedPact(t *testing.T) {
	as, _ := setupActivityTestDB(t)
	appendActivity(t, as, "a1", "gone", model.ActivityCreated, testNow)

	items, err := as.ListFeed(context.Background(), "h1", 10, nil)
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if items[0].Pact != nil {
		t.Errorf("pact = %+v, want nil for deleted pact", items[0].Pact)
	}
}

func TestActivityFeedKeysetWithTies(t *testing.T) {
	as, _ := setupActivityTestDB(t)
	ctx := context.Background()

	// a1..a3 share a timestamp; the id breaks the tie.
	appendActivity(t, as, "a1", "p1", model.ActivityCreated, testNow)
	appendActivity(t, as, "a2", "p1", model.ActivityUpdated, testNow)
	appendActivity(t, as, "a3", "p1", model.ActivityDone, testNow)
	appendActivity(t, as, "a4", "p1", model.ActivityConfirmed, testNow.Add(time.Second))
	appendActivity(t, as, "a0", "p1", model.ActivityComment, testNow.Add(-time.Second))

	var seen []string
	var after *FeedPosition
	for page := 0; page < 5; page++ {
		items, err := as.ListFeed(ctx, "h1", 2, after)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		for _, it := range items {
			seen = append(seen, it.ID)
		}
		if len(items) < 2 {
			break
		}
		last := items[len(items)-1]
		after = &FeedPosition{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	want := []string{"a4", "a3", "a2", "a1", "a0"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}
}

func TestActivityFeedScopedToHousehold(t *testing.T) {
	as, _ := setupActivityTestDB(t)
	appendActivity(t, as, "a1", "p1", model.ActivityCreated, testNow)

	items, err := as.ListFeed(context.Background(), "other", 10, nil)
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}
