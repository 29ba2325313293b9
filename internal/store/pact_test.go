package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/pacto/internal/model"
)

func setupPactTestDB(t *testing.T) *PactStore {
	t.Helper()
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)
	seedHousehold(t, hs, "h1", "u1")
	seedHousehold(t, hs, "h2", "u9")
	return NewPactStore(db)
}

func newTestPact(id, householdID string, createdAt time.Time) *model.Pact {
	return &model.Pact{
		ID:              id,
		HouseholdID:     householdID,
		Title:           "Pact " + id,
		CreatedByUserID: "u1",
		Status:          model.StatusPending,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func createPact(t *testing.T, ps *PactStore, p *model.Pact) {
	t.Helper()
	if err := ps.Create(context.Background(), p); err != nil {
		t.Fatalf("create pact: %v", err)
	}
}

func TestPactCreateAndGet(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()

	notes := "bolsas verdes"
	assignee := "u2"
	due := testNow.Add(2 * time.Hour)
	p := newTestPact("p1", "h1", testNow)
	p.Notes = &notes
	p.AssignedToUserID = &assignee
	p.DueAt = &due
	p.RequiresConfirmation = true
	createPact(t, ps, p)

	got, err := ps.GetByID(ctx, "h1", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Pact p1" {
		t.Errorf("title = %q, want %q", got.Title, "Pact p1")
	}
	if got.Notes == nil || *got.Notes != notes {
		t.Errorf("notes = %v, want %q", got.Notes, notes)
	}
	if !got.IsAssignedTo("u2") {
		t.Errorf("assignee = %v, want u2", got.AssignedToUserID)
	}
	if got.DueAt == nil || !got.DueAt.Equal(due) {
		t.Errorf("due_at = %v, want %v", got.DueAt, due)
	}
	if !got.RequiresConfirmation {
		t.Error("expected requires_confirmation")
	}
	if got.DoneAt != nil || got.ConfirmedAt != nil || got.OverdueNotifiedAt != nil {
		t.Error("expected nil done/confirmed/overdue stamps")
	}
}

func TestPactGetScopedToHousehold(t *testing.T) {
	ps := setupPactTestDB(t)
	createPact(t, ps, newTestPact("p1", "h1", testNow))

	got, err := ps.GetByID(context.Background(), "h2", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for pact in another household")
	}
}

func TestPactListNewestFirst(t *testing.T) {
	ps := setupPactTestDB(t)
	createPact(t, ps, newTestPact("p1", "h1", testNow))
	createPact(t, ps, newTestPact("p2", "h1", testNow.Add(time.Minute)))
	createPact(t, ps, newTestPact("p3", "h2", testNow.Add(2*time.Minute)))

	pacts, err := ps.List(context.Background(), "h1", PactQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pacts) != 2 {
		t.Fatalf("len = %d, want 2", len(pacts))
	}
	if pacts[0].ID != "p2" || pacts[1].ID != "p1" {
		t.Errorf("order = [%s %s], want [p2 p1]", pacts[0].ID, pacts[1].ID)
	}
}

func TestPactListQuery(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()

	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)
	assignee := "u1"

	overdue := newTestPact("overdue", "h1", testNow)
	overdue.DueAt = &past
	createPact(t, ps, overdue)

	doneLate := newTestPact("done", "h1", testNow)
	doneLate.DueAt = &past
	createPact(t, ps, doneLate)
	if _, err := ps.MarkDone(ctx, "h1", "done", testNow); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	upcoming := newTestPact("upcoming", "h1", testNow)
	upcoming.DueAt = &future
	upcoming.AssignedToUserID = &assignee
	createPact(t, ps, upcoming)

	pacts, err := ps.List(ctx, "h1", PactQuery{DueBefore: &testNow, NotDone: true})
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(pacts) != 1 || pacts[0].ID != "overdue" {
		t.Errorf("overdue = %v, want [overdue]", ids(pacts))
	}

	pacts, _ = ps.List(ctx, "h1", PactQuery{Unassigned: true})
	if len(pacts) != 2 {
		t.Errorf("unassigned = %v, want 2 pacts", ids(pacts))
	}

	from, to := testNow, testNow.Add(time.Hour)
	pacts, _ = ps.List(ctx, "h1", PactQuery{DueFrom: &from, DueTo: &to})
	if len(pacts) != 1 || pacts[0].ID != "upcoming" {
		t.Errorf("range = %v, want [upcoming] (inclusive upper bound)", ids(pacts))
	}
}

func ids(pacts []model.Pact) []string {
	out := make([]string, len(pacts))
	for i, p := range pacts {
		out[i] = p.ID
	}
	return out
}

func TestPactUpdateCompareAndSwap(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()
	createPact(t, ps, newTestPact("p1", "h1", testNow))

	p, _ := ps.GetByID(ctx, "h1", "p1")
	p.Title = "Sacar basura"
	p.Status = model.StatusDoing
	p.UpdatedAt = testNow.Add(time.Minute)

	ok, err := ps.Update(ctx, p, model.StatusPending)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("expected update to apply")
	}

	ok, err = ps.Update(ctx, p, model.StatusPending)
	if err != nil {
		t.Fatalf("stale update: %v", err)
	}
	if ok {
		t.Error("expected stale update to be rejected")
	}

	got, _ := ps.GetByID(ctx, "h1", "p1")
	if got.Title != "Sacar basura" || got.Status != model.StatusDoing {
		t.Errorf("got %q/%s, want Sacar basura/DOING", got.Title, got.Status)
	}
}

func TestPactMarkDoneOnce(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()
	createPact(t, ps, newTestPact("p1", "h1", testNow))

	ok, err := ps.MarkDone(ctx, "h1", "p1", testNow)
	if err != nil || !ok {
		t.Fatalf("mark done = %v, %v; want true, nil", ok, err)
	}
	ok, err = ps.MarkDone(ctx, "h1", "p1", testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("mark done again: %v", err)
	}
	if ok {
		t.Error("expected second mark done to be rejected")
	}

	got, _ := ps.GetByID(ctx, "h1", "p1")
	if got.DoneAt == nil || !got.DoneAt.Equal(testNow) {
		t.Errorf("done_at = %v, want %v", got.DoneAt, testNow)
	}
}

func TestPactConfirmConditions(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()

	plain := newTestPact("plain", "h1", testNow)
	createPact(t, ps, plain)
	ps.MarkDone(ctx, "h1", "plain", testNow)
	if ok, _ := ps.Confirm(ctx, "h1", "plain", testNow); ok {
		t.Error("confirm should not apply without requires_confirmation")
	}

	pending := newTestPact("pending", "h1", testNow)
	pending.RequiresConfirmation = true
	createPact(t, ps, pending)
	if ok, _ := ps.Confirm(ctx, "h1", "pending", testNow); ok {
		t.Error("confirm should not apply before done")
	}
}

func TestPactConfirmConcurrentAtMostOnce(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()

	p := newTestPact("p1", "h1", testNow)
	p.RequiresConfirmation = true
	createPact(t, ps, p)
	ps.MarkDone(ctx, "h1", "p1", testNow)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ps.Confirm(ctx, "h1", "p1", testNow)
			if err != nil {
				t.Errorf("confirm: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("successful confirms = %d, want 1", got)
	}
}

func TestPactOverdueClaim(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()

	past := testNow.Add(-24 * time.Hour)
	p := newTestPact("p1", "h1", testNow.Add(-48*time.Hour))
	p.DueAt = &past
	createPact(t, ps, p)

	pacts, err := ps.ListOverdue(ctx, testNow)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(pacts) != 1 {
		t.Fatalf("len = %d, want 1", len(pacts))
	}

	ok, err := ps.ClaimOverdue(ctx, "p1", testNow)
	if err != nil || !ok {
		t.Fatalf("claim = %v, %v; want true, nil", ok, err)
	}
	if ok, _ := ps.ClaimOverdue(ctx, "p1", testNow); ok {
		t.Error("second claim should fail")
	}

	pacts, _ = ps.ListOverdue(ctx, testNow)
	if len(pacts) != 0 {
		t.Errorf("len = %d, want 0 after claim", len(pacts))
	}
}

func TestPactOverdueClaimRechecksPredicate(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()

	past := testNow.Add(-time.Hour)
	done := newTestPact("p1", "h1", testNow.Add(-48*time.Hour))
	done.DueAt = &past
	createPact(t, ps, done)

	moved := newTestPact("p2", "h1", testNow.Add(-48*time.Hour))
	moved.DueAt = &past
	createPact(t, ps, moved)

	pacts, err := ps.ListOverdue(ctx, testNow)
	if err != nil || len(pacts) != 2 {
		t.Fatalf("list overdue = %d, %v; want 2, nil", len(pacts), err)
	}

	// Both change between selection and claim.
	if ok, err := ps.MarkDone(ctx, "h1", "p1", testNow); err != nil || !ok {
		t.Fatalf("mark done = %v, %v", ok, err)
	}
	future := testNow.Add(24 * time.Hour)
	moved.DueAt = &future
	if ok, err := ps.Update(ctx, moved, model.StatusPending); err != nil || !ok {
		t.Fatalf("update = %v, %v", ok, err)
	}

	for _, id := range []string{"p1", "p2"} {
		ok, err := ps.ClaimOverdue(ctx, id, testNow)
		if err != nil {
			t.Fatalf("claim %s: %v", id, err)
		}
		if ok {
			t.Errorf("claim %s = true, want false", id)
		}
	}

	got, _ := ps.GetByID(ctx, "h1", "p1")
	if got.OverdueNotifiedAt != nil {
		t.Error("done pact should not be stamped")
	}
}

func TestPactAssignMissingPact(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()

	createPact(t, ps, newTestPact("p1", "h1", testNow))

	ok, err := ps.Assign(ctx, "h1", "p1", "u2", testNow)
	if err != nil || !ok {
		t.Fatalf("assign = %v, %v; want true, nil", ok, err)
	}

	ok, err = ps.Assign(ctx, "h1", "missing", "u2", testNow)
	if err != nil {
		t.Fatalf("assign missing: %v", err)
	}
	if ok {
		t.Error("assign on a missing pact should report false")
	}
}

func TestPactDelete(t *testing.T) {
	ps := setupPactTestDB(t)
	ctx := context.Background()
	createPact(t, ps, newTestPact("p1", "h1", testNow))

	if err := ps.Delete(ctx, "h2", "p1"); err != nil {
		t.Fatalf("delete from other household: %v", err)
	}
	if got, _ := ps.GetByID(ctx, "h1", "p1"); got == nil {
		t.Fatal("delete scoped to another household must not remove the pact")
	}

	if err := ps.Delete(ctx, "h1", "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := ps.GetByID(ctx, "h1", "p1"); got != nil {
		t.Error("expected pact to be gone")
	}
}
