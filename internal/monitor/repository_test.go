package monitor

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupFiringRepo(t *testing.T) *SQLiteFiringRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "firings.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteFiringRepository(db)
	if err != nil {
		t.Fatalf("NewSQLiteFiringRepository() error = %v", err)
	}
	return repo
}

func sampleFiring(id, monitorName string, firedAt time.Time) *TriggerFiring {
	return &TriggerFiring{
		ID:              id,
		Monitor:         monitorName,
		TriggerIndex:    0,
		FiredAt:         firedAt,
		EventAt:         firedAt.Add(-20 * time.Millisecond),
		StatementsTotal: 2,
	}
}

func TestFiringRepository_RecordAndList(t *testing.T) {
	repo := setupFiringRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	firing := sampleFiring("f-001", "night-alarm", now)
	firing.StatementsFailed = 1
	firing.Failures = []string{"siren-01: send failed"}

	if err := repo.RecordFiring(ctx, firing); err != nil {
		t.Fatalf("RecordFiring() error = %v", err)
	}

	got, err := repo.ListFirings(ctx, "night-alarm", 10)
	if err != nil {
		t.Fatalf("ListFirings() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("firings = %d, want 1", len(got))
	}

	f := got[0]
	if f.ID != "f-001" || f.Monitor != "night-alarm" || f.TriggerIndex != 0 {
		t.Errorf("firing = %+v", f)
	}
	if !f.FiredAt.Equal(now) {
		t.Errorf("FiredAt = %v, want %v", f.FiredAt, now)
	}
	if !f.EventAt.Equal(now.Add(-20 * time.Millisecond)) {
		t.Errorf("EventAt = %v", f.EventAt)
	}
	if f.StatementsTotal != 2 || f.StatementsFailed != 1 {
		t.Errorf("statement counts = %d/%d, want 2/1", f.StatementsTotal, f.StatementsFailed)
	}
	if len(f.Failures) != 1 || f.Failures[0] != "siren-01: send failed" {
		t.Errorf("failures = %v", f.Failures)
	}
}

func TestFiringRepository_NoFailuresStoredAsNull(t *testing.T) {
	repo := setupFiringRepo(t)
	ctx := context.Background()

	if err := repo.RecordFiring(ctx, sampleFiring("f-001", "night-alarm", time.Now())); err != nil {
		t.Fatalf("RecordFiring() error = %v", err)
	}

	got, err := repo.ListFirings(ctx, "night-alarm", 10)
	if err != nil {
		t.Fatalf("ListFirings() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("firings = %d, want 1", len(got))
	}
	if got[0].Failures != nil {
		t.Errorf("Failures = %v, want nil", got[0].Failures)
	}
}

func TestFiringRepository_ListNewestFirst(t *testing.T) {
	repo := setupFiringRepo(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		firing := sampleFiring(
			[]string{"f-old", "f-mid", "f-new"}[i],
			"night-alarm",
			base.Add(time.Duration(i)*time.Second),
		)
		if err := repo.RecordFiring(ctx, firing); err != nil {
			t.Fatalf("RecordFiring() error = %v", err)
		}
	}

	got, err := repo.ListFirings(ctx, "night-alarm", 2)
	if err != nil {
		t.Fatalf("ListFirings() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("firings = %d, want 2 (limit)", len(got))
	}
	if got[0].ID != "f-new" || got[1].ID != "f-mid" {
		t.Errorf("order = %s, %s; want f-new, f-mid", got[0].ID, got[1].ID)
	}
}

func TestFiringRepository_FiltersByMonitor(t *testing.T) {
	repo := setupFiringRepo(t)
	ctx := context.Background()

	now := time.Now()
	if err := repo.RecordFiring(ctx, sampleFiring("f-001", "night-alarm", now)); err != nil {
		t.Fatalf("RecordFiring() error = %v", err)
	}
	if err := repo.RecordFiring(ctx, sampleFiring("f-002", "frost-guard", now)); err != nil {
		t.Fatalf("RecordFiring() error = %v", err)
	}

	got, err := repo.ListFirings(ctx, "frost-guard", 10)
	if err != nil {
		t.Fatalf("ListFirings() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "f-002" {
		t.Errorf("firings = %+v, want only f-002", got)
	}
}

func TestFiringRepository_DuplicateID(t *testing.T) {
	repo := setupFiringRepo(t)
	ctx := context.Background()

	firing := sampleFiring("f-001", "night-alarm", time.Now())
	if err := repo.RecordFiring(ctx, firing); err != nil {
		t.Fatalf("first RecordFiring() error = %v", err)
	}
	if err := repo.RecordFiring(ctx, firing); err == nil {
		t.Error("second RecordFiring() with same ID should fail")
	}
}

func TestFiringRepository_DefaultLimit(t *testing.T) {
	repo := setupFiringRepo(t)
	ctx := context.Background()

	if err := repo.RecordFiring(ctx, sampleFiring("f-001", "night-alarm", time.Now())); err != nil {
		t.Fatalf("RecordFiring() error = %v", err)
	}

	// Zero and negative limits fall back to the default.
	got, err := repo.ListFirings(ctx, "night-alarm", 0)
	if err != nil {
		t.Fatalf("ListFirings(0) error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("firings = %d, want 1", len(got))
	}
}
