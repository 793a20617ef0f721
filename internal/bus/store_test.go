package bus

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreSaveAndGetPending(t *testing.T) {
	store := setupTestDB(t)

	msg := Message{Type: MessageSyncProgress, SourceID: "src-1", ProjectID: "proj-1", Progress: 20, Message: "connecting"}
	if err := store.Save("telemetry_acme", msg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	pending, err := store.GetPending("telemetry_acme")
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(pending))
	}
	if pending[0].SourceID != "src-1" || pending[0].Progress != 20 {
		t.Errorf("unexpected pending message: %+v", pending[0])
	}
}

func TestSQLiteStoreMarkDelivered(t *testing.T) {
	store := setupTestDB(t)

	msg := Message{Type: MessageMetricsUpdate, ProjectID: "proj-1"}
	if err := store.Save("telemetry_acme", msg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.MarkDelivered("telemetry_acme", msg); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	pending, err := store.GetPending("telemetry_acme")
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending messages after delivery, got %d", len(pending))
	}
}

func TestSQLiteStoreChannelIsolation(t *testing.T) {
	store := setupTestDB(t)

	store.Save("telemetry_acme", Message{Type: MessageSyncProgress, ProjectID: "p1"})
	store.Save("telemetry_beta", Message{Type: MessageSyncProgress, ProjectID: "p2"})

	acme, err := store.GetPending("telemetry_acme")
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(acme) != 1 || acme[0].ProjectID != "p1" {
		t.Errorf("expected only acme's message, got %+v", acme)
	}
}

func TestSQLiteStoreCleanupDeletesOnlyOldDelivered(t *testing.T) {
	store := setupTestDB(t)

	old := Message{Type: MessageSyncProgress, ProjectID: "old"}
	store.Save("telemetry_acme", old)
	store.MarkDelivered("telemetry_acme", old)
	store.db.Exec(`UPDATE bus_messages SET created_at = ? WHERE channel = ?`, time.Now().Add(-2*time.Hour), "telemetry_acme")

	fresh := Message{Type: MessageSyncProgress, ProjectID: "fresh"}
	store.Save("telemetry_acme", fresh)

	if err := store.Cleanup(1 * time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM bus_messages`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only the fresh undelivered row to survive cleanup, got %d rows", count)
	}
}
