package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}

func TestRollupMigrationDefinesExpectedColumns(t *testing.T) {
	content := readMigration(t, "20250812090500_create_event_rollups.sql")

	for _, col := range []string{
		"event_id TEXT PRIMARY KEY",
		"summary JSONB",
		"series_daily JSONB",
		"tickets_by_type JSONB",
		"buyers JSONB",
		"recent_orders JSONB",
	} {
		if !strings.Contains(content, col) {
			t.Fatalf("rollup migration missing %q", col)
		}
	}
}

func TestClubEventsMigrationHasClubIndex(t *testing.T) {
	content := readMigration(t, "20250812090000_create_club_events.sql")
	if !strings.Contains(content, "idx_club_events_club_id") {
		t.Fatal("club events migration missing club_id index")
	}
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("migrations", name))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	return string(b)
}
