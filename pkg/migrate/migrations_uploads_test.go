package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beatvault/beatvault-backend/pkg/migrate"
)

func TestUploadsMigrationContainsStatusEnum(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_uploads.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no uploads migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE upload_status AS ENUM ('uploading', 'processing', 'published', 'pending')",
		"CREATE TABLE IF NOT EXISTS uploads",
		"status upload_status NOT NULL DEFAULT 'uploading'",
		"DROP TABLE IF EXISTS uploads",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAssetsMigrationCascadesFromUploads(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_assets.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no assets migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"FOREIGN KEY (upload_id) REFERENCES uploads(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_assets_upload_id",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
