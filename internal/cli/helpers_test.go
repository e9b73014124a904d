package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/storage"
)

// testEnv points configuration at a fresh database and returns its path.
func testEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "persona.db")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PERSONA_SEARCH_CONFIG", "")
	t.Setenv("PERSONA_SEARCH_STORAGE__PATH", dbPath)
	t.Setenv("PERSONA_SEARCH_LOGGING__LEVEL", "disabled")
	return dbPath
}

// seedStorage opens dbPath, runs fn and closes the store again.
func seedStorage(t *testing.T, dbPath string, fn func(s *storage.SQLiteStorage)) {
	t.Helper()
	s := storage.NewStorage(dbPath)
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer s.Close()
	fn(s)
}

// execute runs cmd with args and returns its combined output.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
