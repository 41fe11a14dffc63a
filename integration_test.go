//go:build integration

package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovetools/treenote/cmd"
)

func runTN(t *testing.T, args ...string) string {
	t.Helper()
	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("tn %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

// isolate points the config lookup at an empty home and clears TN_ settings.
func isolate(t *testing.T) string {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TN_PASSWORD", "")
	return home
}

func TestIntegration(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=1 to run.")
	}
	isolate(t)
	tmpDir := t.TempDir()

	for _, ext := range []string{".ctb", ".ctd"} {
		t.Run("Lifecycle"+ext, func(t *testing.T) {
			doc := filepath.Join(tmpDir, "notes"+ext)
			runTN(t, "new", "--root", "Alpha", doc)
			runTN(t, "add", doc, "Beta", "--parent", "Alpha", "--text", "b")
			runTN(t, "add", doc, "Gamma", "--parent", "Alpha", "--text", "g")
			runTN(t, "rm", doc, "Gamma")
			if got := runTN(t, "add", doc, "Delta"); got != "3\n" {
				t.Errorf("Expected new node id 3, got %q", got)
			}
			for i := 0; i < 4; i++ {
				runTN(t, "set", doc, "Beta", "--tags", strings.Repeat("x", i+1))
			}

			for _, backup := range []string{doc + "~", doc + "~~", doc + "~~~"} {
				if _, err := os.Stat(backup); err != nil {
					t.Errorf("Expected backup %s: %v", backup, err)
				}
			}
			if _, err := os.Stat(doc + "~~~~"); err == nil {
				t.Errorf("Expected at most three backups")
			}
		})
	}
}

func TestEndToEnd(t *testing.T) {
	if os.Getenv("RUN_E2E_TESTS") == "" {
		t.Skip("Skipping E2E test. Set RUN_E2E_TESTS=1 to run.")
	}
	if _, err := exec.LookPath("7za"); err != nil {
		t.Skip("7za not installed")
	}
	home := isolate(t)

	configDir := filepath.Join(home, ".config", "treenote")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := "archive:\n  tool: 7za\nbackup:\n  count: 1\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	tmpDir := t.TempDir()
	plain := filepath.Join(tmpDir, "notes.ctb")
	runTN(t, "new", "--root", "Vault", plain)
	runTN(t, "add", plain, "secret", "--parent", "Vault", "--text", "42")

	sealed := filepath.Join(tmpDir, "notes.ctx")
	runTN(t, "convert", plain, sealed, "--new-password", "pw")
	if got := runTN(t, "cat", "-p", "pw", sealed, "secret"); got != "42\n" {
		t.Errorf("Expected secret text, got %q", got)
	}

	runTN(t, "set", "-p", "pw", sealed, "secret", "--text", "43")
	if got := runTN(t, "cat", "-p", "pw", sealed, "secret"); got != "43\n" {
		t.Errorf("Expected updated text, got %q", got)
	}
	if _, err := os.Stat(sealed + "~"); err != nil {
		t.Errorf("Expected backup of the encrypted file: %v", err)
	}

	t.Logf("Successfully completed end-to-end test")
}
