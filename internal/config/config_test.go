package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"INKWELL_ADDR", "PORT", "INKWELL_STORE", "INKWELL_SECRET", "SECRET_KEY", "INKWELL_BCRYPT_COST", "SALT_ROUNDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Addr)
	}
	if cfg.Store != "sqlite" {
		t.Fatalf("expected sqlite store, got %q", cfg.Store)
	}
	if cfg.TokenAlg != "HS256" {
		t.Fatalf("expected HS256, got %q", cfg.TokenAlg)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("expected bcrypt cost 10, got %d", cfg.BcryptCost)
	}
	if cfg.CookieName != "token" {
		t.Fatalf("expected cookie name token, got %q", cfg.CookieName)
	}
}

func TestLoadLegacyNames(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("INKWELL_ADDR", "")
	t.Setenv("PORT", "3000")
	t.Setenv("INKWELL_SECRET", "")
	t.Setenv("SECRET_KEY", "legacy-secret")
	t.Setenv("INKWELL_BCRYPT_COST", "")
	t.Setenv("SALT_ROUNDS", "4")
	t.Setenv("INKWELL_SHUTDOWN_GRACE", "2s")

	cfg := Load()
	if cfg.Addr != ":3000" {
		t.Fatalf("expected :3000, got %q", cfg.Addr)
	}
	if cfg.TokenSecret != "legacy-secret" {
		t.Fatalf("expected legacy secret, got %q", cfg.TokenSecret)
	}
	if cfg.BcryptCost != 4 {
		t.Fatalf("expected bcrypt cost 4, got %d", cfg.BcryptCost)
	}
	if cfg.ShutdownGrace != 2*time.Second {
		t.Fatalf("expected 2s grace, got %s", cfg.ShutdownGrace)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("INKWELL_STORE", "")
	os.Unsetenv("INKWELL_STORE")
	t.Setenv("INKWELL_UPLOAD_DIR", "from-env")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("INKWELL_STORE=postgres\nINKWELL_UPLOAD_DIR=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg := Load()
	if cfg.Store != "postgres" {
		t.Fatalf("expected store from .env, got %q", cfg.Store)
	}
	if cfg.UploadDir != "from-env" {
		t.Fatalf("expected environment to win over .env, got %q", cfg.UploadDir)
	}
}

func TestCheckSecret(t *testing.T) {
	cases := []struct {
		store   string
		secret  string
		wantErr bool
	}{
		{"sqlite", DevTokenSecret, false},
		{"postgres", DevTokenSecret, true},
		{"mongo", DevTokenSecret, true},
		{"mongo", "real-secret", false},
	}
	for _, tc := range cases {
		err := Config{Store: tc.store, TokenSecret: tc.secret}.CheckSecret()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s/%s: expected error=%v, got %v", tc.store, tc.secret, tc.wantErr, err)
		}
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup, like testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
