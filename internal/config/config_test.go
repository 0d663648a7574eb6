package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
)

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()

	homeDir := filepath.Join(tempDir, "home")
	if err := os.MkdirAll(filepath.Join(homeDir, ".hexcrack"), 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	homeConfig := []byte(`window:
  groups: 4
server:
  addr: 0.0.0.0:1111
  max_conns: 8
recipes:
  dir: /home-recipes
`)
	if err := os.WriteFile(filepath.Join(homeDir, ".hexcrack", "config.yml"), homeConfig, 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}

	workDir := filepath.Join(tempDir, "work")
	if err := os.Mkdir(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work: %v", err)
	}
	localConfig := []byte(`hex:
  trim: false
server:
  addr: 127.0.0.1:6500
`)
	if err := os.WriteFile(filepath.Join(workDir, "hexcrack.yml"), localConfig, 0o644); err != nil {
		t.Fatalf("write local config: %v", err)
	}

	t.Setenv("HEXCRACK_LEGACY_HEX", "true")
	t.Setenv("HEXCRACK_UPDATE_CHANNEL", "beta")
	t.Chdir(workDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Window.Groups != 4 {
		t.Fatalf("expected home window groups, got %d", cfg.Window.Groups)
	}
	if cfg.Server.Addr != "127.0.0.1:6500" {
		t.Fatalf("expected local addr override, got %q", cfg.Server.Addr)
	}
	if cfg.Server.MaxConns != 8 {
		t.Fatalf("expected home max conns, got %d", cfg.Server.MaxConns)
	}
	if cfg.Hex.Trim {
		t.Fatalf("expected trim to be disabled by local config")
	}
	if !cfg.Hex.Legacy {
		t.Fatalf("expected env to enable legacy hex")
	}
	if cfg.Recipes.Dir != "/home-recipes" {
		t.Fatalf("unexpected recipes dir %q", cfg.Recipes.Dir)
	}
	if cfg.Updater.Channel != "beta" {
		t.Fatalf("expected env channel, got %q", cfg.Updater.Channel)
	}
	if cfg.Updater.BaseURL != Default().Updater.BaseURL {
		t.Fatalf("expected default update url, got %q", cfg.Updater.BaseURL)
	}
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.WindowSize() != hexcodec.DefaultWindowSize {
		t.Fatalf("expected default window size %d, got %d", hexcodec.DefaultWindowSize, cfg.WindowSize())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workDir := t.TempDir()
	t.Chdir(workDir)

	t.Setenv("HEXCRACK_WINDOW_GROUPS", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected non-numeric window groups to fail")
	}

	t.Setenv("HEXCRACK_WINDOW_GROUPS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected zero window groups to fail validation")
	}

	t.Setenv("HEXCRACK_WINDOW_GROUPS", "")
	if err := os.WriteFile(filepath.Join(workDir, "hexcrack.yml"), []byte("window: [1, 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected malformed yaml to fail")
	}
}

func TestLoadRejectsMalformedBooleans(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	for _, key := range []string{"HEXCRACK_TRIM", "HEXCRACK_LEGACY_HEX"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "flase")
			_, err := Load()
			if err == nil {
				t.Fatalf("expected %s=flase to fail", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error to name %s, got %v", key, err)
			}

			t.Setenv(key, "0")
			if _, err := Load(); err != nil {
				t.Fatalf("expected %s=0 to load: %v", key, err)
			}
		})
	}
}

func TestDeprecatedServerEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var warnings []string
	restore := setWarnLoggerForTesting(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})
	defer restore()

	t.Setenv("HEXCRACK_SERVER", "10.0.0.1:9000")
	for i := 0; i < 2; i++ {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Server.Addr != "10.0.0.1:9000" {
			t.Fatalf("expected legacy addr, got %q", cfg.Server.Addr)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one deprecation warning, got %v", warnings)
	}

	t.Setenv("HEXCRACK_ADDR", "10.0.0.2:9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "10.0.0.2:9000" {
		t.Fatalf("expected new key to win, got %q", cfg.Server.Addr)
	}
}

func TestCodecOptions(t *testing.T) {
	cfg := Default()
	cfg.Window.Groups = 2
	opts := cfg.CodecOptions()
	if opts.WindowSize != 12 {
		t.Fatalf("expected window size 12, got %d", opts.WindowSize)
	}
	if got := opts.Trim([]byte("4d61\n")); got != 4 {
		t.Fatalf("expected trimming options, got length %d", got)
	}
	if _, err := opts.Nibble('g'); err == nil {
		t.Fatal("expected strict decoder by default")
	}

	cfg.Hex.Legacy = true
	cfg.Hex.Trim = false
	opts = cfg.CodecOptions()
	if got := opts.Trim([]byte("4d61\n")); got != 5 {
		t.Fatalf("expected trimming disabled, got length %d", got)
	}
	if _, err := opts.Nibble('g'); err != nil {
		t.Fatalf("expected legacy decoder to accept g: %v", err)
	}
}
