package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitWritesFile(t *testing.T) {
	restore := Replace(nil)
	t.Cleanup(restore)

	path := filepath.Join(t.TempDir(), "nested", "battle.log")
	if err := Init(Options{Level: "debug", Format: "json", ToFile: true, File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("battle_test_line", zap.Int64("battle_id", 7))
	_ = L().Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "battle_test_line") || !strings.Contains(string(b), `"battle_id":7`) {
		t.Fatalf("unexpected log contents: %s", b)
	}
}

func TestReplaceRestores(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := Replace(zap.New(core))
	L().Info("battle_replaced")
	restore()
	L().Info("battle_after_restore")
	if logs.Len() != 1 {
		t.Fatalf("expected exactly one observed entry, got %d", logs.Len())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "debug", "WARNING": "warn", "": "info", "bogus": "info"}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q)=%s want %s", in, got, want)
		}
	}
}
