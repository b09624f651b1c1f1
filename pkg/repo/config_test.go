package repo

import (
	"os"
	"testing"
)

func TestReadConfigDefaults(t *testing.T) {
	r := newTestRepo(t)

	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.Merge.Tiebreak != TiebreakBreadthFirst {
		t.Errorf("merge.tiebreak = %q, want %q", cfg.Merge.Tiebreak, TiebreakBreadthFirst)
	}
	if cfg.Bisect.Walk != BisectWalkFirstParent {
		t.Errorf("bisect.walk = %q, want %q", cfg.Bisect.Walk, BisectWalkFirstParent)
	}
}

func TestConfigRoundtrip(t *testing.T) {
	r := newTestRepo(t)

	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	cfg.User.Name = "alice"
	if err := r.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	back, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if back.User.Name != "alice" {
		t.Errorf("user.name = %q, want alice", back.User.Name)
	}
}

func TestReadConfigRejectsUnknownPolicy(t *testing.T) {
	r := newTestRepo(t)

	bad := "[merge]\ntiebreak = \"timestamp\"\n"
	if err := os.WriteFile(r.configPath(), []byte(bad), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := r.ReadConfig(); err == nil {
		t.Error("unknown merge.tiebreak must be rejected")
	}
}
