package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		contents string
		check    func(t *testing.T, cfg *cliConfig)
		wantErr  string
	}{
		{
			name:     "relative database resolves next to the file",
			contents: "database = \"data/rights.db\"\n",
			check: func(t *testing.T, cfg *cliConfig) {
				if want := filepath.Join(dir, "data", "rights.db"); cfg.Database != want {
					t.Errorf("Database = %q, want %q", cfg.Database, want)
				}
				if cfg.Admin != "admin" {
					t.Errorf("Admin = %q, want default", cfg.Admin)
				}
			},
		},
		{
			name:     "overrides",
			contents: "database = \"/var/lib/rights.db\"\nadmin = \"ops\"\npolicies = [\"rental\"]\nenrollment_fee = 5\n",
			check: func(t *testing.T, cfg *cliConfig) {
				if cfg.Database != "/var/lib/rights.db" || cfg.Admin != "ops" || cfg.EnrollmentFee != 5 {
					t.Errorf("cfg = %+v", cfg)
				}
				if !slices.Equal(cfg.Policies, []string{"rental"}) {
					t.Errorf("Policies = %v", cfg.Policies)
				}
			},
		},
		{
			name:     "unknown key",
			contents: "databse = \"x.db\"\n",
			wantErr:  "parse config",
		},
		{
			name:     "empty database",
			contents: "database = \"  \"\n",
			wantErr:  "database must not be empty",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "config"+string(rune('a'+i))+".toml")
			if err := os.WriteFile(path, []byte(tt.contents), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			cfg, err := loadConfig(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadConfigMissingDefaultPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Database != "rights.db" {
		t.Errorf("Database = %q, want rights.db", cfg.Database)
	}
}

func TestConfigInitWritesLoadableFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	cmd := newRootCommand()
	cmd.SetOut(&strings.Builder{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	cfg, err := loadConfig(target)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Vault != "vault" || len(cfg.Policies) != 3 {
		t.Errorf("cfg = %+v", cfg)
	}

	cmd = newRootCommand()
	cmd.SetOut(&strings.Builder{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestExtensionConfigRejectsUnknownPolicy(t *testing.T) {
	cfg := defaultCLIConfig()
	cfg.Policies = []string{"lease"}

	if _, err := engineOptionsFor(&cfg); err == nil {
		t.Error("expected error for unknown policy")
	}
}
