package extension_test

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/xraph/rights/extension"
	"github.com/xraph/rights/store/sqlite"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := extension.MergeWithDefaults(extension.Config{Admin: "ops"})

	if cfg.Admin != "ops" {
		t.Errorf("Admin = %q, want ops", cfg.Admin)
	}
	if cfg.Treasury != "treasury" || cfg.Vault != "vault" {
		t.Errorf("accounts = %q/%q", cfg.Treasury, cfg.Vault)
	}
	if cfg.EnrollmentCurrency != "native" {
		t.Errorf("EnrollmentCurrency = %q", cfg.EnrollmentCurrency)
	}
	if !slices.Equal(cfg.Policies, []string{"subscription", "rental", "gated"}) {
		t.Errorf("Policies = %v", cfg.Policies)
	}
}

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name         string
		file, code   extension.Config
		wantAdmin    string
		wantFee      uint64
		wantCurrency string
		wantMigrate  bool
		wantPolicies []string
	}{
		{
			name:         "file wins",
			file:         extension.Config{Admin: "file-admin", EnrollmentFee: 5, EnrollmentCurrency: "usd"},
			code:         extension.Config{Admin: "code-admin", EnrollmentFee: 9, EnrollmentCurrency: "eur"},
			wantAdmin:    "file-admin",
			wantFee:      5,
			wantCurrency: "usd",
			wantPolicies: []string{"subscription", "rental", "gated"},
		},
		{
			name:         "code fills gaps",
			file:         extension.Config{Policies: []string{"rental"}},
			code:         extension.Config{Admin: "code-admin", EnrollmentFee: 9, EnrollmentCurrency: "eur", DisableMigrate: true},
			wantAdmin:    "code-admin",
			wantFee:      9,
			wantCurrency: "eur",
			wantMigrate:  true,
			wantPolicies: []string{"rental"},
		},
		{
			name:         "defaults last",
			wantAdmin:    "admin",
			wantCurrency: "native",
			wantPolicies: []string{"subscription", "rental", "gated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extension.MergeConfigurations(tt.file, tt.code)
			if got.Admin != tt.wantAdmin {
				t.Errorf("Admin = %q, want %q", got.Admin, tt.wantAdmin)
			}
			if got.EnrollmentFee != tt.wantFee || got.EnrollmentCurrency != tt.wantCurrency {
				t.Errorf("fee = %d %s, want %d %s", got.EnrollmentFee, got.EnrollmentCurrency, tt.wantFee, tt.wantCurrency)
			}
			if got.DisableMigrate != tt.wantMigrate {
				t.Errorf("DisableMigrate = %v, want %v", got.DisableMigrate, tt.wantMigrate)
			}
			if !slices.Equal(got.Policies, tt.wantPolicies) {
				t.Errorf("Policies = %v, want %v", got.Policies, tt.wantPolicies)
			}
		})
	}
}

func TestStoreForSQLite(t *testing.T) {
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "rights.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := extension.StoreFor(s.DB())
	if err != nil {
		t.Fatalf("StoreFor: %v", err)
	}
	if _, ok := got.(*sqlite.Store); !ok {
		t.Errorf("StoreFor = %T, want *sqlite.Store", got)
	}
}

func TestBuiltinPolicies(t *testing.T) {
	for _, name := range extension.DefaultConfig().Policies {
		if _, ok := extension.Policies[name]; !ok {
			t.Errorf("no factory for default policy %q", name)
		}
	}
}
