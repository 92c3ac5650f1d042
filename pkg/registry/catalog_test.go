package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
elections:
  - id: E1
    name: Student Council 2026
    status: active
    starts_at: 2026-08-01T00:00:00Z
    ends_at: 2026-12-31T23:59:59Z
    metadata:
      department: student-affairs
    voters:
      - mobile: "9999999999"
        display_name: Asha Verma
        eligible: true
        metadata:
          hall: north-campus
      - mobile: "9777777777"
        display_name: Meera Joshi
        eligible: false
`)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cat.Elections) != 1 {
		t.Fatalf("expected 1 election, got %d", len(cat.Elections))
	}

	election := cat.Elections[0]
	if election.ID != "E1" || election.Status != "active" {
		t.Fatalf("unexpected election: %+v", election)
	}
	if len(election.Voters) != 2 {
		t.Fatalf("expected 2 voters, got %d", len(election.Voters))
	}
	if !election.Voters[0].Eligible || election.Voters[1].Eligible {
		t.Fatal("eligibility flags not parsed")
	}
	if election.Metadata["department"] != "student-affairs" {
		t.Fatalf("election metadata not parsed: %+v", election.Metadata)
	}
	if election.Voters[0].Metadata["hall"] != "north-campus" {
		t.Fatalf("voter metadata not parsed: %+v", election.Voters[0].Metadata)
	}
	if election.Voters[1].Metadata != nil {
		t.Fatalf("expected no metadata for the second voter, got %+v", election.Voters[1].Metadata)
	}
}

func TestLoadCatalogRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty catalog", `elections: []`, "empty"},
		{
			"missing election id",
			`
elections:
  - name: No ID
    starts_at: 2026-08-01T00:00:00Z
    ends_at: 2026-12-31T23:59:59Z
`,
			"missing id",
		},
		{
			"empty voting window",
			`
elections:
  - id: E1
    starts_at: 2026-12-31T00:00:00Z
    ends_at: 2026-08-01T00:00:00Z
`,
			"empty voting window",
		},
		{"not yaml", `{{{`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCatalog(writeCatalog(t, tc.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.wantErr != "" && !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
