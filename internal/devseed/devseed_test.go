package devseed_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ratio1/trpc_client_go/internal/devseed"
)

func TestLoadProcedureSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	content := `{"procedures":[
		{"path":" greeting ","data":"hello"},
		{"path":"user.byId","error":{"code":"NOT_FOUND","message":"no user"}}
	]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	entries, err := devseed.LoadProcedureSeed(path)
	if err != nil {
		t.Fatalf("LoadProcedureSeed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Path != "greeting" || string(entries[0].Data) != `"hello"` {
		t.Fatalf("unexpected first entry: %#v", entries[0])
	}
	if entries[1].Error == nil || entries[1].Error.Code != "NOT_FOUND" {
		t.Fatalf("unexpected second entry: %#v", entries[1])
	}
}

func TestParseProcedureSeedArray(t *testing.T) {
	entries, err := devseed.ParseProcedureSeed([]byte(`[{"path":"a","data":1}]`))
	if err != nil {
		t.Fatalf("ParseProcedureSeed: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "a" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestParseProcedureSeedRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing path": `[{"data":1}]`,
		"duplicate":    `[{"path":"a"},{"path":"a"}]`,
		"malformed":    `[{"path":`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := devseed.ParseProcedureSeed([]byte(raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadProcedureSeedMissingFile(t *testing.T) {
	if _, err := devseed.LoadProcedureSeed(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
