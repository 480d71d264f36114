// Package devseed loads JSON seed files used to populate the in-process
// router in mock mode and in the sandbox server.
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SeedError is the error a seeded procedure answers with.
type SeedError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProcedureSeedEntry describes one static query procedure. Exactly one of
// Data and Error is expected; an entry with neither answers null.
type ProcedureSeedEntry struct {
	Path  string          `json:"path"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *SeedError      `json:"error,omitempty"`
}

// LoadProcedureSeed reads a seed file. The file holds either a JSON array of
// entries or an object with a "procedures" array.
func LoadProcedureSeed(path string) ([]ProcedureSeedEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return ParseProcedureSeed(raw)
}

// ParseProcedureSeed decodes seed content already in memory.
func ParseProcedureSeed(raw []byte) ([]ProcedureSeedEntry, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, nil
	}

	var entries []ProcedureSeedEntry
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return nil, fmt.Errorf("devseed: decode seed: %w", err)
		}
	} else {
		var doc struct {
			Procedures []ProcedureSeedEntry `json:"procedures"`
		}
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return nil, fmt.Errorf("devseed: decode seed: %w", err)
		}
		entries = doc.Procedures
	}

	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		p := strings.TrimSpace(e.Path)
		if p == "" {
			return nil, fmt.Errorf("devseed: entry %d missing path", i)
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("devseed: duplicate path %q", p)
		}
		seen[p] = struct{}{}
		entries[i].Path = p
	}
	return entries, nil
}
