package credentials

import (
	"strings"
	"testing"
)

func TestGenerateDisplayName(t *testing.T) {
	adj := make(map[string]bool)
	for _, a := range adjectives {
		adj[a] = true
	}
	noun := make(map[string]bool)
	for _, n := range nouns {
		noun[n] = true
	}

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		name, err := GenerateDisplayName()
		if err != nil {
			t.Fatalf("GenerateDisplayName() error = %v", err)
		}
		parts := strings.Split(name, "-")
		if len(parts) != 2 || !adj[parts[0]] || !noun[parts[1]] {
			t.Fatalf("GenerateDisplayName() = %q, want adjective-noun", name)
		}
		seen[name] = true
	}
	if len(seen) < 2 {
		t.Errorf("GenerateDisplayName() produced %d distinct names in 200 tries", len(seen))
	}
}

func TestRandomElementEmpty(t *testing.T) {
	got, err := randomElement(nil)
	if err != nil || got != "" {
		t.Errorf("randomElement(nil) = %q, %v", got, err)
	}
}
