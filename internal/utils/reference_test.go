package utils

import (
	"strings"
	"testing"
)

func TestGenerateOrderReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := GenerateOrderReference()
		if !strings.HasPrefix(ref, "MG-") {
			t.Fatalf("expected the MG- prefix, got %q", ref)
		}
		if len(ref) != len("MG-")+8 {
			t.Fatalf("expected an 8-char suffix, got %q", ref)
		}
		if ref != strings.ToUpper(ref) {
			t.Errorf("expected uppercase, got %q", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference generated: %q", ref)
		}
		seen[ref] = true
	}
}
