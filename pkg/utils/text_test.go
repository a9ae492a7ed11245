package utils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("wage statement", 20); got != "wage statement" {
		t.Errorf("short input should pass through, got %q", got)
	}
	if got := Truncate("wage statement", 4); got != "wage..." {
		t.Errorf("got %q, want %q", got, "wage...")
	}
	if got := Truncate("wage", 0); got != "wage" {
		t.Errorf("maxLen 0 should pass through, got %q", got)
	}
	if got := Truncate("wage", -1); got != "wage" {
		t.Errorf("negative maxLen should pass through, got %q", got)
	}
}
