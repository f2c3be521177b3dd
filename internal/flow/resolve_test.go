package flow

import (
	"strings"
	"testing"
)

func resolveFixture() []*Status {
	return []*Status{
		{FlowInstanceID: "flow-1712000001-sess1"},
		{FlowInstanceID: "flow-1712000002-sess1"},
		{FlowInstanceID: "flow-1799000003-sess1"},
	}
}

func TestResolveInstanceIDExact(t *testing.T) {
	got, err := ResolveInstanceID(resolveFixture(), "flow-1712000001-sess1")
	if err != nil {
		t.Fatalf("exact: %v", err)
	}
	if got != "flow-1712000001-sess1" {
		t.Errorf("got %q", got)
	}
}

func TestResolveInstanceIDUniqueFragment(t *testing.T) {
	got, err := ResolveInstanceID(resolveFixture(), "1799")
	if err != nil {
		t.Fatalf("fragment: %v", err)
	}
	if got != "flow-1799000003-sess1" {
		t.Errorf("got %q", got)
	}
}

func TestResolveInstanceIDAmbiguous(t *testing.T) {
	_, err := ResolveInstanceID(resolveFixture(), "1712")
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	if !strings.Contains(err.Error(), "matches 2 flows") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(err.Error(), "disambiguate") {
		t.Errorf("error should tell the user what to do: %v", err)
	}
}

func TestResolveInstanceIDMisses(t *testing.T) {
	if _, err := ResolveInstanceID(resolveFixture(), "zzz"); err == nil {
		t.Error("expected no-match error")
	}
	if _, err := ResolveInstanceID(nil, "1712"); err == nil {
		t.Error("expected error with no instances")
	}
	if _, err := ResolveInstanceID(resolveFixture(), ""); err == nil {
		t.Error("expected error for empty input")
	}
}
