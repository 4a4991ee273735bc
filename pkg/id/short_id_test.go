package id

import "testing"

func TestScenarioTagIsUnique(t *testing.T) {
	a := ScenarioTag()
	b := ScenarioTag()
	if a == "" || b == "" {
		t.Fatal("ScenarioTag() returned empty string")
	}
	if a == b {
		t.Error("two ScenarioTag() calls returned the same value")
	}
}
