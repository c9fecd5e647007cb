package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("MATCHC_VERIFY", "")
	t.Setenv("MATCHC_STACK_SEGMENT", "")
	c := FromEnv()
	if c.StackSegment != 256 {
		t.Fatalf("stack segment = %d, want 256", c.StackSegment)
	}
	if c.StepLimit != 1_000_000 {
		t.Fatalf("step limit = %d", c.StepLimit)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MATCHC_VERIFY", "false")
	t.Setenv("MATCHC_STACK_SEGMENT", "8")
	t.Setenv("MATCHC_STEP_LIMIT", "-3")
	t.Setenv("MATCHC_LOG", "matches")

	c := FromEnv()
	if c.Verify {
		t.Fatalf("verify should be disabled")
	}
	if c.StackSegment != 8 {
		t.Fatalf("stack segment = %d, want 8", c.StackSegment)
	}
	if c.StepLimit != 1_000_000 {
		t.Fatalf("negative step limit should fall back to the default, got %d", c.StepLimit)
	}
	if c.Log != "matches" {
		t.Fatalf("log = %q", c.Log)
	}
}

func TestFromEnvRereads(t *testing.T) {
	t.Setenv("MATCHC_STEP_LIMIT", "10")
	if c := FromEnv(); c.StepLimit != 10 {
		t.Fatalf("step limit = %d, want 10", c.StepLimit)
	}

	t.Setenv("MATCHC_STEP_LIMIT", "20")
	if c := FromEnv(); c.StepLimit != 20 {
		t.Fatalf("step limit = %d after changing the environment, want 20", c.StepLimit)
	}
}
