package config

import (
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
)

// Config controls lowering and the command line tools.
type Config struct {
	// Log is the tlog verbosity filter, e.g. "matches,orpat".
	Log string
	// Verify runs mir.Validate on every lowered function.
	Verify bool
	// StackSegment is the recursion depth after which match lowering
	// continues on a fresh goroutine stack.
	StackSegment int
	// StepLimit bounds the number of blocks the interpreter executes.
	StepLimit int
	// History is the REPL history file.
	History string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Verify:       true,
		StackSegment: 256,
		StepLimit:    1_000_000,
		History:      defaultHistory(),
	}
}

// FromEnv reads MATCHC_* variables on top of Default.
// The environment is reread on every call.
func FromEnv() Config {
	env.Load()

	c := Default()
	c.Log = env.Str("MATCHC_LOG", c.Log)
	if env.Has("MATCHC_VERIFY") {
		c.Verify = env.Bool("MATCHC_VERIFY")
	}
	c.StackSegment = env.Int("MATCHC_STACK_SEGMENT", c.StackSegment)
	c.StepLimit = env.Int("MATCHC_STEP_LIMIT", c.StepLimit)
	c.History = env.Str("MATCHC_HISTORY", c.History)
	return c.normalize()
}

func (c Config) normalize() Config {
	d := Default()
	if c.StackSegment <= 0 {
		c.StackSegment = d.StackSegment
	}
	if c.StepLimit <= 0 {
		c.StepLimit = d.StepLimit
	}
	return c
}

func defaultHistory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".matchc_history"
	}
	return filepath.Join(home, ".matchc_history")
}
