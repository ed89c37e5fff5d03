package planexec

import "time"

// Defaults mirrored from the external configuration surface.
const (
	DefaultMaxTokens    = 4096
	DefaultModelTimeout = 60 * time.Second
	DefaultMaxRetries   = 3
	DefaultMaxContentLen = 32000

	DefaultStepDelay = 100 * time.Millisecond

	DefaultPlannerPromptName     = "plan_execute_planner"
	DefaultSynthesizerPromptName = "plan_execute_synthesizer"
)

// Config configures a single Run call.
type Config struct {
	MaxTokens    int
	ModelTimeout time.Duration
	MaxRetries   int

	// StepDelay is the inter-step pause the Executor applies for UX
	// smoothing between successive tool dispatches. Zero disables it.
	StepDelay time.Duration

	PlannerPromptName     string
	SynthesizerPromptName string
}

// DefaultConfig returns a Config with every field set to its documented
// default.
func DefaultConfig() Config {
	return Config{
		MaxTokens:             DefaultMaxTokens,
		ModelTimeout:          DefaultModelTimeout,
		MaxRetries:            DefaultMaxRetries,
		StepDelay:             DefaultStepDelay,
		PlannerPromptName:     DefaultPlannerPromptName,
		SynthesizerPromptName: DefaultSynthesizerPromptName,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.PlannerPromptName == "" {
		c.PlannerPromptName = DefaultPlannerPromptName
	}
	if c.SynthesizerPromptName == "" {
		c.SynthesizerPromptName = DefaultSynthesizerPromptName
	}
	return c
}
