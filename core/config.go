// Package core wires the nine components (Tool Registry, MCP Health
// Checker, Conversation Store, Checkpoint Store, Prompt Registry, ReAct
// Engine, Plan-Execute-Respond Pipeline, deep-research Worker Pool, and
// Event Stream Multiplexer) behind the three entry points an HTTP layer
// drives a request through: Stream, Resume, and Reinit.
package core

import "time"

// Defaults mirrored from the process-wide configuration surface.
const (
	DefaultMaxTokens               = 4096
	DefaultModelTimeout            = 60 * time.Second
	DefaultMaxRetries              = 3
	DefaultSummarizationThreshold  = 12
	DefaultMaxConversationMessages = 10
	DefaultMaxThreads              = 100
	DefaultMaxMessagesPerThread    = 50
	DefaultMCPHealthCheckTimeout   = 10 * time.Second
	DefaultConversationTTL         = time.Hour
	DefaultRefImageMaxAttach       = 1
	DefaultRefImageMaxBase64Len    = 500000
	DefaultMaxContentLen           = 32000
	DefaultRerankScoreThreshold    = 0.05
	DefaultRerankTopN              = 5
	DefaultHybridSearchSize        = 15
)

// Config is the process-wide configuration surface; every field is
// optional and defaults as documented.
type Config struct {
	ModelID      string
	MaxTokens    int
	ModelTimeout time.Duration
	MaxRetries   int

	SummarizationThreshold  int
	MaxConversationMessages int
	MaxThreads              int
	MaxMessagesPerThread    int
	ConversationTTL         time.Duration

	MCPHealthCheckTimeout time.Duration

	RefImageMaxAttach    int
	RefImageMaxBase64Len int
	MaxContentLen        int

	RerankScoreThreshold float64
	RerankTopN           int
	HybridSearchSize     int
}

// DefaultConfig returns a Config with every field set to its documented
// default.
func DefaultConfig() Config {
	return Config{
		MaxTokens:               DefaultMaxTokens,
		ModelTimeout:            DefaultModelTimeout,
		MaxRetries:              DefaultMaxRetries,
		SummarizationThreshold:  DefaultSummarizationThreshold,
		MaxConversationMessages: DefaultMaxConversationMessages,
		MaxThreads:              DefaultMaxThreads,
		MaxMessagesPerThread:    DefaultMaxMessagesPerThread,
		ConversationTTL:         DefaultConversationTTL,
		MCPHealthCheckTimeout:   DefaultMCPHealthCheckTimeout,
		RefImageMaxAttach:       DefaultRefImageMaxAttach,
		RefImageMaxBase64Len:    DefaultRefImageMaxBase64Len,
		MaxContentLen:           DefaultMaxContentLen,
		RerankScoreThreshold:    DefaultRerankScoreThreshold,
		RerankTopN:              DefaultRerankTopN,
		HybridSearchSize:        DefaultHybridSearchSize,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = d.ModelTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.SummarizationThreshold <= 0 {
		c.SummarizationThreshold = d.SummarizationThreshold
	}
	if c.MaxConversationMessages <= 0 {
		c.MaxConversationMessages = d.MaxConversationMessages
	}
	if c.MaxThreads <= 0 {
		c.MaxThreads = d.MaxThreads
	}
	if c.MaxMessagesPerThread <= 0 {
		c.MaxMessagesPerThread = d.MaxMessagesPerThread
	}
	if c.ConversationTTL <= 0 {
		c.ConversationTTL = d.ConversationTTL
	}
	if c.MCPHealthCheckTimeout <= 0 {
		c.MCPHealthCheckTimeout = d.MCPHealthCheckTimeout
	}
	if c.RefImageMaxAttach <= 0 {
		c.RefImageMaxAttach = d.RefImageMaxAttach
	}
	if c.RefImageMaxBase64Len <= 0 {
		c.RefImageMaxBase64Len = d.RefImageMaxBase64Len
	}
	if c.MaxContentLen <= 0 {
		c.MaxContentLen = d.MaxContentLen
	}
	if c.RerankScoreThreshold <= 0 {
		c.RerankScoreThreshold = d.RerankScoreThreshold
	}
	if c.RerankTopN <= 0 {
		c.RerankTopN = d.RerankTopN
	}
	if c.HybridSearchSize <= 0 {
		c.HybridSearchSize = d.HybridSearchSize
	}
	return c
}
