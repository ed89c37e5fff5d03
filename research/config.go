package research

// Defaults mirrored from the external configuration surface.
const (
	DefaultBatchSize     = 50
	DefaultNumWorkers    = 3
	DefaultMaxConcurrent = 1

	DefaultImageAnalyzerTool = "analyze_document_page"
	DefaultVideoAnalyzerTool = "analyze_video_chapter"
)

// Config configures one Process call.
type Config struct {
	// BatchSize is how many segments the Lead coordinator admits per round
	// before re-checking the termination predicate.
	BatchSize int

	// NumWorkers bounds the worker goroutines started for each batch (they
	// exit when the batch is done); MaxConcurrent (which may be lower, e.g.
	// for constrained environments) further bounds how many of them run at
	// once.
	NumWorkers    int
	MaxConcurrent int

	// CostLimitDollars is the budget should_continue checks between
	// batches. Zero disables the check.
	CostLimitDollars float64

	ImageAnalyzerTool string
	VideoAnalyzerTool string
}

// DefaultConfig returns a Config with every field set to its documented
// default.
func DefaultConfig() Config {
	return Config{
		BatchSize:         DefaultBatchSize,
		NumWorkers:        DefaultNumWorkers,
		MaxConcurrent:     DefaultMaxConcurrent,
		ImageAnalyzerTool: DefaultImageAnalyzerTool,
		VideoAnalyzerTool: DefaultVideoAnalyzerTool,
	}
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = DefaultNumWorkers
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.ImageAnalyzerTool == "" {
		c.ImageAnalyzerTool = DefaultImageAnalyzerTool
	}
	if c.VideoAnalyzerTool == "" {
		c.VideoAnalyzerTool = DefaultVideoAnalyzerTool
	}
	return c
}

// should_continue's predicate: halt once the running cost estimate reaches
// the configured budget. A zero limit means no budget is enforced.
func (c Config) shouldContinue(cost CostSummary) bool {
	if c.CostLimitDollars <= 0 {
		return true
	}
	return cost.DollarsEst < c.CostLimitDollars
}

// costPerSegmentDollars is a placeholder per-segment cost estimate; a real
// deployment would derive this from the analyzer tool's actual token usage
// once tools report it back through ToolResult.
const costPerSegmentDollars = 0.02

func batchCost(segmentCount int) CostSummary {
	return CostSummary{DollarsEst: float64(segmentCount) * costPerSegmentDollars}
}
