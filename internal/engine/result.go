// internal/engine/result.go
package engine

import "github.com/chemalabs/chema/internal/rag"

// Strategy names the answer path that produced a result.
type Strategy string

const (
	StrategyBalance      Strategy = "balance"
	StrategyBalanceError Strategy = "balance_error"
	StrategyRAG          Strategy = "rag"
	StrategyModelOnly    Strategy = "model_only"
	StrategyMultimodal   Strategy = "multimodal"
	StrategyError        Strategy = "error"
)

// AnswerResult is the terminal outcome of one answered question.
// FinalText is the exact concatenation of every fragment yielded while
// streaming, warnings included.
type AnswerResult struct {
	FinalText string
	Sources   []rag.RetrievedContext
	Strategy  Strategy
	TopScore  float64
}
