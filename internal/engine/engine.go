// internal/engine/engine.go
// Package engine routes a question through one of four answer paths
// (equation balancing, grounded generation, ungrounded fallback, or
// multimodal image questions) and drives the streaming generation loop,
// including rate-limit retries and per-fragment text normalization.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/imaging"
	"github.com/chemalabs/chema/internal/logging"
	"github.com/chemalabs/chema/internal/prompt"
	"github.com/chemalabs/chema/internal/providers"
	"github.com/chemalabs/chema/internal/rag"
	"github.com/chemalabs/chema/internal/stoich"
	"github.com/chemalabs/chema/internal/textnorm"
)

const (
	maxAttempts   = 5
	minRetryDelay = 2 * time.Second
	maxRetryDelay = 30 * time.Second
)

// transportFailureMessage is shown in place of an answer when generation
// fails for a reason the user cannot fix by waiting.
const transportFailureMessage = "Đã xảy ra lỗi, vui lòng thử lại."

// Request is one question to answer. Image carries raw photo bytes for the
// multimodal path; Mode selects the pedagogical register.
type Request struct {
	Question string
	Image    []byte
	Mode     prompt.Mode
}

// Engine answers questions. A nil retriever disables grounding, every
// text question then takes the ungrounded path.
type Engine struct {
	cfg       *appconfig.Config
	retriever *rag.Retriever
	generator providers.Generator
	norm      textnorm.Options

	sleep func(time.Duration)
}

// New constructs an Engine. Pass a nil retriever when index artifacts are
// unavailable.
func New(cfg *appconfig.Config, retriever *rag.Retriever, generator providers.Generator) *Engine {
	norm := textnorm.DefaultOptions()
	norm.ExamLayout = cfg.ExamLayout
	return &Engine{
		cfg:       cfg,
		retriever: retriever,
		generator: generator,
		norm:      norm,
		sleep:     time.Sleep,
	}
}

// Answer resolves one request, yielding display-ready fragments through
// onFragment as they arrive. It always returns a terminal AnswerResult;
// failures surface as visible text with StrategyError, never as a Go error
// across this boundary.
func (e *Engine) Answer(ctx context.Context, req Request, onFragment func(string) error) AnswerResult {
	if len(req.Image) == 0 && stoich.IsEquation(req.Question) {
		return e.answerBalance(req.Question, onFragment)
	}
	if len(req.Image) > 0 {
		return e.answerMultimodal(ctx, req, onFragment)
	}
	return e.answerText(ctx, req, onFragment)
}

// answerBalance is the deterministic fast path: no model call, no
// normalization, the balanced equation (or the fixed failure copy) is the
// whole answer.
func (e *Engine) answerBalance(question string, onFragment func(string) error) AnswerResult {
	balanced, err := stoich.Balance(question)
	if err != nil {
		logging.LogEvent("balance failed: %v", err)
		emit(onFragment, stoich.FailureMessage)
		return AnswerResult{FinalText: stoich.FailureMessage, Strategy: StrategyBalanceError}
	}
	emit(onFragment, balanced)
	return AnswerResult{FinalText: balanced, Strategy: StrategyBalance}
}

func (e *Engine) answerMultimodal(ctx context.Context, req Request, onFragment func(string) error) AnswerResult {
	attachment, err := imaging.Prepare(req.Image)
	if err != nil {
		logging.LogEvent("image preparation failed: %v", err)
		emit(onFragment, transportFailureMessage)
		return AnswerResult{FinalText: transportFailureMessage, Strategy: StrategyError}
	}

	parts := []providers.Part{
		{Text: prompt.BuildMultimodal(req.Question, req.Mode)},
		{InlineData: &providers.Blob{MIMEType: attachment.MIMEType, Data: attachment.Data}},
	}
	return e.generate(ctx, parts, AnswerResult{Strategy: StrategyMultimodal}, onFragment)
}

func (e *Engine) answerText(ctx context.Context, req Request, onFragment func(string) error) AnswerResult {
	var (
		contexts []rag.RetrievedContext
		topRaw   float64
	)
	if e.retriever != nil {
		contexts, topRaw = e.retriever.Retrieve(ctx, req.Question)
	}

	if e.retriever != nil && rag.HasReliableContext(contexts, e.retriever.Floor()) {
		parts := []providers.Part{{Text: prompt.BuildGrounded(req.Question, contexts, req.Mode)}}
		seed := AnswerResult{Strategy: StrategyRAG, Sources: contexts, TopScore: topRaw}
		return e.generate(ctx, parts, seed, onFragment)
	}

	parts := []providers.Part{{Text: prompt.BuildUngrounded(req.Question, req.Mode)}}
	seed := AnswerResult{Strategy: StrategyModelOnly, TopScore: topRaw}
	return e.generate(ctx, parts, seed, onFragment)
}

// generate drives the streaming loop. Rate limits are retried with the
// service-suggested delay (or exponential backoff) as long as nothing has
// been yielded yet; once fragments are flowing a failure truncates the
// answer instead of restarting it.
func (e *Engine) generate(ctx context.Context, parts []providers.Part, seed AnswerResult, onFragment func(string) error) AnswerResult {
	sreq := providers.StreamRequest{
		Model:  e.cfg.Model,
		System: prompt.SystemInstruction,
		Parts:  parts,
		Generation: providers.GenerationConfig{
			Temperature:     e.cfg.Temperature,
			TopP:            e.cfg.TopP,
			TopK:            e.cfg.SamplingTopK,
			MaxOutputTokens: e.cfg.MaxOutputTokens,
		},
	}

	var (
		final       strings.Builder
		finishRsn   string
		blockRsn    string
		displayErr  error
		yieldedSome bool
	)

	yield := func(text string) error {
		final.WriteString(text)
		if onFragment == nil {
			return nil
		}
		return onFragment(text)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := e.generator.Stream(ctx, sreq, providers.StreamCallbacks{
			OnChunk: func(chunk providers.StreamChunk) error {
				if chunk.BlockReason != "" {
					blockRsn = chunk.BlockReason
				}
				if chunk.FinishReason != "" {
					finishRsn = chunk.FinishReason
				}
				if chunk.Text == "" {
					return nil
				}
				yieldedSome = true
				if err := yield(textnorm.Clean(chunk.Text, e.norm)); err != nil {
					displayErr = err
					return err
				}
				return nil
			},
		})
		if err == nil {
			break
		}
		if displayErr != nil {
			// The display side refused a fragment; return what was
			// delivered so far.
			seed.FinalText = final.String()
			return seed
		}

		var rle *providers.RateLimitError
		if errors.As(err, &rle) && !yieldedSome && attempt < maxAttempts-1 {
			delay := retryDelay(rle, attempt)
			logging.LogEvent("rate limited, retrying in %s (attempt %d/%d)", delay, attempt+1, maxAttempts)
			e.sleep(delay)
			continue
		}

		logging.LogEvent("generation failed: %v", err)
		if !yieldedSome {
			yield(transportFailureMessage)
			seed.Strategy = StrategyError
			seed.Sources = nil
		}
		seed.FinalText = final.String()
		return seed
	}

	if !yieldedSome && blockRsn != "" {
		yield("⚠️ Câu trả lời bị chặn bởi bộ lọc an toàn (" + blockRsn + ").")
	} else if finishRsn != "" && finishRsn != "STOP" {
		yield("\n\n⚠️ Câu trả lời có thể chưa đầy đủ (lý do: " + finishRsn + ").")
	}

	seed.FinalText = final.String()
	return seed
}

// retryDelay prefers the service-suggested wait with a 2s floor; without a
// suggestion it backs off exponentially, capped at 30s.
func retryDelay(rle *providers.RateLimitError, attempt int) time.Duration {
	if rle.RetryAfter > 0 {
		if rle.RetryAfter < minRetryDelay {
			return minRetryDelay
		}
		return rle.RetryAfter
	}
	delay := time.Duration(1<<uint(attempt+1)) * time.Second
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func emit(onFragment func(string) error, text string) {
	if onFragment != nil {
		_ = onFragment(text)
	}
}
