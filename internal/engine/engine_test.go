// internal/engine/engine_test.go
package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/providers"
	"github.com/chemalabs/chema/internal/rag"
)

// scriptedGenerator replays one scripted behavior per Stream call.
type scriptedGenerator struct {
	script []func(providers.StreamCallbacks) error
	reqs   []providers.StreamRequest
}

func (g *scriptedGenerator) Stream(ctx context.Context, req providers.StreamRequest, cb providers.StreamCallbacks) error {
	g.reqs = append(g.reqs, req)
	if len(g.reqs) > len(g.script) {
		return errors.New("unexpected extra stream call")
	}
	return g.script[len(g.reqs)-1](cb)
}

func chunks(texts ...string) func(providers.StreamCallbacks) error {
	return func(cb providers.StreamCallbacks) error {
		for _, t := range texts {
			if err := cb.OnChunk(providers.StreamChunk{Text: t}); err != nil {
				return err
			}
		}
		return cb.OnChunk(providers.StreamChunk{FinishReason: "STOP"})
	}
}

type stubEmbedder struct{ vec []float32 }

func (s stubEmbedder) EmbedQuery(ctx context.Context, text string) []float32 { return s.vec }

func testEngine(t *testing.T, gen providers.Generator, withRetriever bool) (*Engine, *[]time.Duration) {
	t.Helper()
	cfg := appconfig.Default()
	cfg.APIKey = "k"

	var retriever *rag.Retriever
	if withRetriever {
		index, err := rag.NewIndex([][]float32{{1, 0}, {0, 1}})
		if err != nil {
			t.Fatalf("NewIndex error: %v", err)
		}
		arts := &rag.Artifacts{
			Index: index,
			Metas: []rag.ChunkMeta{{ID: "a:0", Source: "a.md"}, {ID: "b:0", Source: "b.md"}},
			Texts: map[string]string{"a:0": "este là hợp chất hữu cơ", "b:0": "polime"},
		}
		retriever, err = rag.NewRetriever(stubEmbedder{vec: []float32{1, 0}}, arts, 2, 0.32)
		if err != nil {
			t.Fatalf("NewRetriever error: %v", err)
		}
	}

	e := New(&cfg, retriever, gen)
	var sleeps []time.Duration
	e.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return e, &sleeps
}

func collect(frags *[]string) func(string) error {
	return func(s string) error {
		*frags = append(*frags, s)
		return nil
	}
}

func TestAnswerBalanceFastPath(t *testing.T) {
	gen := &scriptedGenerator{}
	e, _ := testEngine(t, gen, true)

	var frags []string
	res := e.Answer(context.Background(), Request{Question: "Fe + O2 -> Fe2O3"}, collect(&frags))

	if res.Strategy != StrategyBalance {
		t.Fatalf("expected balance strategy, got %q", res.Strategy)
	}
	if res.FinalText != "Cân bằng: 4 Fe + 3 O2 -> 2 Fe2O3" {
		t.Fatalf("unexpected answer: %q", res.FinalText)
	}
	if len(gen.reqs) != 0 {
		t.Fatal("balance path must not call the generator")
	}
	if strings.Join(frags, "") != res.FinalText {
		t.Fatalf("fragments %v do not reassemble FinalText %q", frags, res.FinalText)
	}
}

func TestAnswerBalanceFailure(t *testing.T) {
	e, _ := testEngine(t, &scriptedGenerator{}, true)

	res := e.Answer(context.Background(), Request{Question: "xin chào -> bạn"}, nil)
	if res.Strategy != StrategyBalanceError {
		t.Fatalf("expected balance_error, got %q", res.Strategy)
	}
	if !strings.Contains(res.FinalText, "Chưa cân bằng được") {
		t.Fatalf("expected fixed failure copy, got %q", res.FinalText)
	}
}

func TestAnswerGroundedPath(t *testing.T) {
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{chunks("Este ", "là hợp chất.")}}
	e, _ := testEngine(t, gen, true)

	var frags []string
	res := e.Answer(context.Background(), Request{Question: "este là gì?"}, collect(&frags))

	if res.Strategy != StrategyRAG {
		t.Fatalf("expected rag strategy, got %q", res.Strategy)
	}
	if len(res.Sources) == 0 || res.Sources[0].ID != "a:0" {
		t.Fatalf("expected grounded sources, got %+v", res.Sources)
	}
	if res.TopScore <= 0.9 {
		t.Fatalf("expected raw top score, got %v", res.TopScore)
	}
	if res.FinalText != strings.Join(frags, "") {
		t.Fatalf("FinalText %q is not the fragment concatenation %v", res.FinalText, frags)
	}

	if len(gen.reqs) != 1 {
		t.Fatalf("expected one stream call, got %d", len(gen.reqs))
	}
	sent := gen.reqs[0]
	if sent.System == "" {
		t.Fatal("expected system instruction on request")
	}
	if !strings.Contains(sent.Parts[0].Text, "este là hợp chất hữu cơ") {
		t.Fatal("expected retrieved context embedded in prompt")
	}
}

func TestAnswerUngroundedWithoutRetriever(t *testing.T) {
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{chunks("trả lời")}}
	e, _ := testEngine(t, gen, false)

	res := e.Answer(context.Background(), Request{Question: "este là gì?"}, nil)
	if res.Strategy != StrategyModelOnly {
		t.Fatalf("expected model_only, got %q", res.Strategy)
	}
	if res.TopScore != 0 || len(res.Sources) != 0 {
		t.Fatalf("ungrounded result must carry no sources: %+v", res)
	}
	if !strings.Contains(gen.reqs[0].Parts[0].Text, "Không có tài liệu tham khảo") {
		t.Fatal("expected ungrounded prompt")
	}
}

func TestAnswerRetriesRateLimitsBeforeFirstFragment(t *testing.T) {
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{
		func(providers.StreamCallbacks) error {
			return &providers.RateLimitError{RetryAfter: 7 * time.Second}
		},
		func(providers.StreamCallbacks) error {
			return &providers.RateLimitError{}
		},
		chunks("ok"),
	}}
	e, sleeps := testEngine(t, gen, false)

	res := e.Answer(context.Background(), Request{Question: "hỏi"}, nil)
	if res.FinalText != "ok" || res.Strategy != StrategyModelOnly {
		t.Fatalf("unexpected result after retries: %+v", res)
	}
	if len(*sleeps) != 2 || (*sleeps)[0] != 7*time.Second || (*sleeps)[1] != 4*time.Second {
		t.Fatalf("unexpected retry delays: %v", *sleeps)
	}
}

func TestAnswerDoesNotRetryAfterFragments(t *testing.T) {
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{
		func(cb providers.StreamCallbacks) error {
			if err := cb.OnChunk(providers.StreamChunk{Text: "một phần"}); err != nil {
				return err
			}
			return &providers.RateLimitError{RetryAfter: time.Second}
		},
	}}
	e, sleeps := testEngine(t, gen, false)

	res := e.Answer(context.Background(), Request{Question: "hỏi"}, nil)
	if len(*sleeps) != 0 {
		t.Fatalf("mid-stream failure must not sleep: %v", *sleeps)
	}
	if res.FinalText != "một phần" {
		t.Fatalf("expected truncated answer preserved, got %q", res.FinalText)
	}
	if res.Strategy != StrategyModelOnly {
		t.Fatalf("delivered fragments keep their strategy, got %q", res.Strategy)
	}
}

func TestAnswerGivesUpAfterMaxAttempts(t *testing.T) {
	throttle := func(providers.StreamCallbacks) error {
		return &providers.RateLimitError{}
	}
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{
		throttle, throttle, throttle, throttle, throttle,
	}}
	e, sleeps := testEngine(t, gen, false)

	res := e.Answer(context.Background(), Request{Question: "hỏi"}, nil)
	if res.Strategy != StrategyError {
		t.Fatalf("expected error strategy, got %q", res.Strategy)
	}
	if res.FinalText != "Đã xảy ra lỗi, vui lòng thử lại." {
		t.Fatalf("unexpected failure copy: %q", res.FinalText)
	}
	if len(*sleeps) != 4 {
		t.Fatalf("expected 4 sleeps for 5 attempts, got %d", len(*sleeps))
	}
}

func TestAnswerTransportError(t *testing.T) {
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{
		func(providers.StreamCallbacks) error { return errors.New("connection reset") },
	}}
	e, sleeps := testEngine(t, gen, false)

	res := e.Answer(context.Background(), Request{Question: "hỏi"}, nil)
	if res.Strategy != StrategyError || len(*sleeps) != 0 {
		t.Fatalf("transport errors must fail immediately: %+v, sleeps %v", res, *sleeps)
	}
}

func TestAnswerBlockedPrompt(t *testing.T) {
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{
		func(cb providers.StreamCallbacks) error {
			return cb.OnChunk(providers.StreamChunk{BlockReason: "SAFETY"})
		},
	}}
	e, _ := testEngine(t, gen, false)

	res := e.Answer(context.Background(), Request{Question: "hỏi"}, nil)
	if !strings.Contains(res.FinalText, "SAFETY") || !strings.Contains(res.FinalText, "⚠️") {
		t.Fatalf("expected visible block warning, got %q", res.FinalText)
	}
	if res.Strategy != StrategyModelOnly {
		t.Fatalf("block keeps the answer path strategy, got %q", res.Strategy)
	}
}

func TestAnswerAbnormalFinishAppendsWarning(t *testing.T) {
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{
		func(cb providers.StreamCallbacks) error {
			if err := cb.OnChunk(providers.StreamChunk{Text: "một phần"}); err != nil {
				return err
			}
			return cb.OnChunk(providers.StreamChunk{FinishReason: "MAX_TOKENS"})
		},
	}}
	e, _ := testEngine(t, gen, false)

	res := e.Answer(context.Background(), Request{Question: "hỏi"}, nil)
	if !strings.HasPrefix(res.FinalText, "một phần") || !strings.Contains(res.FinalText, "MAX_TOKENS") {
		t.Fatalf("expected truncation warning after partial answer, got %q", res.FinalText)
	}
}

func TestAnswerMultimodal(t *testing.T) {
	gen := &scriptedGenerator{script: []func(providers.StreamCallbacks) error{chunks("đề bài là...")}}
	e, _ := testEngine(t, gen, true)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	res := e.Answer(context.Background(), Request{Question: "giải giúp mình", Image: buf.Bytes()}, nil)
	if res.Strategy != StrategyMultimodal {
		t.Fatalf("expected multimodal strategy, got %q", res.Strategy)
	}
	if len(res.Sources) != 0 {
		t.Fatal("image questions must not carry retrieval sources")
	}

	parts := gen.reqs[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/jpeg" {
		t.Fatalf("expected text+image parts, got %+v", parts)
	}
}

func TestRetryDelayBounds(t *testing.T) {
	if d := retryDelay(&providers.RateLimitError{RetryAfter: 500 * time.Millisecond}, 0); d != minRetryDelay {
		t.Fatalf("expected floor %s, got %s", minRetryDelay, d)
	}
	if d := retryDelay(&providers.RateLimitError{}, 10); d != maxRetryDelay {
		t.Fatalf("expected cap %s, got %s", maxRetryDelay, d)
	}
	if d := retryDelay(&providers.RateLimitError{RetryAfter: time.Minute}, 0); d != time.Minute {
		t.Fatalf("suggested delay above floor must win, got %s", d)
	}
}
