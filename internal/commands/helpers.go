// internal/commands/helpers.go
package chema

import (
	"github.com/fatih/color"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/engine"
	"github.com/chemalabs/chema/internal/logging"
	"github.com/chemalabs/chema/internal/providers/gemini"
	"github.com/chemalabs/chema/internal/rag"
)

// buildEngine wires the retriever and generator for the answer commands.
// Missing index artifacts degrade to ungrounded answers instead of
// failing: the tutor stays usable before the first ingest.
func buildEngine(cfg *appconfig.Config) *engine.Engine {
	embedder := rag.NewGeminiEmbedder(cfg.BaseURL, cfg.APIKey, cfg.EmbedModel, cfg.RequestTimeout())

	var retriever *rag.Retriever
	arts, err := rag.LoadArtifacts(cfg.IndexPath, cfg.MetaPath, cfg.ChunksPath)
	if err != nil {
		logging.LogEvent("index artifacts unavailable, answering ungrounded: %v", err)
		color.Yellow("Không tìm thấy chỉ mục tài liệu. Chạy 'chema ingest' và 'chema index' để bật tra cứu.")
	} else {
		retriever, err = rag.NewRetriever(embedder, arts, cfg.TopK, cfg.MinSimilarity)
		if err != nil {
			logging.LogEvent("retriever construction failed: %v", err)
			retriever = nil
		}
	}

	return engine.New(cfg, retriever, gemini.New(cfg))
}
