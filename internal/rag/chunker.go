// internal/rag/chunker.go
package rag

import "strings"

// Chunk is one bounded span of section text produced by the chunker.
type Chunk struct {
	Offset int
	Text   string
	Tokens int
}

// ChunkText splits text into overlapping chunks using word counts as a
// proxy for tokens.
func ChunkText(text string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	for i := 0; i < len(words); i += step {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			Offset: i,
			Text:   strings.Join(words[i:end], " "),
			Tokens: end - i,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
