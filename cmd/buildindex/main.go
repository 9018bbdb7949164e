package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"doc-assistant-be/internal/config"
	"doc-assistant-be/internal/index"
	"doc-assistant-be/pkg/embedding"
)

// buildindex embeds a directory of text documents and writes the snapshot
// consumed by the in-memory index backend. Run it whenever the source
// documents change; the server never writes the index itself.

const defaultChunkChars = 1200

func main() {
	srcDir := flag.String("src", "documents", "directory of .txt/.md source files")
	outPath := flag.String("out", "index.json", "snapshot output path")
	chunkChars := flag.Int("chunk", defaultChunkChars, "max characters per chunk")
	flag.Parse()

	cfg := config.Load()

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	} else {
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel)
	}

	color.Cyan("Building index from %s (model: %s)", *srcDir, cfg.Ai.EmbeddingModel)

	files, err := collectSourceFiles(*srcDir)
	if err != nil {
		color.Red("Failed to scan %s: %v", *srcDir, err)
		os.Exit(1)
	}
	if len(files) == 0 {
		color.Red("No .txt or .md files found under %s", *srcDir)
		os.Exit(1)
	}

	var docs []index.Document
	dimension := 0

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			color.Red("Failed to read %s: %v", path, err)
			os.Exit(1)
		}

		chunks := chunkText(string(data), *chunkChars)
		base := filepath.Base(path)
		color.Yellow("%s: %d chunk(s)", base, len(chunks))

		for i, chunk := range chunks {
			resp, err := provider.Generate(chunk, embedding.TaskRetrievalDocument)
			if err != nil {
				color.Red("Embedding failed for %s chunk %d: %v", base, i, err)
				os.Exit(1)
			}
			vec := resp.Embedding.Values
			if dimension == 0 {
				dimension = len(vec)
			} else if len(vec) != dimension {
				color.Red("Dimension mismatch for %s chunk %d: got %d, expected %d", base, i, len(vec), dimension)
				os.Exit(1)
			}
			docs = append(docs, index.Document{
				ID:        fmt.Sprintf("%s#%d", base, i),
				Text:      chunk,
				Embedding: vec,
			})
		}
	}

	snap := index.Snapshot{
		Model:     cfg.Ai.EmbeddingModel,
		Dimension: dimension,
		Documents: docs,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		color.Red("Failed to encode snapshot: %v", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		color.Red("Failed to write %s: %v", *outPath, err)
		os.Exit(1)
	}

	color.Green("Wrote %d documents (dim %d) to %s", len(docs), dimension, *outPath)
}

func collectSourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".txt" || ext == ".md" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// chunkText splits on paragraph boundaries, packing paragraphs until maxChars
// is reached. A single oversized paragraph is hard-split.
func chunkText(text string, maxChars int) []string {
	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for len(para) > maxChars {
			flush()
			chunks = append(chunks, para[:maxChars])
			para = para[maxChars:]
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}
