package extract

import "strings"

// ChunkConfig controls content chunking after extraction.
type ChunkConfig struct {
	Enabled bool
	// MaxCharacters caps the size of one chunk in bytes of content.
	MaxCharacters int
	// Overlap is how many trailing bytes of a chunk reappear at the start
	// of the next one, aligned to a whitespace boundary.
	Overlap int
}

const defaultChunkSize = 2000

// chunkContent splits content into whitespace-aligned chunks with byte
// offsets into the original string.
func chunkContent(content string, cfg ChunkConfig) []Chunk {
	if content == "" {
		return nil
	}
	maxChars := cfg.MaxCharacters
	if maxChars <= 0 {
		maxChars = defaultChunkSize
	}
	overlap := cfg.Overlap
	if overlap < 0 || overlap >= maxChars {
		overlap = 0
	}

	var chunks []Chunk
	start := 0
	for start < len(content) {
		end := start + maxChars
		if end >= len(content) {
			end = len(content)
		} else {
			// Cut on the last whitespace before the limit when one exists in
			// the second half of the window, so words stay intact.
			if i := strings.LastIndexAny(content[start:end], " \t\n"); i > maxChars/2 {
				end = start + i
			}
		}
		chunks = append(chunks, Chunk{
			Content: content[start:end],
			Metadata: ChunkMetadata{
				ByteStart: uint64(start),
				ByteEnd:   uint64(end),
			},
		})
		if end == len(content) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		// Skip the whitespace the cut landed on.
		for next < len(content) && (content[next] == ' ' || content[next] == '\n' || content[next] == '\t') {
			next++
		}
		start = next
	}

	for i := range chunks {
		chunks[i].Metadata.ChunkIndex = i
		chunks[i].Metadata.TotalChunks = len(chunks)
	}
	return chunks
}
