package extract

// Result is the outcome of extracting one document.
type Result struct {
	// Content is the extracted text content from the document.
	Content string `json:"content"`
	// MimeType is the MIME type of the processed document (e.g., "application/pdf").
	MimeType string `json:"mime_type"`
	// Metadata contains extracted document metadata.
	Metadata Metadata `json:"metadata"`
	// Chunks contains text chunks if chunking was enabled.
	Chunks []Chunk `json:"chunks,omitempty"`
	// Images contains extracted images if the document carried any.
	Images []Image `json:"images,omitempty"`
	// DetectedLanguages lists language codes identified in the content.
	DetectedLanguages []string `json:"detected_languages,omitempty"`
	// Success indicates whether extraction completed successfully.
	Success bool `json:"success"`
}

// Metadata aggregates document-level metadata.
type Metadata struct {
	// Language is the primary language code (e.g., "en"), if known.
	Language string `json:"language,omitempty"`
	// Title is the document title, if available.
	Title string `json:"title,omitempty"`
	// Subject is the document subject, if available.
	Subject string `json:"subject,omitempty"`
	// Date is the document creation or publication date, if available.
	Date string `json:"date,omitempty"`
	// PageCount is the number of pages, slides, or sheets, if applicable.
	PageCount int `json:"page_count,omitempty"`
	// Additional carries format-specific metadata fields.
	Additional map[string]string `json:"additional,omitempty"`
}

// Chunk contains a slice of the extracted content plus positional metadata.
type Chunk struct {
	// Content is the text content of this chunk.
	Content string `json:"content"`
	// Metadata contains positional information about this chunk.
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata provides positional information for a chunk.
type ChunkMetadata struct {
	// ByteStart is the byte offset where this chunk begins in the content.
	ByteStart uint64 `json:"byte_start"`
	// ByteEnd is the byte offset where this chunk ends in the content.
	ByteEnd uint64 `json:"byte_end"`
	// ChunkIndex is the zero-based index of this chunk.
	ChunkIndex int `json:"chunk_index"`
	// TotalChunks is the total number of chunks in the document.
	TotalChunks int `json:"total_chunks"`
}

// Image represents an image found in or constituting a document.
type Image struct {
	// Data is the raw image data in the specified format.
	Data []byte `json:"data"`
	// Format is the image format (e.g., "jpeg", "png", "webp").
	Format string `json:"format"`
	// ImageIndex is the zero-based index of this image within the document.
	ImageIndex int `json:"image_index"`
	// Width is the image width in pixels, if known.
	Width int `json:"width,omitempty"`
	// Height is the image height in pixels, if known.
	Height int `json:"height,omitempty"`
}
