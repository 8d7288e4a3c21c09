package models

// Processing states for an uploaded submission artifact.
const (
	// ProcessingPending indicates the file has been attached but not sent for extraction.
	ProcessingPending = "pending"
	// ProcessingProcessed indicates text extraction produced usable content.
	ProcessingProcessed = "processed"
	// ProcessingFailed indicates extraction yielded no usable text.
	ProcessingFailed = "failed"
)

// Extraction methods reported by the upload service.
const (
	ExtractionReady            = "ready"
	ExtractionStandard         = "standard"
	ExtractionDocxStandard     = "docx_standard"
	ExtractionOCR              = "ocr"
	ExtractionOCRVisionLLM     = "ocr_vision_llm"
	ExtractionStandardFallback = "standard_fallback"
	ExtractionFailed           = "failed"
)

const (
	// PreviewLength caps how many characters of extracted text are shown inline.
	PreviewLength = 200
	// ConfidentTextLength is the minimum extracted length considered trustworthy.
	ConfidentTextLength = 200
	// PreviewMarker is appended to previews of truncated text.
	PreviewMarker = "..."
)

// SubmissionArtifact represents one uploaded file inside an intake flow.
// The ID is assigned locally and replaced once the upload service returns
// a server-side identifier.
type SubmissionArtifact struct {
	ID               string  `json:"id"`
	FileName         string  `json:"file_name"`
	FileSize         int64   `json:"file_size"`
	ContentType      string  `json:"content_type"`
	ProcessingStatus string  `json:"processing_status"`
	ExtractedText    string  `json:"extracted_text,omitempty"`
	Preview          string  `json:"preview"`
	ExtractionMethod string  `json:"extraction_method,omitempty"`
	OCRConfidence    float64 `json:"ocr_confidence,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// Processed reports whether the artifact carries usable extracted text.
func (a SubmissionArtifact) Processed() bool {
	return a.ProcessingStatus == ProcessingProcessed
}

// BuildPreview returns the first PreviewLength characters of text, with a
// marker appended when the text was truncated.
func BuildPreview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + PreviewMarker
}
