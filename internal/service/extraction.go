package service

import (
	"strings"

	"github.com/praxislab/praxis-api/pkg/backend"
)

// resolveExtractedText picks the usable text out of an upload result.
// Deployed revisions of the upload group have shipped the extracted text
// under different response keys, so the candidates are checked in priority
// order and the first one holding any non-whitespace content wins. The
// winning candidate is returned as sent, untrimmed.
func resolveExtractedText(artifact backend.UploadedArtifact) (string, bool) {
	for _, candidate := range []string{
		artifact.ExtractedText,
		artifact.Content,
		artifact.Text,
		artifact.SubmissionContent,
		artifact.ProcessedText,
	} {
		if strings.TrimSpace(candidate) != "" {
			return candidate, true
		}
	}
	return "", false
}
