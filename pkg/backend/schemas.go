package backend

import "github.com/santhosh-tekuri/jsonschema/v5"

// Responses that feed coordinator state are schema-checked before decoding so
// a drifting service contract surfaces as a clear remote error instead of
// silently corrupted state.

var uploadResponseSchema = jsonschema.MustCompileString("upload_response.json", `{
	"type": "object",
	"properties": {
		"submissions": {
			"type": "array",
			"items": {"$ref": "#/$defs/artifact"}
		},
		"submission_id": {"type": "string"},
		"file_name": {"type": "string"},
		"processing_status": {"type": "string"},
		"extraction_method": {"type": "string"},
		"ocr_confidence": {"type": "number"},
		"extracted_text": {"type": "string"},
		"content": {"type": "string"},
		"text": {"type": "string"},
		"submission_content": {"type": "string"},
		"processed_text": {"type": "string"}
	},
	"$defs": {
		"artifact": {
			"type": "object",
			"properties": {
				"submission_id": {"type": "string"},
				"file_name": {"type": "string"},
				"file_size": {"type": "integer"},
				"processing_status": {"type": "string"},
				"extraction_method": {"type": "string"},
				"ocr_confidence": {"type": "number"},
				"extracted_text": {"type": "string"},
				"content": {"type": "string"},
				"text": {"type": "string"},
				"submission_content": {"type": "string"},
				"processed_text": {"type": "string"}
			}
		}
	}
}`)

var analyzeResponseSchema = jsonschema.MustCompileString("analyze_response.json", `{
	"type": "object",
	"properties": {
		"strengths": {"type": "array", "items": {"type": "string"}},
		"weaknesses": {"type": "array", "items": {"type": "string"}},
		"opportunities": {"type": "array", "items": {"type": "string"}},
		"threats": {"type": "array", "items": {"type": "string"}},
		"suggestions": {"type": "array", "items": {"type": "string"}},
		"submission_id": {"type": "string"}
	},
	"required": ["strengths", "weaknesses", "opportunities", "threats"]
}`)
