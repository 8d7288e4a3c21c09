package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UploadFile is one file attached to a multipart upload.
type UploadFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// UploadedArtifact is the upload group's per-file processing result. Older
// deployments of the group have shipped the extracted text under different
// keys, so every candidate field is kept; callers resolve them in priority
// order.
type UploadedArtifact struct {
	SubmissionID      string  `json:"submission_id"`
	FileName          string  `json:"file_name"`
	FileSize          int64   `json:"file_size"`
	ProcessingStatus  string  `json:"processing_status"`
	ExtractionMethod  string  `json:"extraction_method"`
	OCRConfidence     float64 `json:"ocr_confidence"`
	ExtractedText     string  `json:"extracted_text"`
	Content           string  `json:"content"`
	Text              string  `json:"text"`
	SubmissionContent string  `json:"submission_content"`
	ProcessedText     string  `json:"processed_text"`
}

// CorpusUploadRequest carries the course metadata for a past-assignment batch.
type CorpusUploadRequest struct {
	CourseTitle  string
	CourseCode   string
	AcademicYear string
	Semester     int
	Files        []UploadFile
}

// CorpusBatchPayload acknowledges a past-assignment batch upload.
type CorpusBatchPayload struct {
	Message          string    `json:"message"`
	CourseTitle      string    `json:"course_title"`
	CourseCode       string    `json:"course_code"`
	AcademicYear     string    `json:"academic_year"`
	Semester         int       `json:"semester"`
	UploadedFiles    []string  `json:"uploaded_files"`
	AssignmentIDs    []string  `json:"assignment_ids"`
	ProcessingStatus string    `json:"processing_status"`
	Timestamp        time.Time `json:"timestamp"`
}

// CorpusStatusPayload is the polled processing state of one past assignment.
type CorpusStatusPayload struct {
	AssignmentID  string    `json:"assignment_id"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UploadSubmissions posts student files for text extraction and returns the
// per-file results. The response is schema-checked before decoding because
// the processing result feeds the text fallback resolver.
func (c *Client) UploadSubmissions(ctx context.Context, assignmentID, studentID string, files []UploadFile) ([]UploadedArtifact, error) {
	fields := map[string]string{
		"assignment_id": assignmentID,
		"student_id":    studentID,
	}

	body, err := c.postMultipart(ctx, "upload_submissions", "/submissions/upload", fields, files)
	if err != nil {
		return nil, err
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &RemoteError{Op: "upload_submissions", StatusCode: http.StatusOK, Detail: "malformed response payload"}
	}
	if err := uploadResponseSchema.Validate(raw); err != nil {
		c.logger.Warn().Err(err).Msg("upload response failed schema validation")
		return nil, &RemoteError{Op: "upload_submissions", StatusCode: http.StatusOK, Detail: "unexpected response shape from upload service"}
	}

	var wrapped struct {
		Submissions []UploadedArtifact `json:"submissions"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Submissions) > 0 {
		return wrapped.Submissions, nil
	}

	var single UploadedArtifact
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, &RemoteError{Op: "upload_submissions", StatusCode: http.StatusOK, Detail: "malformed response payload"}
	}
	return []UploadedArtifact{single}, nil
}

// UploadCorpus posts a faculty batch of past assignments for background mining.
func (c *Client) UploadCorpus(ctx context.Context, req CorpusUploadRequest) (CorpusBatchPayload, error) {
	fields := map[string]string{
		"course_title":  req.CourseTitle,
		"course_code":   req.CourseCode,
		"academic_year": req.AcademicYear,
		"semester":      strconv.Itoa(req.Semester),
	}

	body, err := c.postMultipart(ctx, "upload_corpus", "/past-assignments", fields, req.Files)
	if err != nil {
		return CorpusBatchPayload{}, err
	}

	var out CorpusBatchPayload
	if err := json.Unmarshal(body, &out); err != nil {
		return CorpusBatchPayload{}, &RemoteError{Op: "upload_corpus", StatusCode: http.StatusOK, Detail: "malformed response payload"}
	}
	return out, nil
}

// CorpusStatus polls the processing state of one past assignment.
func (c *Client) CorpusStatus(ctx context.Context, assignmentID string) (CorpusStatusPayload, error) {
	var out CorpusStatusPayload
	err := c.getJSON(ctx, GroupUploads, "corpus_status", "/status/"+url.PathEscape(assignmentID), &out)
	return out, err
}

func (c *Client) postMultipart(ctx context.Context, op, path string, fields map[string]string, files []UploadFile) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+op, trace.WithAttributes(
		attribute.String("backend.group", string(GroupUploads)),
		attribute.Int("backend.files", len(files)),
	))
	defer span.End()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write %s field: %w", op, err)
		}
	}

	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, file.Name))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("create %s part: %w", op, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, fmt.Errorf("write %s part: %w", op, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize %s body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(GroupUploads, path), &buf)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(string(GroupUploads), op).Observe(time.Since(start).Seconds())
	if err != nil {
		requestFailures.WithLabelValues(string(GroupUploads), op).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		requestFailures.WithLabelValues(string(GroupUploads), op).Inc()
		remoteErr := decodeRemoteError(op, resp)
		span.RecordError(remoteErr)
		span.SetStatus(codes.Error, op+" failed")
		return nil, remoteErr
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	span.SetStatus(codes.Ok, "")
	return body, nil
}
