package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		GenerationURL: server.URL,
		UploadsURL:    server.URL,
		EvaluationURL: server.URL,
		AnalyticsURL:  server.URL,
		MaxRetries:    2,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	return client, server
}

func TestNewRequiresAllGroupURLs(t *testing.T) {
	_, err := New(Config{GenerationURL: "http://localhost:9001", Logger: zerolog.Nop()})
	require.Error(t, err)
}

func TestRemoteErrorCarriesDetailField(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Selected question must be from generated set"})
	}))

	_, err := client.Select(context.Background(), "qs-1", "rogue question")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	require.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	require.Equal(t, "Selected question must be from generated set", remoteErr.Error())
}

func TestRemoteErrorFallbackMessage(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := client.SubmitToFaculty(context.Background(), "student-1", "sub-1")
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	require.Equal(t, "submit_to_faculty failed with status 409", remoteErr.Error())
}

func TestGetRetriesOnServerError(t *testing.T) {
	var calls int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(StatusPayload{ID: "qs-1", ApprovalStatus: "pending"})
	}))

	payload, err := client.Status(context.Background(), "qs-1")
	require.NoError(t, err)
	require.Equal(t, "pending", payload.ApprovalStatus)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestPostDoesNotRetry(t *testing.T) {
	var calls int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Generate(context.Background(), GenerateRequest{StudentID: "student-1", Domain: "finance"})
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestUploadSubmissionsSendsMultipartFields(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "assignment-7", r.FormValue("assignment_id"))
		require.Equal(t, "student-1", r.FormValue("student_id"))
		require.Len(t, r.MultipartForm.File["files"], 2)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"submissions": []map[string]interface{}{
				{"submission_id": "sub-1", "file_name": "draft.pdf", "extracted_text": "body text", "processing_status": "processed"},
				{"submission_id": "sub-2", "file_name": "notes.docx", "content": "other text", "processing_status": "processed"},
			},
		})
	}))

	artifacts, err := client.UploadSubmissions(context.Background(), "assignment-7", "student-1", []UploadFile{
		{Name: "draft.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4 fake")},
		{Name: "notes.docx", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Content: []byte("PK fake")},
	})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	require.Equal(t, "body text", artifacts[0].ExtractedText)
	require.Equal(t, "other text", artifacts[1].Content)
}

func TestUploadSubmissionsAcceptsFlatResponse(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"submission_id": "sub-9",
			"file_name":     "draft.pdf",
			"content":       "flat shape text",
		})
	}))

	artifacts, err := client.UploadSubmissions(context.Background(), "assignment-7", "student-1", []UploadFile{
		{Name: "draft.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4 fake")},
	})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	require.Equal(t, "sub-9", artifacts[0].SubmissionID)
	require.Equal(t, "flat shape text", artifacts[0].Content)
}

func TestAnalyzeRejectsUnexpectedShape(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"strengths": "not a list",
		})
	}))

	_, err := client.Analyze(context.Background(), AnalyzeRequest{StudentID: "student-1", AssignmentID: "assignment-7", Content: "draft"})
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	require.Contains(t, remoteErr.Error(), "unexpected response shape")
}

func TestAnalyzeIncludesKnownSubmissionID(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "sub-1", req.SubmissionID)

		json.NewEncoder(w).Encode(AnalyzePayload{
			Strengths:     []string{"clear"},
			Weaknesses:    []string{"short"},
			Opportunities: []string{"expand"},
			Threats:       []string{"scope"},
			SubmissionID:  "sub-1",
		})
	}))

	payload, err := client.Analyze(context.Background(), AnalyzeRequest{
		StudentID:    "student-1",
		AssignmentID: "assignment-7",
		Content:      "draft",
		SubmissionID: "sub-1",
	})
	require.NoError(t, err)
	require.Equal(t, "sub-1", payload.SubmissionID)
}

func TestHealthReportsUnreachableGroup(t *testing.T) {
	client, server := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))

	health := client.Health(context.Background(), GroupGeneration)
	require.Equal(t, "ok", health.Status)

	server.Close()
	health = client.Health(context.Background(), GroupEvaluation)
	require.Equal(t, "unreachable", health.Status)
	require.NotEmpty(t, health.Error)
}
