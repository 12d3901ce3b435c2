package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"sheetTranslator/dto"
)

func TestTraceID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if seen == "" {
		t.Fatal("expected generated trace id in context")
	}
	if rec.Header().Get(TraceIDHeader) != seen {
		t.Errorf("expected response header %s, got %s", seen, rec.Header().Get(TraceIDHeader))
	}
}

func TestTraceID_KeepsIncoming(t *testing.T) {
	var seen string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(TraceIDHeader, "trace-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "trace-1" {
		t.Fatalf("expected trace-1, got %s", seen)
	}
}

func TestRecovery_ReturnsJSONError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }),
		TraceID, Logging(logger), Recovery(logger),
	)

	req := httptest.NewRequest("GET", "/tasks/x", nil)
	req.Header.Set(TraceIDHeader, "trace-2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	var body dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body.TraceID != "trace-2" {
		t.Errorf("expected trace id in body, got %q", body.TraceID)
	}
}

func TestLogging_PreservesFlusher(t *testing.T) {
	var flushable bool
	h := Logging(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/progress/x", nil))

	if !flushable {
		t.Fatal("expected handler to receive a flushable writer")
	}
}

func TestTraceID_ReplacesUnsafeIncoming(t *testing.T) {
	var seen string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTraceID(r.Context())
	}))

	for _, incoming := range []string{"bad id\nforged", strings.Repeat("a", 65)} {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(TraceIDHeader, incoming)
		h.ServeHTTP(httptest.NewRecorder(), req)

		if seen == incoming || seen == "" {
			t.Errorf("expected a generated id for %q, got %q", incoming, seen)
		}
	}
}

func TestLogging_RecordsStatusAndBytes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("hello"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/upload", nil))

	entries := logs.FilterMessage("Request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusAccepted) || fields["bytes"] != int64(5) {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestLogging_ServerErrorsLoggedAsErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/tasks/x", nil))

	if logs.FilterMessage("Request failed").Len() != 1 {
		t.Fatalf("expected an error entry, got %v", logs.All())
	}
}

func TestLogging_FlushReachesWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	h := Logging(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: x\n\n"))
		w.(http.Flusher).Flush()
	}))

	h.ServeHTTP(rec, httptest.NewRequest("GET", "/progress/x", nil))

	if !rec.Flushed {
		t.Fatal("expected the underlying writer to be flushed")
	}
}
