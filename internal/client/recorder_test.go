package client

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"kaongserver/internal/models"
)

func TestRecorder_Record(t *testing.T) {
	log, cleanup := newTestLogger(t)
	defer cleanup()

	var got struct {
		assessment atomic.Value
		confidence atomic.Value
		source     atomic.Value
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/save_assessment" {
			t.Errorf("Expected path /save_assessment, got %s", r.URL.Path)
		}
		got.assessment.Store(r.FormValue("assessment"))
		got.confidence.Store(r.FormValue("confidence"))
		got.source.Store(r.FormValue("source"))

		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("Expected image part: %v", err)
		} else {
			file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "assessment_id": 1}`))
	}))
	defer server.Close()

	recorder := NewRecorder(server.URL, log)
	recorder.Record([]byte("jpeg bytes"), models.Detection{
		Label:      models.LabelRipe,
		Score:      0.9123,
		Assessment: models.AssessmentReady,
	}, models.SourceCamera)

	if got.assessment.Load() != models.AssessmentReady {
		t.Errorf("Expected assessment %q, got %v", models.AssessmentReady, got.assessment.Load())
	}
	if got.source.Load() != models.SourceCamera {
		t.Errorf("Expected source %q, got %v", models.SourceCamera, got.source.Load())
	}

	confidence, err := strconv.ParseFloat(got.confidence.Load().(string), 64)
	if err != nil || confidence != 0.9123 {
		t.Errorf("Expected confidence 0.9123, got %v", got.confidence.Load())
	}
}

func TestRecorder_RecordAsyncDoesNotBlockOnSlowServer(t *testing.T) {
	log, cleanup := newTestLogger(t)
	defer cleanup()

	release := make(chan struct{})
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-release
	}))
	defer server.Close()
	defer close(release)

	recorder := NewRecorder(server.URL, log)
	det := models.Detection{Assessment: models.AssessmentReady, Score: 0.9}

	// The server hangs until released; dispatch must return regardless.
	start := time.Now()
	recorder.RecordAsync([]byte("jpeg bytes"), det, models.SourceCamera)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Expected dispatch to return immediately, took %s", elapsed)
	}

	deadline := time.Now().Add(2 * time.Second)
	for requests.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if requests.Load() != 1 {
		t.Fatalf("Expected the dispatched save to reach the server, got %d requests", requests.Load())
	}
}

func TestRecorder_FailuresAreSwallowed(t *testing.T) {
	log, cleanup := newTestLogger(t)
	defer cleanup()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	recorder := NewRecorder(server.URL, log)
	det := models.Detection{Assessment: models.AssessmentReady, Score: 0.9}

	// A server error must not panic or propagate.
	recorder.Record([]byte("jpeg bytes"), det, models.SourceCamera)
	if requests.Load() != 1 {
		t.Fatalf("Expected 1 request, got %d", requests.Load())
	}

	// Nor must a dead server.
	server.Close()
	recorder.Record([]byte("jpeg bytes"), det, models.SourceCamera)
}
