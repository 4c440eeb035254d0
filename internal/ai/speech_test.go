package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestSpeechClient(baseURL string) *SpeechClient {
	return &SpeechClient{
		apiKey:     "test-key",
		host:       "example.p.rapidapi.com",
		baseURL:    baseURL,
		language:   "en-US",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-RapidAPI-Key") != "test-key" {
			t.Fatalf("missing api key header")
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["url"] != "https://bucket.example.com/audio/lecture.mp3" {
			t.Fatalf("unexpected audio url %q", body["url"])
		}

		if err := json.NewEncoder(w).Encode(map[string]string{"transcript": "hello class"}); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestSpeechClient(server.URL)
	transcript, err := client.Transcribe(context.Background(), "https://bucket.example.com/audio/lecture.mp3")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if transcript != "hello class" {
		t.Errorf("unexpected transcript %q", transcript)
	}
}

func TestTranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestSpeechClient(server.URL)
	if _, err := client.Transcribe(context.Background(), "https://example.com/a.mp3"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"transcript": ""})
	}))
	defer server.Close()

	client := newTestSpeechClient(server.URL)
	if _, err := client.Transcribe(context.Background(), "https://example.com/a.mp3"); err == nil {
		t.Fatal("expected error on empty transcript")
	}
}

func TestSpeechClientAvailable(t *testing.T) {
	if newTestSpeechClient("http://x").Available() != true {
		t.Error("client with key should be available")
	}

	empty := &SpeechClient{}
	if empty.Available() {
		t.Error("client without key should not be available")
	}
}
