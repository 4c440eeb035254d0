package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// SpeechClient calls the RapidAPI speech-to-text service.
type SpeechClient struct {
	apiKey     string
	host       string
	baseURL    string
	language   string
	httpClient *http.Client
}

func NewSpeechClient() *SpeechClient {
	host := os.Getenv("RAPIDAPI_HOST")
	if host == "" {
		host = "speech-to-text-api.p.rapidapi.com"
	}

	return &SpeechClient{
		apiKey:   os.Getenv("RAPIDAPI_KEY"),
		host:     host,
		baseURL:  "https://" + host,
		language: "en-US",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *SpeechClient) Available() bool {
	return c != nil && c.apiKey != ""
}

// Transcribe sends the audio URL to the transcription API and returns the
// recognized text.
func (c *SpeechClient) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("RAPIDAPI_KEY is not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"url":      audioURL,
		"language": c.language,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription failed: %d - %s", resp.StatusCode, string(body))
	}

	var result struct {
		Transcript string `json:"transcript"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	if result.Transcript == "" {
		return "", fmt.Errorf("transcription returned an empty transcript")
	}

	return result.Transcript, nil
}
