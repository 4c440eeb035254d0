package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestAudioKey(t *testing.T) {
	lectureID := uuid.New()
	key := AudioKey(lectureID, "Recording.MP3")

	if !strings.HasPrefix(key, "audio/"+lectureID.String()+"_") {
		t.Errorf("unexpected key prefix: %s", key)
	}
	if !strings.HasSuffix(key, ".mp3") {
		t.Errorf("extension should be lowercased: %s", key)
	}
}

func TestProfileImageKey(t *testing.T) {
	userID := uuid.New()
	key := ProfileImageKey(userID, "me.png")

	if !strings.HasPrefix(key, "images/profiles/"+userID.String()+"_") {
		t.Errorf("unexpected key prefix: %s", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("unexpected extension: %s", key)
	}
}

func TestDocumentKey(t *testing.T) {
	roomID := uuid.New()
	key := DocumentKey(roomID, "../../etc/notes.pdf")

	if !strings.HasPrefix(key, "documents/"+roomID.String()+"/") {
		t.Errorf("unexpected key prefix: %s", key)
	}
	if strings.Contains(key, "..") {
		t.Errorf("path traversal should be stripped: %s", key)
	}
	if !strings.HasSuffix(key, "_notes.pdf") {
		t.Errorf("original base name should be kept: %s", key)
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := []struct {
		fileName string
		want     string
	}{
		{"lecture.mp3", "audio/mpeg"},
		{"lecture.WAV", "audio/wav"},
		{"lecture.m4a", "audio/mp4"},
		{"lecture.flac", "audio/flac"},
		{"lecture.ogg", "audio/ogg"},
		{"notes.pdf", "application/pdf"},
		{"mystery.xyzq", "application/octet-stream"},
	}

	for _, tc := range cases {
		if got := ContentTypeFor(tc.fileName); got != tc.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tc.fileName, got, tc.want)
		}
	}
}

func TestPublicURLAndExtractKey(t *testing.T) {
	aws := &s3Storage{bucket: "lectures", region: "eu-west-1"}
	url := aws.publicURL("audio/abc.mp3")
	if url != "https://lectures.s3.eu-west-1.amazonaws.com/audio/abc.mp3" {
		t.Errorf("unexpected virtual-hosted URL: %s", url)
	}
	if key := aws.extractKey(url); key != "audio/abc.mp3" {
		t.Errorf("extractKey(%s) = %q", url, key)
	}

	supabase := &s3Storage{bucket: "lectures", region: "us-east-1", endpoint: "https://proj.supabase.co/storage/v1/s3/"}
	url = supabase.publicURL("documents/room1/file.pdf")
	if url != "https://proj.supabase.co/storage/v1/s3/lectures/documents/room1/file.pdf" {
		t.Errorf("unexpected path-style URL: %s", url)
	}
	if key := supabase.extractKey(url); key != "documents/room1/file.pdf" {
		t.Errorf("extractKey(%s) = %q", url, key)
	}
}

func TestExtractKeyInvalidURL(t *testing.T) {
	s := &s3Storage{bucket: "b"}
	if key := s.extractKey("://not a url"); key != "" {
		t.Errorf("expected empty key, got %q", key)
	}
}
