package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStorage defines the contract for the object-storage provider holding
// lecture audio, profile images and chat documents.
type BlobStorage interface {
	// Upload stores the object under key and returns its public URL.
	Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error)
	// Delete removes an object given its public URL.
	Delete(ctx context.Context, fileURL string) error
	// Available reports whether the bucket is reachable.
	Available(ctx context.Context) bool
}

// AudioKey builds the bucket key for a lecture audio file.
func AudioKey(lectureID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("audio/%s_%s%s", lectureID, uuid.New().String(), ext)
}

// ProfileImageKey builds the bucket key for a user avatar.
func ProfileImageKey(userID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("images/profiles/%s_%s%s", userID, uuid.New().String(), ext)
}

// DocumentKey builds the bucket key for a chat-room document.
func DocumentKey(roomID uuid.UUID, fileName string) string {
	return fmt.Sprintf("documents/%s/%s_%s", roomID, uuid.New().String(), filepath.Base(fileName))
}

// ContentTypeFor guesses the MIME type from a file name.
func ContentTypeFor(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
