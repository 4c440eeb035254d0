package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
)

const lecturesIndex = "lectures"

// SearchService keeps the meilisearch lecture index in sync and serves
// full-text queries over titles, subjects, tags and transcripts.
type SearchService interface {
	IndexLecture(ctx context.Context, lecture *model.Lecture) error
	DeleteLecture(ctx context.Context, id uuid.UUID) error
	SearchLectures(ctx context.Context, query string, limit int) ([]LectureDoc, error)
}

// LectureDoc is the search-index projection of a lecture.
type LectureDoc struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Subject    string   `json:"subject"`
	TeacherID  string   `json:"teacher_id"`
	Summary    string   `json:"summary"`
	Transcript string   `json:"transcript"`
	Tags       []string `json:"tags"`
	CreatedAt  int64    `json:"created_at"`
}

type meiliSearchService struct {
	client meilisearch.ServiceManager
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &meiliSearchService{client: client}
	s.initIndex()
	return s
}

func (s *meiliSearchService) initIndex() {
	filterable := []string{"teacher_id", "subject"}
	filterableInterface := make([]any, len(filterable))
	for i, v := range filterable {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(lecturesIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update lectures filterable attributes: %v", err)
	}

	sortable := []string{"created_at"}
	if _, err := s.client.Index(lecturesIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("Failed to update lectures sortable attributes: %v", err)
	}

	log.Println("Meilisearch lectures index initialized")
}

func (s *meiliSearchService) IndexLecture(ctx context.Context, lecture *model.Lecture) error {
	doc := LectureDoc{
		ID:         lecture.ID.String(),
		Title:      lecture.Title,
		Subject:    lecture.Subject,
		TeacherID:  lecture.TeacherID.String(),
		Summary:    stringOrEmpty(lecture.Summary),
		Transcript: stringOrEmpty(lecture.Transcript),
		Tags:       lecture.Tags,
		CreatedAt:  lecture.CreatedAt.Unix(),
	}

	task, err := s.client.Index(lecturesIndex).AddDocuments([]LectureDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed lecture %s, task id: %d", lecture.ID, task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeleteLecture(ctx context.Context, id uuid.UUID) error {
	_, err := s.client.Index(lecturesIndex).DeleteDocument(id.String())
	return err
}

func (s *meiliSearchService) SearchLectures(ctx context.Context, query string, limit int) ([]LectureDoc, error) {
	if limit <= 0 {
		limit = 20
	}

	resp, err := s.client.Index(lecturesIndex).Search(query, &meilisearch.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		return nil, err
	}

	docs := make([]LectureDoc, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			log.Printf("Failed to re-encode search hit: %v", err)
			continue
		}
		var doc LectureDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Printf("Failed to decode search hit: %v", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
