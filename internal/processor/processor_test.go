package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classmate/classroom-assistant/internal/ai"
	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubLectureRepo struct {
	lectures map[uuid.UUID]*model.Lecture
}

func newStubLectureRepo(lectures ...*model.Lecture) *stubLectureRepo {
	repo := &stubLectureRepo{lectures: make(map[uuid.UUID]*model.Lecture)}
	for _, l := range lectures {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		repo.lectures[l.ID] = l
	}
	return repo
}

func (r *stubLectureRepo) Create(ctx context.Context, lecture *model.Lecture) error {
	r.lectures[lecture.ID] = lecture
	return nil
}

func (r *stubLectureRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Lecture, error) {
	lecture, ok := r.lectures[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *lecture
	return &copied, nil
}

func (r *stubLectureRepo) Find(ctx context.Context, filter repository.LectureFilter) ([]model.Lecture, int64, error) {
	return nil, 0, nil
}

func (r *stubLectureRepo) Update(ctx context.Context, lecture *model.Lecture) error {
	copied := *lecture
	r.lectures[lecture.ID] = &copied
	return nil
}

func (r *stubLectureRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.lectures, id)
	return nil
}

func (r *stubLectureRepo) FindUnprocessed(ctx context.Context, limit int) ([]model.Lecture, error) {
	var out []model.Lecture
	for _, lecture := range r.lectures {
		if lecture.AudioURL != nil && !lecture.IsProcessed && len(out) < limit {
			out = append(out, *lecture)
		}
	}
	return out, nil
}

func (r *stubLectureRepo) FindStaleUnprocessed(ctx context.Context, cutoff time.Time) ([]model.Lecture, error) {
	var out []model.Lecture
	for _, lecture := range r.lectures {
		if lecture.AudioURL != nil && !lecture.IsProcessed && lecture.UpdatedAt.Before(cutoff) {
			out = append(out, *lecture)
		}
	}
	return out, nil
}

func (r *stubLectureRepo) Counts(ctx context.Context) (repository.ProcessingCounts, error) {
	var counts repository.ProcessingCounts
	for _, lecture := range r.lectures {
		counts.Total++
		if lecture.IsProcessed {
			counts.Processed++
		} else {
			counts.Unprocessed++
		}
	}
	return counts, nil
}

type stubTaskRepo struct {
	created []model.Task
}

func (r *stubTaskRepo) Create(ctx context.Context, task *model.Task) error {
	r.created = append(r.created, *task)
	return nil
}

func (r *stubTaskRepo) CreateBatch(ctx context.Context, tasks []model.Task) error {
	r.created = append(r.created, tasks...)
	return nil
}

func (r *stubTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubTaskRepo) Find(ctx context.Context, filter repository.TaskFilter) ([]model.Task, int64, error) {
	return nil, 0, nil
}

func (r *stubTaskRepo) Update(ctx context.Context, task *model.Task) error { return nil }

func (r *stubTaskRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type stubUserRepo struct {
	students []model.User
}

func (r *stubUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubUserRepo) FindByRole(ctx context.Context, role model.UserRole) ([]model.User, error) {
	if role == model.RoleStudent {
		return r.students, nil
	}
	return nil, nil
}
func (r *stubUserRepo) FindAll(ctx context.Context) ([]model.User, error) { return nil, nil }

func (r *stubUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (r *stubUserRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *stubUserRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

type stubTranscriber struct {
	transcript string
	err        error
	calls      int
}

func (t *stubTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return t.transcript, nil
}

func (t *stubTranscriber) Available() bool { return true }

type stubSummarizer struct {
	summary   string
	keyPoints []string
	tasks     []ai.ExtractedTask
	err       error
}

func (s *stubSummarizer) GenerateSummary(ctx context.Context, transcript string) (string, error) {
	return s.summary, s.err
}

func (s *stubSummarizer) ExtractKeyPoints(ctx context.Context, transcript string) ([]string, error) {
	return s.keyPoints, s.err
}

func (s *stubSummarizer) ExtractTasks(ctx context.Context, transcript string) ([]ai.ExtractedTask, error) {
	return s.tasks, s.err
}

func (s *stubSummarizer) Available() bool { return true }

func strPtr(s string) *string { return &s }

func newTestProcessor(lectureRepo *stubLectureRepo, taskRepo *stubTaskRepo, userRepo *stubUserRepo, tr Transcriber, sm Summarizer) *Processor {
	return New(lectureRepo, taskRepo, userRepo, nil, nil, tr, sm, time.Minute, 5)
}

func TestProcessBatch(t *testing.T) {
	due := "2026-09-10"
	students := []model.User{
		{ID: uuid.New(), Role: model.RoleStudent},
		{ID: uuid.New(), Role: model.RoleStudent},
	}

	lecture := &model.Lecture{
		ID:       uuid.New(),
		Title:    "Cell Biology",
		AudioURL: strPtr("https://bucket.test/audio/cells.mp3"),
	}
	lectureRepo := newStubLectureRepo(lecture)
	taskRepo := &stubTaskRepo{}

	proc := newTestProcessor(lectureRepo, taskRepo, &stubUserRepo{students: students},
		&stubTranscriber{transcript: "today we cover cells"},
		&stubSummarizer{
			summary:   "a summary",
			keyPoints: []string{"cells have membranes"},
			tasks: []ai.ExtractedTask{
				{Title: "Label a cell diagram", Priority: "high", DueDate: &due},
			},
		})

	if err := proc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch returned error: %v", err)
	}

	processed, _ := lectureRepo.FindByID(context.Background(), lecture.ID)
	if !processed.IsProcessed {
		t.Error("lecture should be marked processed")
	}
	if processed.Transcript == nil || *processed.Transcript != "today we cover cells" {
		t.Errorf("transcript not stored: %v", processed.Transcript)
	}
	if processed.Summary == nil || *processed.Summary != "a summary" {
		t.Errorf("summary not stored: %v", processed.Summary)
	}
	if len(processed.KeyPoints) != 1 {
		t.Errorf("expected 1 key point, got %d", len(processed.KeyPoints))
	}

	// One task per extracted item per student.
	if len(taskRepo.created) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(taskRepo.created))
	}
	for _, task := range taskRepo.created {
		if !task.IsAIGenerated {
			t.Error("extracted tasks must be flagged as AI generated")
		}
		if task.LectureID == nil || *task.LectureID != lecture.ID {
			t.Error("task should reference the lecture")
		}
		if task.DueDate == nil {
			t.Error("due date should be parsed")
		}
	}
}

func TestProcessBatchLeavesFailedUnprocessed(t *testing.T) {
	lecture := &model.Lecture{
		ID:       uuid.New(),
		Title:    "Broken",
		AudioURL: strPtr("https://bucket.test/audio/broken.mp3"),
	}
	lectureRepo := newStubLectureRepo(lecture)

	proc := newTestProcessor(lectureRepo, &stubTaskRepo{}, &stubUserRepo{},
		&stubTranscriber{err: errors.New("api down")},
		&stubSummarizer{})

	if err := proc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch should not fail the run: %v", err)
	}

	after, _ := lectureRepo.FindByID(context.Background(), lecture.ID)
	if after.IsProcessed {
		t.Error("failed lecture must stay unprocessed")
	}
}

func TestProcessLectureByID(t *testing.T) {
	lecture := &model.Lecture{
		ID:       uuid.New(),
		Title:    "Optics",
		AudioURL: strPtr("https://bucket.test/audio/optics.mp3"),
	}
	lectureRepo := newStubLectureRepo(lecture)

	proc := newTestProcessor(lectureRepo, &stubTaskRepo{}, &stubUserRepo{},
		&stubTranscriber{transcript: "light bends"},
		&stubSummarizer{summary: "s", keyPoints: []string{"refraction"}})

	processed, err := proc.ProcessLectureByID(context.Background(), lecture.ID)
	if err != nil {
		t.Fatalf("ProcessLectureByID returned error: %v", err)
	}
	if !processed.IsProcessed {
		t.Error("lecture should be processed")
	}
}

func TestProcessLectureByIDNotFound(t *testing.T) {
	proc := newTestProcessor(newStubLectureRepo(), &stubTaskRepo{}, &stubUserRepo{},
		&stubTranscriber{}, &stubSummarizer{})

	_, err := proc.ProcessLectureByID(context.Background(), uuid.New())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProcessLectureByIDNoAudio(t *testing.T) {
	lecture := &model.Lecture{ID: uuid.New(), Title: "Silent"}
	proc := newTestProcessor(newStubLectureRepo(lecture), &stubTaskRepo{}, &stubUserRepo{},
		&stubTranscriber{}, &stubSummarizer{})

	_, err := proc.ProcessLectureByID(context.Background(), lecture.ID)
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProcessLectureByIDAlreadyProcessed(t *testing.T) {
	lecture := &model.Lecture{
		ID:          uuid.New(),
		AudioURL:    strPtr("https://bucket.test/audio/x.mp3"),
		IsProcessed: true,
	}
	transcriber := &stubTranscriber{}
	proc := newTestProcessor(newStubLectureRepo(lecture), &stubTaskRepo{}, &stubUserRepo{},
		transcriber, &stubSummarizer{})

	got, err := proc.ProcessLectureByID(context.Background(), lecture.ID)
	if err != nil {
		t.Fatalf("already processed lecture should be a no-op, got %v", err)
	}
	if got == nil || got.ID != lecture.ID {
		t.Fatalf("expected the lecture back, got %+v", got)
	}
	if transcriber.calls != 0 {
		t.Errorf("pipeline must not rerun, transcriber called %d times", transcriber.calls)
	}
}

func TestRetryFailedOnlyStale(t *testing.T) {
	stale := &model.Lecture{
		ID:        uuid.New(),
		Title:     "Stale",
		AudioURL:  strPtr("https://bucket.test/audio/stale.mp3"),
		UpdatedAt: time.Now().Add(-2 * time.Hour),
	}
	fresh := &model.Lecture{
		ID:        uuid.New(),
		Title:     "Fresh",
		AudioURL:  strPtr("https://bucket.test/audio/fresh.mp3"),
		UpdatedAt: time.Now(),
	}
	lectureRepo := newStubLectureRepo(stale, fresh)

	transcriber := &stubTranscriber{transcript: "retry text"}
	proc := newTestProcessor(lectureRepo, &stubTaskRepo{}, &stubUserRepo{},
		transcriber, &stubSummarizer{summary: "s"})

	retried, err := proc.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed returned error: %v", err)
	}
	if retried != 1 {
		t.Errorf("expected 1 retried lecture, got %d", retried)
	}
	if transcriber.calls != 1 {
		t.Errorf("expected 1 transcription call, got %d", transcriber.calls)
	}

	after, _ := lectureRepo.FindByID(context.Background(), fresh.ID)
	if after.IsProcessed {
		t.Error("fresh lecture must not be retried")
	}
}

func TestGetStatus(t *testing.T) {
	done := &model.Lecture{ID: uuid.New(), IsProcessed: true}
	pending := &model.Lecture{ID: uuid.New(), AudioURL: strPtr("u")}
	proc := newTestProcessor(newStubLectureRepo(done, pending), &stubTaskRepo{}, &stubUserRepo{},
		&stubTranscriber{}, &stubSummarizer{})

	status, err := proc.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}
	if status.Running {
		t.Error("processor has not been started")
	}
	if status.TotalLectures != 2 || status.ProcessedLectures != 1 || status.UnprocessedCount != 1 {
		t.Errorf("unexpected counts: %+v", status)
	}
}

func TestParseDueDate(t *testing.T) {
	if got := parseDueDate(nil); got != nil {
		t.Error("nil input should give nil")
	}
	empty := ""
	if got := parseDueDate(&empty); got != nil {
		t.Error("empty input should give nil")
	}

	iso := "2026-09-10"
	got := parseDueDate(&iso)
	if got == nil || got.Format("2006-01-02") != iso {
		t.Errorf("unexpected parse result: %v", got)
	}

	junk := "next tuesday"
	if got := parseDueDate(&junk); got != nil {
		t.Errorf("unparseable input should give nil, got %v", got)
	}
}
