package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/classmate/classroom-assistant/internal/ai"
	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/internal/service"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Lectures that failed a run stay unprocessed; they become eligible again
// once their updated_at is older than this.
const retryAfter = time.Hour

// Transcriber converts a stored audio recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
	Available() bool
}

// Summarizer produces the derived artifacts for a transcript.
type Summarizer interface {
	GenerateSummary(ctx context.Context, transcript string) (string, error)
	ExtractKeyPoints(ctx context.Context, transcript string) ([]string, error)
	ExtractTasks(ctx context.Context, transcript string) ([]ai.ExtractedTask, error)
	Available() bool
}

// Status describes the pipeline for the processing status endpoint.
type Status struct {
	Running           bool      `json:"running"`
	Interval          string    `json:"interval"`
	BatchSize         int       `json:"batch_size"`
	LastRunAt         time.Time `json:"last_run_at,omitempty"`
	TotalLectures     int64     `json:"total_lectures"`
	ProcessedLectures int64     `json:"processed_lectures"`
	UnprocessedCount  int64     `json:"unprocessed_lectures"`
	TranscriberOnline bool      `json:"transcriber_online"`
	SummarizerOnline  bool      `json:"summarizer_online"`
}

// Processor runs the lecture pipeline: transcribe the audio, summarize it,
// pull out key points, and fan extracted tasks out to every student.
type Processor struct {
	lectureRepo     repository.LectureRepository
	taskRepo        repository.TaskRepository
	userRepo        repository.UserRepository
	notificationSvc service.NotificationService
	searchSvc       service.SearchService
	transcriber     Transcriber
	summarizer      Summarizer

	interval  time.Duration
	batchSize int

	cron    *cron.Cron
	entryID cron.EntryID

	mu        sync.Mutex
	running   bool
	lastRunAt time.Time
}

func New(
	lectureRepo repository.LectureRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	notificationSvc service.NotificationService,
	searchSvc service.SearchService,
	transcriber Transcriber,
	summarizer Summarizer,
	interval time.Duration,
	batchSize int,
) *Processor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Processor{
		lectureRepo:     lectureRepo,
		taskRepo:        taskRepo,
		userRepo:        userRepo,
		notificationSvc: notificationSvc,
		searchSvc:       searchSvc,
		transcriber:     transcriber,
		summarizer:      summarizer,
		interval:        interval,
		batchSize:       batchSize,
	}
}

// Start schedules the periodic batch run. It is a no-op when already running.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.cron = cron.New()
	schedule := fmt.Sprintf("@every %s", p.interval)
	entryID, err := p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.interval)
		defer cancel()
		if err := p.ProcessBatch(ctx); err != nil {
			log.Printf("lecture processing run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule lecture processing: %w", err)
	}

	p.entryID = entryID
	p.cron.Start()
	p.running = true
	log.Printf("lecture processor started, interval %s, batch size %d", p.interval, p.batchSize)
	return nil
}

// Stop halts the schedule. In-flight runs finish.
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.cron.Stop()
	p.cron = nil
	p.running = false
	log.Println("lecture processor stopped")
}

// ProcessBatch picks up the oldest unprocessed lectures with audio and runs
// the pipeline on each. A lecture that fails is logged and left unprocessed
// so a later run retries it.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	p.mu.Lock()
	p.lastRunAt = time.Now()
	p.mu.Unlock()

	lectures, err := p.lectureRepo.FindUnprocessed(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load unprocessed lectures: %w", err)
	}
	if len(lectures) == 0 {
		return nil
	}

	log.Printf("processing %d lecture(s)", len(lectures))
	for i := range lectures {
		if err := p.processLecture(ctx, &lectures[i]); err != nil {
			log.Printf("failed to process lecture %s: %v", lectures[i].ID, err)
		}
	}
	return nil
}

// ProcessLectureByID runs the pipeline for a single lecture on demand.
func (p *Processor) ProcessLectureByID(ctx context.Context, id uuid.UUID) (*model.Lecture, error) {
	lecture, err := p.lectureRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if lecture.AudioURL == nil {
		return nil, fmt.Errorf("%w: lecture has no audio to process", apperror.ErrInvalidInput)
	}
	if lecture.IsProcessed {
		return lecture, nil
	}

	if err := p.processLecture(ctx, lecture); err != nil {
		return nil, err
	}
	return lecture, nil
}

// RetryFailed re-queues lectures that have been stuck unprocessed for longer
// than the retry window and runs them immediately.
func (p *Processor) RetryFailed(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-retryAfter)
	lectures, err := p.lectureRepo.FindStaleUnprocessed(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to load stale lectures: %w", err)
	}

	retried := 0
	for i := range lectures {
		if err := p.processLecture(ctx, &lectures[i]); err != nil {
			log.Printf("retry failed for lecture %s: %v", lectures[i].ID, err)
			continue
		}
		retried++
	}
	return retried, nil
}

// GetStatus reports pipeline health and lecture counts.
func (p *Processor) GetStatus(ctx context.Context) (*Status, error) {
	counts, err := p.lectureRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	running := p.running
	lastRun := p.lastRunAt
	p.mu.Unlock()

	return &Status{
		Running:           running,
		Interval:          p.interval.String(),
		BatchSize:         p.batchSize,
		LastRunAt:         lastRun,
		TotalLectures:     counts.Total,
		ProcessedLectures: counts.Processed,
		UnprocessedCount:  counts.Unprocessed,
		TranscriberOnline: p.transcriber != nil && p.transcriber.Available(),
		SummarizerOnline:  p.summarizer != nil && p.summarizer.Available(),
	}, nil
}

func (p *Processor) processLecture(ctx context.Context, lecture *model.Lecture) error {
	if p.transcriber == nil || !p.transcriber.Available() {
		return fmt.Errorf("%w: transcription service not available", apperror.ErrServiceUnavailable)
	}
	if p.summarizer == nil || !p.summarizer.Available() {
		return fmt.Errorf("%w: summarization service not available", apperror.ErrServiceUnavailable)
	}
	if lecture.AudioURL == nil {
		return fmt.Errorf("lecture %s has no audio url", lecture.ID)
	}

	transcript, err := p.transcriber.Transcribe(ctx, *lecture.AudioURL)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	summary, err := p.summarizer.GenerateSummary(ctx, transcript)
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}

	keyPoints, err := p.summarizer.ExtractKeyPoints(ctx, transcript)
	if err != nil {
		return fmt.Errorf("key point extraction failed: %w", err)
	}

	extracted, err := p.summarizer.ExtractTasks(ctx, transcript)
	if err != nil {
		return fmt.Errorf("task extraction failed: %w", err)
	}

	lecture.Transcript = &transcript
	lecture.Summary = &summary
	lecture.KeyPoints = keyPoints
	lecture.IsProcessed = true

	if err := p.lectureRepo.Update(ctx, lecture); err != nil {
		return fmt.Errorf("failed to save processed lecture: %w", err)
	}

	if err := p.fanOutTasks(ctx, lecture, extracted); err != nil {
		log.Printf("failed to create tasks for lecture %s: %v", lecture.ID, err)
	}

	if p.searchSvc != nil {
		if err := p.searchSvc.IndexLecture(ctx, lecture); err != nil {
			log.Printf("failed to index processed lecture %s: %v", lecture.ID, err)
		}
	}

	log.Printf("lecture %s processed: %d key points, %d extracted tasks", lecture.ID, len(keyPoints), len(extracted))
	return nil
}

// fanOutTasks creates one task per extracted item per student and notifies
// each assignee.
func (p *Processor) fanOutTasks(ctx context.Context, lecture *model.Lecture, extracted []ai.ExtractedTask) error {
	if len(extracted) == 0 {
		return nil
	}

	students, err := p.userRepo.FindByRole(ctx, model.RoleStudent)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}
	if len(students) == 0 {
		return nil
	}

	tasks := make([]model.Task, 0, len(extracted)*len(students))
	for _, item := range extracted {
		dueDate := parseDueDate(item.DueDate)
		for _, student := range students {
			studentID := student.ID
			tasks = append(tasks, model.Task{
				Title:         item.Title,
				Description:   item.Description,
				LectureID:     &lecture.ID,
				AssignedToID:  &studentID,
				Status:        model.TaskPending,
				Priority:      model.TaskPriority(item.Priority),
				DueDate:       dueDate,
				IsAIGenerated: true,
			})
		}
	}

	if err := p.taskRepo.CreateBatch(ctx, tasks); err != nil {
		return err
	}

	if p.notificationSvc == nil {
		return nil
	}
	for _, student := range students {
		if !student.NotificationsEnabled {
			continue
		}
		err := p.notificationSvc.Create(ctx, &model.Notification{
			UserID:  student.ID,
			Type:    model.NotificationTaskAssigned,
			Title:   "New tasks from lecture",
			Message: fmt.Sprintf("%d task(s) were extracted from %q", len(extracted), lecture.Title),
			Data: map[string]any{
				"lecture_id": lecture.ID.String(),
				"task_count": len(extracted),
			},
		})
		if err != nil {
			log.Printf("failed to notify student %s: %v", student.ID, err)
		}
	}
	return nil
}

func parseDueDate(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t
		}
	}
	return nil
}
