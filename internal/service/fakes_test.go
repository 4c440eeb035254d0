package service

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes shared by the service tests.

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByRole(ctx context.Context, role model.UserRole) ([]model.User, error) {
	var out []model.User
	for _, user := range r.users {
		if user.Role == role {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context) ([]model.User, error) {
	var out []model.User
	for _, user := range r.users {
		out = append(out, *user)
	}
	return out, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

type fakeChatRepo struct {
	rooms    map[uuid.UUID]*model.ChatRoom
	messages map[uuid.UUID]*model.ChatMessage
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		rooms:    make(map[uuid.UUID]*model.ChatRoom),
		messages: make(map[uuid.UUID]*model.ChatMessage),
	}
}

func (r *fakeChatRepo) CreateRoom(ctx context.Context, room *model.ChatRoom) error {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	room.CreatedAt = time.Now()
	r.rooms[room.ID] = room
	return nil
}

func (r *fakeChatRepo) FindRoomByID(ctx context.Context, id uuid.UUID) (*model.ChatRoom, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *room
	return &copied, nil
}

func (r *fakeChatRepo) FindRoomByPair(ctx context.Context, teacherID, studentID uuid.UUID) (*model.ChatRoom, error) {
	for _, room := range r.rooms {
		if room.TeacherID == teacherID && room.StudentID == studentID {
			copied := *room
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChatRepo) FindRoomsByUser(ctx context.Context, userID uuid.UUID) ([]model.ChatRoom, error) {
	var out []model.ChatRoom
	for _, room := range r.rooms {
		if room.HasMember(userID) {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *fakeChatRepo) UpdateRoom(ctx context.Context, room *model.ChatRoom) error {
	if _, ok := r.rooms[room.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *room
	r.rooms[room.ID] = &copied
	return nil
}

func (r *fakeChatRepo) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	delete(r.rooms, id)
	for msgID, msg := range r.messages {
		if msg.ChatRoomID == id {
			delete(r.messages, msgID)
		}
	}
	return nil
}

func (r *fakeChatRepo) CreateMessage(ctx context.Context, message *model.ChatMessage) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	message.CreatedAt = time.Now()
	r.messages[message.ID] = message
	return nil
}

func (r *fakeChatRepo) FindMessageByID(ctx context.Context, id uuid.UUID) (*model.ChatMessage, error) {
	msg, ok := r.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *msg
	return &copied, nil
}

func (r *fakeChatRepo) FindMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error) {
	var out []model.ChatMessage
	for _, msg := range r.messages {
		if msg.ChatRoomID == roomID {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *fakeChatRepo) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	delete(r.messages, id)
	return nil
}

func (r *fakeChatRepo) MarkMessagesRead(ctx context.Context, roomID, readerID uuid.UUID) (int64, error) {
	var count int64
	for _, msg := range r.messages {
		if msg.ChatRoomID == roomID && msg.SenderID != readerID && !msg.IsRead {
			msg.IsRead = true
			count++
		}
	}
	return count, nil
}

type fakeTaskRepo struct {
	tasks map[uuid.UUID]*model.Task
}

func newFakeTaskRepo(tasks ...*model.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: make(map[uuid.UUID]*model.Task)}
	for _, task := range tasks {
		if task.ID == uuid.Nil {
			task.ID = uuid.New()
		}
		repo.tasks[task.ID] = task
	}
	return repo
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeTaskRepo) CreateBatch(ctx context.Context, tasks []model.Task) error {
	for i := range tasks {
		if tasks[i].ID == uuid.Nil {
			tasks[i].ID = uuid.New()
		}
		copied := tasks[i]
		r.tasks[copied.ID] = &copied
	}
	return nil
}

func (r *fakeTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *task
	return &copied, nil
}

func (r *fakeTaskRepo) Find(ctx context.Context, filter repository.TaskFilter) ([]model.Task, int64, error) {
	var out []model.Task
	for _, task := range r.tasks {
		if filter.AssignedToID != nil && (task.AssignedToID == nil || *task.AssignedToID != *filter.AssignedToID) {
			continue
		}
		if filter.LectureID != nil && (task.LectureID == nil || *task.LectureID != *filter.LectureID) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		out = append(out, *task)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, task *model.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.tasks, id)
	return nil
}

type fakeLectureRepo struct {
	lectures map[uuid.UUID]*model.Lecture
}

func newFakeLectureRepo(lectures ...*model.Lecture) *fakeLectureRepo {
	repo := &fakeLectureRepo{lectures: make(map[uuid.UUID]*model.Lecture)}
	for _, lecture := range lectures {
		if lecture.ID == uuid.Nil {
			lecture.ID = uuid.New()
		}
		repo.lectures[lecture.ID] = lecture
	}
	return repo
}

func (r *fakeLectureRepo) Create(ctx context.Context, lecture *model.Lecture) error {
	if lecture.ID == uuid.Nil {
		lecture.ID = uuid.New()
	}
	r.lectures[lecture.ID] = lecture
	return nil
}

func (r *fakeLectureRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Lecture, error) {
	lecture, ok := r.lectures[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *lecture
	return &copied, nil
}

func (r *fakeLectureRepo) Find(ctx context.Context, filter repository.LectureFilter) ([]model.Lecture, int64, error) {
	var out []model.Lecture
	for _, lecture := range r.lectures {
		if filter.TeacherID != nil && lecture.TeacherID != *filter.TeacherID {
			continue
		}
		out = append(out, *lecture)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLectureRepo) Update(ctx context.Context, lecture *model.Lecture) error {
	if _, ok := r.lectures[lecture.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *lecture
	r.lectures[lecture.ID] = &copied
	return nil
}

func (r *fakeLectureRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.lectures, id)
	return nil
}

func (r *fakeLectureRepo) FindUnprocessed(ctx context.Context, limit int) ([]model.Lecture, error) {
	var out []model.Lecture
	for _, lecture := range r.lectures {
		if lecture.AudioURL != nil && !lecture.IsProcessed {
			out = append(out, *lecture)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeLectureRepo) FindStaleUnprocessed(ctx context.Context, cutoff time.Time) ([]model.Lecture, error) {
	var out []model.Lecture
	for _, lecture := range r.lectures {
		if lecture.AudioURL != nil && !lecture.IsProcessed && lecture.UpdatedAt.Before(cutoff) {
			out = append(out, *lecture)
		}
	}
	return out, nil
}

func (r *fakeLectureRepo) Counts(ctx context.Context) (repository.ProcessingCounts, error) {
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

type fakeBlobStorage struct {
	uploads map[string]string
	deleted []string
}

func newFakeBlobStorage() *fakeBlobStorage {
	return &fakeBlobStorage{uploads: make(map[string]string)}
}

func (s *fakeBlobStorage) Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error) {
	s.uploads[key] = contentType
	return "https://bucket.test/" + key, nil
}

func (s *fakeBlobStorage) Delete(ctx context.Context, fileURL string) error {
	s.deleted = append(s.deleted, fileURL)
	return nil
}

func (s *fakeBlobStorage) Available(ctx context.Context) bool {
	return true
}

type fakeNotificationRepo struct {
	notifications []*model.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeNotificationRepo) Find(ctx context.Context, filter repository.NotificationFilter) ([]model.Notification, int64, error) {
	var out []model.Notification
	for _, n := range r.notifications {
		if filter.UserID != uuid.Nil && n.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		out = append(out, *n)
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	for _, n := range r.notifications {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	for _, n := range r.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, n := range r.notifications {
		if n.ID == id {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeSearchService struct {
	indexed map[uuid.UUID]*model.Lecture
	removed []uuid.UUID
	queries []string
}

func newFakeSearchService() *fakeSearchService {
	return &fakeSearchService{indexed: make(map[uuid.UUID]*model.Lecture)}
}

func (s *fakeSearchService) IndexLecture(ctx context.Context, lecture *model.Lecture) error {
	copied := *lecture
	s.indexed[lecture.ID] = &copied
	return nil
}

func (s *fakeSearchService) DeleteLecture(ctx context.Context, id uuid.UUID) error {
	delete(s.indexed, id)
	s.removed = append(s.removed, id)
	return nil
}

func (s *fakeSearchService) SearchLectures(ctx context.Context, query string, limit int) ([]LectureDoc, error) {
	s.queries = append(s.queries, query)
	var docs []LectureDoc
	for _, lecture := range s.indexed {
		docs = append(docs, LectureDoc{ID: lecture.ID.String(), Title: lecture.Title, Subject: lecture.Subject})
		if len(docs) >= limit {
			break
		}
	}
	return docs, nil
}
