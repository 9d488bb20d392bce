package application

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memUsers is a map-backed directory with the same CAS contract as the real stores.
type memUsers struct {
	mu      sync.Mutex
	users   map[int64]entity.User
	getErr  error
	upserts int
}

func newMemUsers(users ...entity.User) *memUsers {
	m := &memUsers{users: map[int64]entity.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Get(_ context.Context, id int64) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) Upsert(_ context.Context, id int64, p entity.UserPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	u, ok := m.users[id]
	if !ok {
		u = entity.User{ID: id, Status: entity.StatusPending}
	}
	p.Apply(&u)
	m.users[id] = u
	return nil
}

func (m *memUsers) SetStatus(ctx context.Context, id int64, s entity.Status) error {
	return m.Upsert(ctx, id, entity.UserPatch{Status: &s})
}

func (m *memUsers) CompareAndSetStatus(_ context.Context, id int64, from, to entity.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Status != from {
		return false, nil
	}
	u.Status = to
	m.users[id] = u
	return true, nil
}

func (m *memUsers) status(id int64) entity.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Status
}

type editCall struct {
	Ref      entity.MessageRef
	Text     string
	Keyboard Keyboard
}

type answerCall struct {
	CallbackID string
	Text       string
	Alert      bool
}

// fakeTransport records every outgoing call.
type fakeTransport struct {
	mu       sync.Mutex
	nextID   int
	sent     []OutgoingNotice
	edits    []editCall
	cleared  []entity.MessageRef
	answers  []answerCall
	fetched  []string
	failSend map[int64]error
	editErr  error
	fetchErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failSend: map[int64]error{}}
}

func (t *fakeTransport) SendNotice(_ context.Context, n OutgoingNotice) (entity.MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failSend[n.ChatID]; err != nil {
		return entity.MessageRef{}, err
	}
	t.nextID++
	t.sent = append(t.sent, n)
	return entity.MessageRef{ChatID: n.ChatID, MessageID: 1000 + t.nextID}, nil
}

func (t *fakeTransport) EditNotice(_ context.Context, ref entity.MessageRef, text string, kb Keyboard) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.editErr != nil {
		return t.editErr
	}
	t.edits = append(t.edits, editCall{Ref: ref, Text: text, Keyboard: kb})
	return nil
}

func (t *fakeTransport) ClearButtons(_ context.Context, ref entity.MessageRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleared = append(t.cleared, ref)
	return nil
}

func (t *fakeTransport) AnswerInteraction(_ context.Context, id, text string, alert bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answers = append(t.answers, answerCall{CallbackID: id, Text: text, Alert: alert})
	return nil
}

func (t *fakeTransport) FetchMediaContent(_ context.Context, fileID string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fetchErr != nil {
		return nil, t.fetchErr
	}
	t.fetched = append(t.fetched, fileID)
	return []byte("jpeg:" + fileID), nil
}

func (t *fakeTransport) sentTo(chatID int64) []OutgoingNotice {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []OutgoingNotice
	for _, n := range t.sent {
		if n.ChatID == chatID {
			out = append(out, n)
		}
	}
	return out
}

type fakeBackend struct {
	mu          sync.Mutex
	submissions []entity.Submission
	confirms    []int64
	submitErr   error
	confirmErr  error
	nextID      int64
	confirmResp entity.ConfirmReceipt
}

func (b *fakeBackend) SubmitOrder(_ context.Context, s entity.Submission) (*entity.OrderReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submissions = append(b.submissions, s)
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	b.nextID++
	if s.ReplaceOrderID != nil {
		return &entity.OrderReceipt{ID: *s.ReplaceOrderID}, nil
	}
	return &entity.OrderReceipt{ID: 500 + b.nextID}, nil
}

func (b *fakeBackend) ConfirmOrder(_ context.Context, id int64) (*entity.ConfirmReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirms = append(b.confirms, id)
	if b.confirmErr != nil {
		return nil, b.confirmErr
	}
	r := b.confirmResp
	return &r, nil
}

type fakeMail struct {
	mu   sync.Mutex
	jobs []any
}

func (m *fakeMail) PublishJSON(_ context.Context, body any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, body)
	return nil
}

// fakeScheduler fires timers only when the test advances its clock.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now.Add(d), f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves the clock and runs every due timer in deadline order.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && !t.at.After(s.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// armed returns the number of timers that may still fire.
func (s *fakeScheduler) armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func photoEvent(chatID, userID int64, msgID int, fileID, group, caption string) entity.Event {
	return entity.Event{
		Kind:         entity.KindMessage,
		Actor:        entity.Actor{ID: userID, Username: "ivan", FullName: "Ivan Petrov"},
		ChatID:       chatID,
		MessageID:    msgID,
		PhotoFileID:  fileID,
		MediaGroupID: group,
		Caption:      caption,
	}
}
