package tasks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

type Status string

const (
	StatusOpen Status = "OPEN"
	StatusDone Status = "DONE"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type Task struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	OwnerID    string    `json:"-"`
	RelatedIDs []string  `json:"-"`
}

func (t Task) Done() bool { return t.Status == StatusDone }

// ErrDuplicateTitle is returned when an owner already has an open task with
// the same title.
var ErrDuplicateTitle = errors.New("duplicate title")

// Store is an in-memory task store shared by every request. It is safe for
// concurrent use; values it returns are copies.
type Store struct {
	mu    sync.RWMutex
	users map[string]User
	tasks map[string]Task
	now   func() time.Time
}

func NewStore(users ...User) *Store {
	s := &Store{
		users: make(map[string]User, len(users)),
		tasks: map[string]Task{},
		now:   time.Now,
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// DefaultUsers are the users behind DefaultTokens.
func DefaultUsers() []User {
	return []User{
		{ID: "u1", Name: "Ada", Role: RoleAdmin},
		{ID: "u2", Name: "Grace", Role: RoleMember},
		{ID: "u3", Name: "Linus", Role: RoleMember},
	}
}

// User returns the user with id, or nil when there is none.
func (s *Store) User(ctx context.Context, id string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Task returns the task with id, or nil when there is none.
func (s *Store) Task(ctx context.Context, id string) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t.RelatedIDs = append([]string(nil), t.RelatedIDs...)
	return &t, nil
}

// Filter selects tasks in List.
type Filter struct {
	OwnerID string
	Status  Status
	First   int
}

// List returns matching tasks, oldest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.OwnerID != "" && t.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		t.RelatedIDs = append([]string(nil), t.RelatedIDs...)
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.First > 0 && len(out) > f.First {
		out = out[:f.First]
	}
	return out, nil
}

// Create adds an open task. Titles are unique among an owner's open tasks,
// compared case-insensitively.
func (s *Store) Create(ctx context.Context, ownerID, title string, related []string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.OwnerID == ownerID && t.Status == StatusOpen && strings.EqualFold(t.Title, title) {
			return Task{}, ErrDuplicateTitle
		}
	}
	t := Task{
		ID:         uuid.NewString(),
		Title:      title,
		Status:     StatusOpen,
		CreatedAt:  s.now(),
		OwnerID:    ownerID,
		RelatedIDs: append([]string(nil), related...),
	}
	s.tasks[t.ID] = t
	return t, nil
}

// SetStatus updates the status of task id and returns the updated task. It
// reports false when the task does not exist.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) (Task, bool, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false, nil
	}
	t.Status = status
	s.tasks[id] = t
	return t, true, nil
}

// Delete removes task id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}
