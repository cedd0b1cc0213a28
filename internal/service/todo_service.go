package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/followup-todo/todo-sync-backend/internal/domain"
	"github.com/followup-todo/todo-sync-backend/internal/ics"
	"github.com/followup-todo/todo-sync-backend/internal/repository"
	"github.com/followup-todo/todo-sync-backend/internal/subscription"
	"github.com/followup-todo/todo-sync-backend/internal/viewmodel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Validation failures that handlers surface as 400s.
var (
	ErrEmptyText          = errors.New("todo text cannot be empty")
	ErrMissingDateTime    = errors.New("follow-up date and time is required")
	ErrNoFollowUp         = errors.New("todo has no follow-up")
	ErrTodoNotFound       = errors.New("todo not found")
	errFailedToLoadTodos  = errors.New("failed to retrieve todo items")
	errFailedToWriteTodo  = errors.New("failed to write todo item")
	errFailedToLoadTodo   = errors.New("failed to retrieve todo item")
	errFailedToDeleteTodo = errors.New("failed to delete todo item")
)

// CreateTodoRequest holds the data needed to create a new todo.
type CreateTodoRequest struct {
	Text string `json:"text"`
}

// FollowUpRequest replaces a todo's whole follow-up structure.
type FollowUpRequest struct {
	DateTime time.Time `json:"dateTime"`
	Notes    string    `json:"notes"`
}

// NotesRequest patches only the notes of an existing follow-up.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// TodoResponse is the standard representation of a todo returned by the
// service. Overdue is derived at read time, never stored.
type TodoResponse struct {
	ID            string           `json:"id"`
	Text          string           `json:"text"`
	Completed     bool             `json:"completed"`
	CompletedDate *time.Time       `json:"completedDate"`
	CreatedDate   time.Time        `json:"createdDate"`
	FollowUp      *domain.FollowUp `json:"followUp"`
	UserID        string           `json:"userId"`
	Overdue       bool             `json:"overdue"`
}

// CollectionSnapshot is what subscribers receive after every committed
// write: the full collection, already display-ordered.
type CollectionSnapshot struct {
	Type  string         `json:"type"`
	Todos []TodoResponse `json:"todos"`
}

// TodoService contains the core business logic for managing todos and their
// follow-ups.
type TodoService interface {
	CreateTodo(ctx context.Context, userID string, req CreateTodoRequest) (*TodoResponse, error)
	// ListTodos returns the user's collection in display order with the
	// overdue flag evaluated against the current wall clock.
	ListTodos(ctx context.Context, userID string) ([]TodoResponse, error)
	// ToggleTodo flips completion. The completion timestamp is set exactly
	// on the false-to-true transition and cleared on the way back.
	ToggleTodo(ctx context.Context, userID, id string) (*TodoResponse, error)
	DeleteTodo(ctx context.Context, userID, id string) error
	SetFollowUp(ctx context.Context, userID, id string, req FollowUpRequest) (*TodoResponse, error)
	// UpdateNotes read-merges the stored follow-up so the date-time is
	// preserved while only the notes change.
	UpdateNotes(ctx context.Context, userID, id string, req NotesRequest) (*TodoResponse, error)
	// CalendarInvite renders the todo's follow-up as an iCalendar file.
	CalendarInvite(ctx context.Context, userID, id string) (filename string, payload []byte, err error)
	// Snapshot derives the current display-ordered collection for the
	// subscription feed.
	Snapshot(ctx context.Context, userID string) ([]byte, error)
}

type todoService struct {
	repo   repository.TodoRepository
	events *subscription.Hub
	now    func() time.Time
}

// NewTodoService creates a todo service publishing committed writes to hub.
func NewTodoService(repo repository.TodoRepository, hub *subscription.Hub) TodoService {
	return &todoService{
		repo:   repo,
		events: hub,
		now:    time.Now,
	}
}

func (s *todoService) CreateTodo(ctx context.Context, userID string, req CreateTodoRequest) (*TodoResponse, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	todo := &domain.Todo{
		ID:          uuid.NewString(),
		Text:        req.Text,
		Completed:   false,
		CreatedDate: s.now(),
		UserID:      userID,
	}

	if err := s.repo.Create(ctx, todo); err != nil {
		log.Printf("Error creating todo in repository: %v", err)
		return nil, errFailedToWriteTodo
	}

	s.publish(ctx, userID)
	return s.toResponse(*todo), nil
}

func (s *todoService) ListTodos(ctx context.Context, userID string) ([]TodoResponse, error) {
	todos, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("Error fetching todos for user %s: %v", userID, err)
		return nil, errFailedToLoadTodos
	}
	return s.toResponses(todos, userID), nil
}

func (s *todoService) ToggleTodo(ctx context.Context, userID, id string) (*TodoResponse, error) {
	todo, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	todo.Completed = !todo.Completed
	if todo.Completed {
		completedAt := s.now()
		todo.CompletedDate = &completedAt
	} else {
		todo.CompletedDate = nil
	}

	if err := s.repo.Update(ctx, todo); err != nil {
		log.Printf("Error toggling todo %s: %v", id, err)
		return nil, errFailedToWriteTodo
	}

	s.publish(ctx, userID)
	return s.toResponse(*todo), nil
}

func (s *todoService) DeleteTodo(ctx context.Context, userID, id string) error {
	if _, err := s.find(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		log.Printf("Error deleting todo %s: %v", id, err)
		return errFailedToDeleteTodo
	}

	s.publish(ctx, userID)
	return nil
}

func (s *todoService) SetFollowUp(ctx context.Context, userID, id string, req FollowUpRequest) (*TodoResponse, error) {
	if req.DateTime.IsZero() {
		return nil, ErrMissingDateTime
	}

	todo, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	// The whole structure is replaced, never partially patched here.
	todo.FollowUp = &domain.FollowUp{
		DateTime: req.DateTime,
		Notes:    req.Notes,
	}

	if err := s.repo.Update(ctx, todo); err != nil {
		log.Printf("Error setting follow-up on todo %s: %v", id, err)
		return nil, errFailedToWriteTodo
	}

	s.publish(ctx, userID)
	return s.toResponse(*todo), nil
}

func (s *todoService) UpdateNotes(ctx context.Context, userID, id string, req NotesRequest) (*TodoResponse, error) {
	todo, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if todo.FollowUp == nil {
		return nil, ErrNoFollowUp
	}

	todo.FollowUp = &domain.FollowUp{
		DateTime: todo.FollowUp.DateTime,
		Notes:    req.Notes,
	}

	if err := s.repo.Update(ctx, todo); err != nil {
		log.Printf("Error updating notes on todo %s: %v", id, err)
		return nil, errFailedToWriteTodo
	}

	s.publish(ctx, userID)
	return s.toResponse(*todo), nil
}

func (s *todoService) CalendarInvite(ctx context.Context, userID, id string) (string, []byte, error) {
	todo, err := s.find(ctx, userID, id)
	if err != nil {
		return "", nil, err
	}
	if todo.FollowUp == nil {
		return "", nil, ErrNoFollowUp
	}

	payload := ics.Invite(*todo, *todo.FollowUp, s.now())
	return ics.Filename(todo.Text), payload, nil
}

func (s *todoService) Snapshot(ctx context.Context, userID string) ([]byte, error) {
	todos, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	snapshot := CollectionSnapshot{
		Type:  "todos",
		Todos: s.toResponses(todos, userID),
	}
	return json.Marshal(snapshot)
}

func (s *todoService) find(ctx context.Context, userID, id string) (*domain.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTodoNotFound, id)
		}
		log.Printf("Error fetching todo %s from repository: %v", id, err)
		return nil, errFailedToLoadTodo
	}
	return todo, nil
}

// publish pushes a fresh snapshot to the user's subscribers. Delivery is
// fire-and-forget; a failed derivation is logged and never fails the write
// that triggered it.
func (s *todoService) publish(ctx context.Context, userID string) {
	payload, err := s.Snapshot(ctx, userID)
	if err != nil {
		log.Printf("Error deriving snapshot for user %s: %v", userID, err)
		return
	}
	s.events.Broadcast(userID, payload)
}

func (s *todoService) toResponse(todo domain.Todo) *TodoResponse {
	resp := s.toResponses([]domain.Todo{todo}, todo.UserID)
	return &resp[0]
}

func (s *todoService) toResponses(todos []domain.Todo, userID string) []TodoResponse {
	now := s.now()
	responses := make([]TodoResponse, 0, len(todos))
	for _, todo := range viewmodel.SortForDisplay(todos) {
		// Defense in depth: never project another user's rows even if
		// the store query was somehow mis-scoped.
		if todo.UserID != userID {
			continue
		}
		responses = append(responses, TodoResponse{
			ID:            todo.ID,
			Text:          todo.Text,
			Completed:     todo.Completed,
			CompletedDate: todo.CompletedDate,
			CreatedDate:   todo.CreatedDate,
			FollowUp:      todo.FollowUp,
			UserID:        todo.UserID,
			Overdue:       viewmodel.IsOverdue(todo, now),
		})
	}
	return responses
}
