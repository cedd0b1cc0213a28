package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/followup-todo/todo-sync-backend/internal/domain"
	"github.com/followup-todo/todo-sync-backend/internal/repository"
	"github.com/followup-todo/todo-sync-backend/internal/subscription"

	"github.com/google/uuid"
)

// legacyTodo is the shape of one record in the pre-backend draft store: a
// flat JSON list persisted by the prototype. Timestamps arrive as ISO
// strings and any field may be missing.
type legacyTodo struct {
	Text          string           `json:"text"`
	Completed     bool             `json:"completed"`
	CompletedDate *time.Time       `json:"completedDate"`
	CreatedDate   *time.Time       `json:"createdDate"`
	FollowUp      *domain.FollowUp `json:"followUp"`
}

// ImportResult reports what the migration did. The caller clears its legacy
// store on any outcome: skipping because remote data exists means the
// migration already happened, not that a merge is pending.
type ImportResult struct {
	Imported int    `json:"imported"`
	Skipped  bool   `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
}

// MigrationService performs the one-shot transfer of legacy draft-store
// contents into the backend collection. Failures are logged and swallowed:
// migration must never block the rest of the application from rendering.
type MigrationService interface {
	ImportLegacy(ctx context.Context, userID string, payload []byte) ImportResult
}

type migrationService struct {
	repo   repository.TodoRepository
	events *subscription.Hub
	todos  TodoService
	done   sync.Map // userID -> struct{}, one-shot per process
	now    func() time.Time
}

func NewMigrationService(repo repository.TodoRepository, todos TodoService, hub *subscription.Hub) MigrationService {
	return &migrationService{
		repo:   repo,
		events: hub,
		todos:  todos,
		now:    time.Now,
	}
}

func (s *migrationService) ImportLegacy(ctx context.Context, userID string, payload []byte) ImportResult {
	if _, alreadyRan := s.done.LoadOrStore(userID, struct{}{}); alreadyRan {
		return ImportResult{Skipped: true, Reason: "migration already ran this session"}
	}

	var legacy []legacyTodo
	if err := json.Unmarshal(payload, &legacy); err != nil {
		// Malformed legacy data fails closed: skip, never crash.
		log.Printf("Migration error for user %s: malformed legacy payload: %v", userID, err)
		return ImportResult{Skipped: true, Reason: "legacy data unreadable"}
	}
	if len(legacy) == 0 {
		return ImportResult{Skipped: true, Reason: "legacy store empty"}
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		log.Printf("Migration error for user %s: counting remote todos: %v", userID, err)
		return ImportResult{Skipped: true, Reason: "backend unavailable"}
	}
	if count > 0 {
		// Remote data wins; its presence means migration already
		// happened on another device.
		return ImportResult{Skipped: true, Reason: "backend collection not empty"}
	}

	todos := make([]domain.Todo, 0, len(legacy))
	for _, record := range legacy {
		createdDate := s.now()
		if record.CreatedDate != nil {
			createdDate = *record.CreatedDate
		}
		completedDate := record.CompletedDate
		if !record.Completed {
			completedDate = nil
		} else if completedDate == nil {
			// A completed record must carry a completion timestamp.
			completedDate = &createdDate
		}
		todos = append(todos, domain.Todo{
			ID:            uuid.NewString(),
			Text:          record.Text,
			Completed:     record.Completed,
			CompletedDate: completedDate,
			CreatedDate:   createdDate,
			FollowUp:      record.FollowUp,
			UserID:        userID,
		})
	}

	// One logical batch: either the whole legacy list lands or none of it.
	if err := s.repo.CreateBatch(ctx, todos); err != nil {
		log.Printf("Migration error for user %s: writing batch: %v", userID, err)
		return ImportResult{Skipped: true, Reason: "backend write failed"}
	}

	if snapshot, err := s.todos.Snapshot(ctx, userID); err == nil {
		s.events.Broadcast(userID, snapshot)
	}

	return ImportResult{Imported: len(todos)}
}
