package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard-api/broadcast"
	"taskboard-api/logging"
	"taskboard-api/models"
)

// TaskStore is the persistence surface the service drives. Implemented by
// repositories.TaskRepository and its caching wrapper.
type TaskStore interface {
	FindByEmail(ctx context.Context, email string) ([]models.Task, error)
	Insert(ctx context.Context, task models.Task) (models.Task, error)
	UpdatePosition(ctx context.Context, email string, id primitive.ObjectID, category string, order float64) (int64, error)
	UpdateContent(ctx context.Context, email string, id primitive.ObjectID, fields models.ContentUpdate) (int64, error)
	BulkUpdateOrders(ctx context.Context, email string, assignments []models.OrderAssignment) error
	Delete(ctx context.Context, email string, id primitive.ObjectID) (int64, error)
}

// Notifier fans committed mutations out to connected clients.
type Notifier interface {
	Publish(event broadcast.Event)
}

// TaskService validates and applies board mutations. It is the only place
// that reasons about task positions; handlers stay thin and the store stays
// mechanical.
type TaskService struct {
	store    TaskStore
	notifier Notifier
}

func NewTaskService(store TaskStore, notifier Notifier) *TaskService {
	return &TaskService{store: store, notifier: notifier}
}

// GetTasks returns the tenant's full task list.
func (s *TaskService) GetTasks(ctx context.Context, email string) ([]models.Task, error) {
	return s.store.FindByEmail(ctx, email)
}

// CreateTask stores a new task with a server-stamped creation time and
// broadcasts it to all connected clients.
func (s *TaskService) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	if task.Email == "" {
		return models.Task{}, &models.ValidationError{Message: "Email is required"}
	}

	task.ID = primitive.NilObjectID
	task.CreatedAt = time.Now().UTC()

	created, err := s.store.Insert(ctx, task)
	if err != nil {
		return models.Task{}, err
	}

	s.notifier.Publish(broadcast.Event{Type: broadcast.TaskAdded, Email: created.Email, Payload: created})
	return created, nil
}

// MoveTask drags one task to a new category and rank. The caller-supplied
// rank is persisted verbatim; with fractional ranks a move between two
// neighbors never requires renumbering siblings. Returns ErrTaskNotFound
// when no task matched (id, email).
func (s *TaskService) MoveTask(ctx context.Context, email, id, category string, order float64) error {
	objectID, err := parseTaskID(id)
	if err != nil {
		return err
	}

	matched, err := s.store.UpdatePosition(ctx, email, objectID, category, order)
	if err != nil {
		return err
	}
	if matched == 0 {
		return models.ErrTaskNotFound
	}

	s.publishSnapshot(ctx, email)
	return nil
}

// UpdateTaskContent overwrites the task's content fields. A zero-modified
// result surfaces as ErrTaskNotFound, which covers both a missing task and
// a no-op edit.
func (s *TaskService) UpdateTaskContent(ctx context.Context, email, id string, fields models.ContentUpdate) error {
	objectID, err := parseTaskID(id)
	if err != nil {
		return err
	}

	modified, err := s.store.UpdateContent(ctx, email, objectID, fields)
	if err != nil {
		return err
	}
	if modified == 0 {
		return models.ErrTaskNotFound
	}

	s.publishSnapshot(ctx, email)
	return nil
}

// ReorderTasks reassigns ranks for one category in a single batch. Every id
// must parse before anything is written; one malformed id rejects the whole
// batch. The supplied order values are authoritative, so non-monotonic input
// produces non-monotonic stored ranks. An empty list is a successful no-op
// that still refreshes connected clients.
func (s *TaskService) ReorderTasks(ctx context.Context, email, category string, updates []models.OrderUpdate) error {
	assignments := make([]models.OrderAssignment, 0, len(updates))
	for _, u := range updates {
		objectID, err := parseTaskID(u.ID)
		if err != nil {
			return err
		}
		assignments = append(assignments, models.OrderAssignment{ID: objectID, Order: u.Order})
	}

	if err := s.store.BulkUpdateOrders(ctx, email, assignments); err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: TASKS_REORDERED, Description: Reordered %d tasks in category '%s' for %s", len(assignments), category, email)
	s.publishSnapshot(ctx, email)
	return nil
}

// DeleteTask removes one task and broadcasts the deleted id.
func (s *TaskService) DeleteTask(ctx context.Context, email, id string) error {
	objectID, err := parseTaskID(id)
	if err != nil {
		return err
	}

	deleted, err := s.store.Delete(ctx, email, objectID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return models.ErrTaskNotFound
	}

	s.notifier.Publish(broadcast.Event{Type: broadcast.TaskDeleted, Email: email, Payload: id})
	return nil
}

// publishSnapshot broadcasts the tenant's full current list. A snapshot is
// idempotent: a missed event is superseded by the next one. Fetch failures
// are logged and never fail the originating request.
func (s *TaskService) publishSnapshot(ctx context.Context, email string) {
	tasks, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		logging.Logger.Errorf("Event ID: BROADCAST_SNAPSHOT_FAILED, Description: Failed to fetch tasks for broadcast: %v", err)
		return
	}
	s.notifier.Publish(broadcast.Event{Type: broadcast.TaskUpdated, Email: email, Payload: tasks})
}

func parseTaskID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, &models.ValidationError{Message: fmt.Sprintf("invalid task ID %q", id)}
	}
	return objectID, nil
}
