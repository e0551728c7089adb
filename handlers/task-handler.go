package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard-api/logging"
	"taskboard-api/models"
)

// TaskService is the mutation surface the handlers translate HTTP onto.
type TaskService interface {
	GetTasks(ctx context.Context, email string) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	MoveTask(ctx context.Context, email, id, category string, order float64) error
	UpdateTaskContent(ctx context.Context, email, id string, fields models.ContentUpdate) error
	ReorderTasks(ctx context.Context, email, category string, updates []models.OrderUpdate) error
	DeleteTask(ctx context.Context, email, id string) error
}

type TaskHandler struct {
	service TaskService
}

func NewTaskHandler(service TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// GetTasks returns all tasks for one tenant. An empty board is reported
// with a message body, not an empty list.
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	tasks, err := h.service.GetTasks(r.Context(), email)
	if err != nil {
		logging.Logger.Errorf("Event ID: TASKS_FETCH_FAILED, Description: Failed to fetch tasks for %s: %v", email, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch tasks"})
		return
	}

	if len(tasks) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No tasks found for this user"})
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask adds a new task for the tenant named in the body.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		return
	}

	created, err := h.service.CreateTask(r.Context(), task)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Message})
			return
		}
		logging.Logger.Errorf("Event ID: TASK_CREATE_FAILED, Description: Failed to add task: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to add task"})
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// MoveTask handles a drag between columns: new category plus new rank.
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	email := vars["email"]
	id := vars["id"]

	var body struct {
		Category string  `json:"category"`
		NewOrder float64 `json:"newOrder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		return
	}

	err := h.service.MoveTask(r.Context(), email, id, body.Category, body.NewOrder)
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Message})
		case errors.Is(err, models.ErrTaskNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Task not found"})
		default:
			logging.Logger.Errorf("Event ID: TASK_MOVE_FAILED, Description: Failed to move task %s: %v", id, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update task"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task updated successfully"})
}

// UpdateTaskContent edits title/description/category/endDate.
func (h *TaskHandler) UpdateTaskContent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	email := vars["email"]
	id := vars["id"]

	var fields models.ContentUpdate
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request payload"})
		return
	}

	err := h.service.UpdateTaskContent(r.Context(), email, id, fields)
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": validationErr.Message})
		case errors.Is(err, models.ErrTaskNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found or no changes made"})
		default:
			logging.Logger.Errorf("Event ID: TASK_UPDATE_FAILED, Description: Failed to update task %s: %v", id, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to update task"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task updated successfully"})
}

// ReorderTasks applies a full-category rank reassignment as one batch.
func (h *TaskHandler) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	var body struct {
		Category string               `json:"category"`
		Tasks    []models.OrderUpdate `json:"tasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid request payload"})
		return
	}

	err := h.service.ReorderTasks(r.Context(), email, body.Category, body.Tasks)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": validationErr.Message})
			return
		}
		logging.Logger.Errorf("Event ID: TASKS_REORDER_FAILED, Description: Failed to reorder tasks for %s: %v", email, err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Tasks reordered successfully."})
}

// DeleteTask removes one task, scoped to (email, id).
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	email := vars["email"]
	id := vars["id"]

	err := h.service.DeleteTask(r.Context(), email, id)
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Message})
		case errors.Is(err, models.ErrTaskNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Task not found"})
		default:
			logging.Logger.Errorf("Event ID: TASK_DELETE_FAILED, Description: Failed to delete task %s: %v", id, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete task"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// Health reports liveness. It is wired independently of store
// connectivity, so the process keeps answering while the store is down.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  200,
		"message": "Hello, server running with real-time updates...",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response: %v", err)
	}
}
