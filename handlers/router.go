package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the task routes and the push-channel endpoint. The
// content-update and reorder routes register before the parameterized
// /tasks/{email}/{id} routes so mux matches them first.
func NewRouter(h *TaskHandler, events http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/tasks/update/{email}/{id}", h.UpdateTaskContent).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/reorder/{email}", h.ReorderTasks).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{email}/{id}", h.MoveTask).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/{email}/{id}", h.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/tasks/{email}", h.GetTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", h.CreateTask).Methods(http.MethodPost)
	r.Handle("/events", events).Methods(http.MethodGet)
	r.HandleFunc("/", h.Health).Methods(http.MethodGet)

	return r
}
