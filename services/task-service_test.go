package services

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard-api/broadcast"
	"taskboard-api/models"
)

type mockStore struct {
	tasks map[string]models.Task

	findErr   error
	insertErr error
	updateErr error
	bulkErr   error
	deleteErr error

	bulkCalls [][]models.OrderAssignment
}

func newMockStore() *mockStore {
	return &mockStore{tasks: map[string]models.Task{}}
}

func (m *mockStore) FindByEmail(_ context.Context, email string) ([]models.Task, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	tasks := []models.Task{}
	for _, t := range m.tasks {
		if t.Email == email {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return tasks, nil
}

func (m *mockStore) Insert(_ context.Context, task models.Task) (models.Task, error) {
	if m.insertErr != nil {
		return models.Task{}, m.insertErr
	}
	task.ID = primitive.NewObjectID()
	m.tasks[task.ID.Hex()] = task
	return task, nil
}

func (m *mockStore) UpdatePosition(_ context.Context, email string, id primitive.ObjectID, category string, order float64) (int64, error) {
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	task, ok := m.tasks[id.Hex()]
	if !ok || task.Email != email {
		return 0, nil
	}
	task.Category = category
	task.Order = order
	m.tasks[id.Hex()] = task
	return 1, nil
}

func (m *mockStore) UpdateContent(_ context.Context, email string, id primitive.ObjectID, fields models.ContentUpdate) (int64, error) {
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	task, ok := m.tasks[id.Hex()]
	if !ok || task.Email != email {
		return 0, nil
	}
	task.Title = fields.Title
	task.Description = fields.Description
	task.Category = fields.Category
	task.EndDate = fields.EndDate
	m.tasks[id.Hex()] = task
	return 1, nil
}

func (m *mockStore) BulkUpdateOrders(_ context.Context, email string, assignments []models.OrderAssignment) error {
	if m.bulkErr != nil {
		return m.bulkErr
	}
	m.bulkCalls = append(m.bulkCalls, assignments)
	for _, a := range assignments {
		task, ok := m.tasks[a.ID.Hex()]
		if !ok || task.Email != email {
			continue
		}
		task.Order = a.Order
		m.tasks[a.ID.Hex()] = task
	}
	return nil
}

func (m *mockStore) Delete(_ context.Context, email string, id primitive.ObjectID) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	task, ok := m.tasks[id.Hex()]
	if !ok || task.Email != email {
		return 0, nil
	}
	delete(m.tasks, id.Hex())
	return 1, nil
}

type recordingNotifier struct {
	events []broadcast.Event
}

func (n *recordingNotifier) Publish(event broadcast.Event) {
	n.events = append(n.events, event)
}

func seedTask(t *testing.T, store *mockStore, email, title, category string, order float64) models.Task {
	t.Helper()
	task, err := store.Insert(context.Background(), models.Task{
		Email:    email,
		Title:    title,
		Category: category,
		Order:    order,
	})
	require.NoError(t, err)
	return task
}

func TestCreateTaskRequiresEmail(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	_, err := service.CreateTask(context.Background(), models.Task{Title: "T1"})

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "Email is required", validationErr.Message)
	assert.Empty(t, store.tasks)
	assert.Empty(t, notifier.events)
}

func TestCreateTaskStampsCreatedAtAndBroadcasts(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	created, err := service.CreateTask(context.Background(), models.Task{
		Email:    "a@x.com",
		Title:    "T1",
		Category: "todo",
	})

	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.False(t, created.CreatedAt.IsZero())

	require.Len(t, notifier.events, 1)
	assert.Equal(t, broadcast.TaskAdded, notifier.events[0].Type)
	assert.Equal(t, "a@x.com", notifier.events[0].Email)
	assert.Equal(t, created, notifier.events[0].Payload)
}

func TestMoveTaskNotFound(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	err := service.MoveTask(context.Background(), "a@x.com", primitive.NewObjectID().Hex(), "done", 0)

	assert.ErrorIs(t, err, models.ErrTaskNotFound)
	assert.Empty(t, notifier.events)
}

func TestMoveTaskPersistsVerbatimOrderAndBroadcastsSnapshot(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	task := seedTask(t, store, "a@x.com", "T1", "todo", 1)

	err := service.MoveTask(context.Background(), "a@x.com", task.ID.Hex(), "done", 1.5)
	require.NoError(t, err)

	moved := store.tasks[task.ID.Hex()]
	assert.Equal(t, "done", moved.Category)
	assert.Equal(t, 1.5, moved.Order)

	require.Len(t, notifier.events, 1)
	snapshot := notifier.events[0]
	assert.Equal(t, broadcast.TaskUpdated, snapshot.Type)
	tasks, ok := snapshot.Payload.([]models.Task)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, "done", tasks[0].Category)
}

func TestMoveTaskRejectsMalformedID(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	err := service.MoveTask(context.Background(), "a@x.com", "not-a-hex-id", "done", 0)

	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Empty(t, notifier.events)
}

func TestReorderRejectsWholeBatchOnMalformedID(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	task := seedTask(t, store, "a@x.com", "T1", "todo", 1)

	err := service.ReorderTasks(context.Background(), "a@x.com", "todo", []models.OrderUpdate{
		{ID: task.ID.Hex(), Order: 2},
		{ID: "bogus", Order: 1},
	})

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, store.bulkCalls, "no partial batch may reach the store")
	assert.Equal(t, 1.0, store.tasks[task.ID.Hex()].Order)
	assert.Empty(t, notifier.events)
}

func TestReorderSwapsRanks(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	first := seedTask(t, store, "a@x.com", "task 1", "todo", 1)
	second := seedTask(t, store, "a@x.com", "task 2", "todo", 2)

	err := service.ReorderTasks(context.Background(), "a@x.com", "todo", []models.OrderUpdate{
		{ID: first.ID.Hex(), Order: 2},
		{ID: second.ID.Hex(), Order: 1},
	})
	require.NoError(t, err)

	tasks, err := service.GetTasks(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "task 2", tasks[0].Title)
	assert.Equal(t, "task 1", tasks[1].Title)
	assert.NotEqual(t, tasks[0].Order, tasks[1].Order)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, broadcast.TaskUpdated, notifier.events[0].Type)
}

func TestReorderEmptyListIsNoopSuccess(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	err := service.ReorderTasks(context.Background(), "a@x.com", "todo", nil)

	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, broadcast.TaskUpdated, notifier.events[0].Type)
}

func TestReorderStoreFailurePropagates(t *testing.T) {
	store := newMockStore()
	store.bulkErr = &models.StoreError{Op: "bulk update", Err: errors.New("connection reset")}
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	err := service.ReorderTasks(context.Background(), "a@x.com", "todo", []models.OrderUpdate{
		{ID: primitive.NewObjectID().Hex(), Order: 1},
	})

	var storeErr *models.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.Empty(t, notifier.events)
}

func TestUpdateContentZeroModifiedIsNotFound(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	err := service.UpdateTaskContent(context.Background(), "a@x.com", primitive.NewObjectID().Hex(), models.ContentUpdate{Title: "new"})

	assert.ErrorIs(t, err, models.ErrTaskNotFound)
	assert.Empty(t, notifier.events)
}

func TestUpdateContentBroadcastsSnapshot(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	task := seedTask(t, store, "a@x.com", "T1", "todo", 1)

	err := service.UpdateTaskContent(context.Background(), "a@x.com", task.ID.Hex(), models.ContentUpdate{
		Title:    "T1 edited",
		Category: "todo",
	})
	require.NoError(t, err)

	assert.Equal(t, "T1 edited", store.tasks[task.ID.Hex()].Title)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, broadcast.TaskUpdated, notifier.events[0].Type)
}

func TestDeleteTaskIdempotence(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	task := seedTask(t, store, "a@x.com", "T1", "todo", 1)

	err := service.DeleteTask(context.Background(), "a@x.com", task.ID.Hex())
	require.NoError(t, err)

	err = service.DeleteTask(context.Background(), "a@x.com", task.ID.Hex())
	assert.ErrorIs(t, err, models.ErrTaskNotFound)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, broadcast.TaskDeleted, notifier.events[0].Type)
	assert.Equal(t, task.ID.Hex(), notifier.events[0].Payload)
}

func TestTenantIsolation(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	service := NewTaskService(store, notifier)

	seedTask(t, store, "a@x.com", "A task", "todo", 1)
	seedTask(t, store, "b@x.com", "B task", "todo", 1)

	tasks, err := service.GetTasks(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	for _, task := range tasks {
		assert.Equal(t, "a@x.com", task.Email)
	}

	// Deleting A's task under B's key must not touch it.
	err = service.DeleteTask(context.Background(), "b@x.com", tasks[0].ID.Hex())
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestGetTasksStoreErrorPropagates(t *testing.T) {
	store := newMockStore()
	store.findErr = &models.StoreError{Op: "find", Err: errors.New("no reachable servers")}
	service := NewTaskService(store, &recordingNotifier{})

	_, err := service.GetTasks(context.Background(), "a@x.com")

	var storeErr *models.StoreError
	assert.ErrorAs(t, err, &storeErr)
}
