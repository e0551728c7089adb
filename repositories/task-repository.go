package repositories

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"taskboard-api/logging"
	"taskboard-api/models"
)

// TaskRepository adapts the mongo task collection to the store contract.
// Every call goes through a circuit breaker so a dead store fails fast
// instead of piling up driver timeouts; failures surface as StoreError.
type TaskRepository struct {
	collection *mongo.Collection
	breaker    *gobreaker.CircuitBreaker
}

func NewTaskRepository(collection *mongo.Collection) *TaskRepository {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "TasksStoreCB",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &TaskRepository{collection: collection, breaker: breaker}
}

func (r *TaskRepository) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := r.breaker.Execute(fn)
	if err != nil {
		return nil, &models.StoreError{Op: op, Err: err}
	}
	return result, nil
}

// FindByEmail returns every task owned by the tenant; an empty board is an
// empty slice, not an error.
func (r *TaskRepository) FindByEmail(ctx context.Context, email string) ([]models.Task, error) {
	result, err := r.execute("find", func() (interface{}, error) {
		cursor, err := r.collection.Find(ctx, bson.M{"email": email})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		tasks := []models.Task{}
		for cursor.Next(ctx) {
			var task models.Task
			if err := cursor.Decode(&task); err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		if err := cursor.Err(); err != nil {
			return nil, err
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Task), nil
}

// Insert stores a new task and returns it with the assigned id.
func (r *TaskRepository) Insert(ctx context.Context, task models.Task) (models.Task, error) {
	result, err := r.execute("insert", func() (interface{}, error) {
		return r.collection.InsertOne(ctx, task)
	})
	if err != nil {
		return models.Task{}, err
	}
	task.ID = result.(*mongo.InsertOneResult).InsertedID.(primitive.ObjectID)
	return task, nil
}

// UpdatePosition moves one task to a new category and rank, matched on
// (id, email). The returned count is zero when no document matched.
func (r *TaskRepository) UpdatePosition(ctx context.Context, email string, id primitive.ObjectID, category string, order float64) (int64, error) {
	result, err := r.execute("update position", func() (interface{}, error) {
		return r.collection.UpdateOne(ctx,
			bson.M{"_id": id, "email": email},
			bson.M{"$set": bson.M{"category": category, "order": order}},
		)
	})
	if err != nil {
		return 0, err
	}
	return result.(*mongo.UpdateResult).MatchedCount, nil
}

// UpdateContent overwrites the content fields of one task, matched on
// (id, email). Returns the number of documents actually modified.
func (r *TaskRepository) UpdateContent(ctx context.Context, email string, id primitive.ObjectID, fields models.ContentUpdate) (int64, error) {
	result, err := r.execute("update content", func() (interface{}, error) {
		return r.collection.UpdateOne(ctx,
			bson.M{"_id": id, "email": email},
			bson.M{"$set": bson.M{
				"title":       fields.Title,
				"description": fields.Description,
				"category":    fields.Category,
				"endDate":     fields.EndDate,
			}},
		)
	})
	if err != nil {
		return 0, err
	}
	return result.(*mongo.UpdateResult).ModifiedCount, nil
}

// BulkUpdateOrders applies all rank assignments as a single batch write.
// The batch is issued together; per-document writes can still interleave
// with a concurrent reorder on the same category.
func (r *TaskRepository) BulkUpdateOrders(ctx context.Context, email string, assignments []models.OrderAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(assignments))
	for _, a := range assignments {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": a.ID, "email": email}).
			SetUpdate(bson.M{"$set": bson.M{"order": a.Order}}))
	}

	_, err := r.execute("bulk update", func() (interface{}, error) {
		return r.collection.BulkWrite(ctx, writes)
	})
	return err
}

// Delete removes one task matched on (id, email). Returns 0 or 1.
func (r *TaskRepository) Delete(ctx context.Context, email string, id primitive.ObjectID) (int64, error) {
	result, err := r.execute("delete", func() (interface{}, error) {
		return r.collection.DeleteOne(ctx, bson.M{"_id": id, "email": email})
	})
	if err != nil {
		return 0, err
	}
	return result.(*mongo.DeleteResult).DeletedCount, nil
}
