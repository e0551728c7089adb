package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is a single board item. Order ranks the task inside its
// (email, category) partition; values only need to be distinct and
// sort-consistent, not contiguous, so a single drag can take a fractional
// rank between two neighbors without touching siblings.
type Task struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Email       string             `json:"email" bson:"email"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Category    string             `json:"category" bson:"category"`
	Order       float64            `json:"order" bson:"order"`
	EndDate     string             `json:"endDate,omitempty" bson:"endDate,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// OrderUpdate is one (task, rank) assignment as received on the wire
// inside a bulk reorder request.
type OrderUpdate struct {
	ID    string  `json:"_id"`
	Order float64 `json:"order"`
}

// OrderAssignment pairs a parsed task id with its new rank. A bulk reorder
// is only handed to the store once every wire id has parsed into one of
// these, so a malformed batch never reaches the collection.
type OrderAssignment struct {
	ID    primitive.ObjectID
	Order float64
}

// ContentUpdate carries the editable content fields of a task. All four
// fields are written verbatim; changing Category without a reorder leaves
// the task's rank relative to its old column.
type ContentUpdate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	EndDate     string `json:"endDate"`
}
