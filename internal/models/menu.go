package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// MenuItem is a sellable item on the stall menu. Items are created and
// deleted, never edited.
type MenuItem struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Price float64            `bson:"price" json:"price"`
}
