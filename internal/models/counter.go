package models

// OrderCounterID is the document id of the singleton counter record inside
// the appSettings collection.
const OrderCounterID = "orderCounter"

// OrderCounter holds the number that the next committed order receives.
type OrderCounter struct {
	ID    string `bson:"_id" json:"-"`
	Count int    `bson:"count" json:"count"`
}
