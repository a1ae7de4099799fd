package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bbqpos/internal/store"
)

// EnsureMenuIndexes backs the name-ordered menu snapshot. Names are not
// unique.
func EnsureMenuIndexes(s *MongoStore) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := s.collection(store.MenuItems).Indexes()

	nameIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName("name_index"),
	}

	log.Println("EnsureMenuIndexes: creating name_index index")
	_, err := indexes.CreateOne(ctx, nameIndex)
	if err != nil {
		log.Println("EnsureMenuIndexes: name index error:", err)
		return err
	}
	log.Println("EnsureMenuIndexes: name_index index created")
	return nil
}

func EnsureOrderIndexes(s *MongoStore) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := s.collection(store.Orders).Indexes()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("timestamp_desc"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
	}

	log.Println("EnsureOrderIndexes: creating timestamp_desc and userId_index indexes")
	_, err := indexes.CreateMany(ctx, indexModels)
	if err != nil {
		log.Println("EnsureOrderIndexes: order index error:", err)
		return err
	}
	log.Println("EnsureOrderIndexes: order indexes created")
	return nil
}
