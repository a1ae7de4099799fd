package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"bbqpos/internal/models"
	"bbqpos/internal/store"
)

// MongoStore implements store.Store on a MongoDB database. Every collection
// name carries the deployment namespace as a prefix.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	namespace    string
	pollInterval time.Duration
}

var _ store.Store = (*MongoStore)(nil)

func NewMongoStore(client *mongo.Client, dbName, namespace string, pollInterval time.Duration) *MongoStore {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &MongoStore{
		client:       client,
		db:           client.Database(dbName),
		namespace:    namespace,
		pollInterval: pollInterval,
	}
}

func (s *MongoStore) collection(coll store.Collection) *mongo.Collection {
	return s.db.Collection(s.namespace + "_" + string(coll))
}

func (s *MongoStore) Ping(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return s.client.Ping(checkCtx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	cursor, err := s.collection(store.MenuItems).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.MenuItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *MongoStore) InsertMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	res, err := s.collection(store.MenuItems).InsertOne(ctx, item)
	if err != nil {
		return models.MenuItem{}, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		item.ID = id
	}
	return item, nil
}

func (s *MongoStore) DeleteMenuItem(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.collection(store.MenuItems).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetCounter(ctx context.Context) (models.OrderCounter, error) {
	var counter models.OrderCounter
	err := s.collection(store.AppSettings).FindOne(ctx, bson.M{"_id": models.OrderCounterID}).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.OrderCounter{}, store.ErrNotFound
	}
	if err != nil {
		return models.OrderCounter{}, err
	}
	return counter, nil
}

func (s *MongoStore) SetCounter(ctx context.Context, count int) error {
	_, err := s.collection(store.AppSettings).ReplaceOne(
		ctx,
		bson.M{"_id": models.OrderCounterID},
		models.OrderCounter{ID: models.OrderCounterID, Count: count},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) UpdateCounter(ctx context.Context, count int) error {
	res, err := s.collection(store.AppSettings).UpdateOne(
		ctx,
		bson.M{"_id": models.OrderCounterID},
		bson.M{"$set": bson.M{"count": count}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	cursor, err := s.collection(store.Orders).Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *MongoStore) GetOrder(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var order models.Order
	err := s.collection(store.Orders).FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, store.ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *MongoStore) InsertOrder(ctx context.Context, order models.Order) (models.Order, error) {
	res, err := s.collection(store.Orders).InsertOne(ctx, order)
	if err != nil {
		return models.Order{}, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return order, nil
}

func (s *MongoStore) UpdateOrderItems(ctx context.Context, id primitive.ObjectID, items []models.OrderItem) error {
	return s.updateOrder(ctx, id, bson.M{"items": items})
}

func (s *MongoStore) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return s.updateOrder(ctx, id, bson.M{"status": status})
}

func (s *MongoStore) updateOrder(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	res, err := s.collection(store.Orders).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.collection(store.Orders).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Watch follows a change stream on the collection. Change streams need a
// replica set; on a standalone server the watch degrades to polling.
func (s *MongoStore) Watch(ctx context.Context, coll store.Collection) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(chan struct{}, 1)
	out <- struct{}{}

	stream, err := s.collection(coll).Watch(ctx, mongo.Pipeline{})
	go func() {
		defer close(out)

		if err != nil {
			log.Printf("[DB] [WARN] change stream on %s unavailable, polling every %s: %v", coll, s.pollInterval, err)
			s.poll(ctx, out)
			return
		}
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			signal(out)
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Printf("[DB] [WARN] change stream on %s ended, polling every %s: %v", coll, s.pollInterval, err)
			s.poll(ctx, out)
		}
	}()
	return out, nil
}

func (s *MongoStore) poll(ctx context.Context, out chan<- struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			signal(out)
		}
	}
}

// signal coalesces with a pending, undelivered signal.
func signal(out chan<- struct{}) {
	select {
	case out <- struct{}{}:
	default:
	}
}

func (s *MongoStore) String() string {
	return fmt.Sprintf("mongo(%s/%s)", s.db.Name(), s.namespace)
}
