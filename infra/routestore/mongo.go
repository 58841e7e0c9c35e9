package routestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kilianp07/dutyplan/core/model"
	core "github.com/kilianp07/dutyplan/core/routestore"
)

// RoutesCollection is the collection holding route documents.
const RoutesCollection = "busroutes"

// MongoStore keeps routes in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// OpenMongo connects to uri and pings the server before returning.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(RoutesCollection),
		now:    time.Now,
	}, nil
}

func (s *MongoStore) List(ctx context.Context) ([]core.Route, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	res := []core.Route{}
	if err := cur.All(ctx, &res); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	for i := range res {
		normalizeTimes(&res[i])
	}
	return res, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (core.Route, error) {
	var r core.Route
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Route{}, core.ErrNotFound
	}
	if err != nil {
		return core.Route{}, fmt.Errorf("get route %s: %w", id, err)
	}
	normalizeTimes(&r)
	return r, nil
}

func (s *MongoStore) Create(ctx context.Context, doc model.RouteDocument) (core.Route, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	r := core.Route{ID: uuid.NewString(), RouteDocument: doc, CreatedAt: now, UpdatedAt: now}
	if _, err := s.coll.InsertOne(ctx, r); err != nil {
		return core.Route{}, fmt.Errorf("insert route: %w", err)
	}
	return r, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, doc model.RouteDocument) (core.Route, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return core.Route{}, err
	}
	r := core.Route{ID: id, RouteDocument: doc, CreatedAt: prev.CreatedAt, UpdatedAt: s.now().UTC().Truncate(time.Millisecond)}
	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, r)
	if err != nil {
		return core.Route{}, fmt.Errorf("update route %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return core.Route{}, core.ErrNotFound
	}
	return r, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete route %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func normalizeTimes(r *core.Route) {
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
}
