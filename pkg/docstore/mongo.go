package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// mongoDoc is the stored envelope; the record itself lives under body so that
// record field names never collide with _id.
type mongoDoc struct {
	ID        string    `bson:"_id"`
	Body      bson.D    `bson:"body"`
	CreatedAt time.Time `bson:"created_at"`
}

// Mongo stores each collection as a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to uri, pings the server and uses the named database.
func NewMongo(ctx context.Context, uri, database string, logger *zap.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	if logger != nil {
		logger.Info("MongoDB client connected", zap.String("database", database))
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var doc mongoDoc
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return bodyJSON(doc.Body)
}

func (m *Mongo) Save(ctx context.Context, collection, id string, body json.RawMessage) error {
	var d bson.D
	if err := bson.UnmarshalExtJSON(body, false, &d); err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	update := bson.M{
		"$set":         bson.M{"body": d},
		"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
	}
	_, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) FindByField(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	return m.find(ctx, collection, bson.M{"body." + field: value})
}

func (m *Mongo) FindAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	return m.find(ctx, collection, bson.M{})
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) find(ctx context.Context, collection string, filter bson.M) ([]json.RawMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cur.Close(ctx)
	var list []json.RawMessage
	for cur.Next(ctx) {
		var doc mongoDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		raw, err := bodyJSON(doc.Body)
		if err != nil {
			return nil, err
		}
		list = append(list, raw)
	}
	return list, cur.Err()
}

func bodyJSON(d bson.D) (json.RawMessage, error) {
	raw, err := bson.MarshalExtJSON(d, false, false)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return raw, nil
}
