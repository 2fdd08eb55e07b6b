package database

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"sortec/entity"
	"sortec/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionRegistrations = "registrations"
	collectionCounters      = "counters"
	counterRegistration     = "registration"
)

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
	mu            sync.Mutex
	connection    *mongo.Client
}

type counter struct {
	Id    string `bson:"_id"`
	Value int64  `bson:"value"`
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

// connect returns the shared client, dialing on first use.
func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connection != nil {
		return m.connection, nil
	}
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	m.connection = connection
	return connection, nil
}

func (m *MongoDB) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connection != nil {
		_ = m.connection.Disconnect(ctx)
		m.connection = nil
	}
}

func (m *MongoDB) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	return connection.Database(m.database).Collection(name), nil
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureIndexes creates the unique contest code index.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	collection, err := m.collection(ctx, collectionRegistrations)
	if err != nil {
		return err
	}
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "contest_code", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (m *MongoDB) CreateRegistration(ctx context.Context, reg *entity.Registration) error {
	collection, err := m.collection(ctx, collectionRegistrations)
	if err != nil {
		return err
	}
	_, err = collection.InsertOne(ctx, reg)
	return err
}

func (m *MongoDB) GetRegistration(ctx context.Context, id string) (*entity.Registration, error) {
	return m.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (m *MongoDB) GetRegistrationByCode(ctx context.Context, code string) (*entity.Registration, error) {
	return m.findOne(ctx, bson.D{{Key: "contest_code", Value: code}})
}

func (m *MongoDB) findOne(ctx context.Context, filter bson.D) (*entity.Registration, error) {
	collection, err := m.collection(ctx, collectionRegistrations)
	if err != nil {
		return nil, err
	}
	var reg entity.Registration
	err = collection.FindOne(ctx, filter).Decode(&reg)
	if err != nil {
		return nil, m.findError(err)
	}
	return &reg, nil
}

// Registrations streams the collection through a cursor in natural order.
func (m *MongoDB) Registrations(ctx context.Context) iter.Seq2[*entity.Registration, error] {
	return func(yield func(*entity.Registration, error) bool) {
		collection, err := m.collection(ctx, collectionRegistrations)
		if err != nil {
			yield(nil, err)
			return
		}
		cursor, err := collection.Find(ctx, bson.D{})
		if err != nil {
			yield(nil, err)
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var reg entity.Registration
			if err = cursor.Decode(&reg); err != nil {
				yield(nil, err)
				return
			}
			if !yield(&reg, nil) {
				return
			}
		}
		if err = cursor.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (m *MongoDB) UpdateParticipant(ctx context.Context, id string, p *entity.Participant) (bool, error) {
	collection, err := m.collection(ctx, collectionRegistrations)
	if err != nil {
		return false, err
	}
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{{Key: "$set", Value: p}}
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// SetStatus is a compare-and-swap on the status field.
func (m *MongoDB) SetStatus(ctx context.Context, id string, from, to entity.Status, at time.Time) (bool, error) {
	collection, err := m.collection(ctx, collectionRegistrations)
	if err != nil {
		return false, err
	}
	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: from}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: to},
		{Key: "decided_at", Value: at},
	}}}
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (m *MongoDB) DeleteRegistration(ctx context.Context, id string) (bool, error) {
	collection, err := m.collection(ctx, collectionRegistrations)
	if err != nil {
		return false, err
	}
	result, err := collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (m *MongoDB) CountRegistrations(ctx context.Context) (int64, error) {
	collection, err := m.collection(ctx, collectionRegistrations)
	if err != nil {
		return 0, err
	}
	return collection.CountDocuments(ctx, bson.D{})
}

// Next atomically increments the registration counter and returns the new value.
func (m *MongoDB) Next(ctx context.Context) (int64, error) {
	collection, err := m.collection(ctx, collectionCounters)
	if err != nil {
		return 0, err
	}
	filter := bson.D{{Key: "_id", Value: counterRegistration}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c counter
	if err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return c.Value, nil
}

// Seed creates the counter with the given value if it does not exist yet.
func (m *MongoDB) Seed(ctx context.Context, floor int64) error {
	collection, err := m.collection(ctx, collectionCounters)
	if err != nil {
		return err
	}
	filter := bson.D{{Key: "_id", Value: counterRegistration}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "value", Value: floor}}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("seed counter: %w", err)
	}
	return nil
}
