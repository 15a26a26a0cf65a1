package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	logx "hwbot/pkg/logx"
)

const defaultMongoDatabase = "hwbot"

type mongoStore struct {
	client *mongo.Client
	state  *mongo.Collection
	log    logx.Logger
	key    string
}

type mongoState struct {
	ID    string `bson:"_id"`
	State `bson:",inline"`
}

func openMongo(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("storage.uri is required for mongodb driver")
	}
	dbName := strings.TrimSpace(cfg.Database)
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(dbName)
	s := &mongoStore{
		client: client,
		state:  db.Collection("poll_state"),
		log:    log,
		key:    cfg.Key,
	}
	log.Debug("mongodb store ready", logx.String("database", dbName))
	return s, nil
}

func (s *mongoStore) LoadState(ctx context.Context) (State, bool, error) {
	var doc mongoState
	err := s.state.FindOne(ctx, bson.M{"_id": s.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	return doc.State, true, nil
}

func (s *mongoStore) SaveState(ctx context.Context, st State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	opts := options.UpdateOne().SetUpsert(true)
	_, err := s.state.UpdateOne(ctx, bson.M{"_id": s.key}, bson.M{"$set": st}, opts)
	return err
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
