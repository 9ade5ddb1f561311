// Package userdb looks up application accounts in the MongoDB user
// collection of the application under test.
package userdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nhle/opencart-qa/internal/model"
)

// ErrNotFound is returned when no document has the requested user_name.
var ErrNotFound = errors.New("user not found")

const defaultTimeout = 10 * time.Second

// User is the subset of a user document the suite reads.
type User struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	UserName string        `bson:"user_name"`
	Name     string        `bson:"name,omitempty"`
	Email    string        `bson:"email_id,omitempty"`
	Role     string        `bson:"role,omitempty"`
}

// Store reads the user collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     *slog.Logger
}

// Open connects to cfg.URI and verifies the server is reachable.
func Open(ctx context.Context, cfg model.MongoConfig, logger *slog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(defaultTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB", "database", cfg.DatabaseName, "collection", cfg.CollectionName)

	return &Store{
		client:     client,
		collection: client.Database(cfg.DatabaseName).Collection(cfg.CollectionName),
		timeout:    defaultTimeout,
		logger:     logger,
	}, nil
}

// FindUser returns the document whose user_name is userName.
func (s *Store) FindUser(ctx context.Context, userName string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var u User
	err := s.collection.FindOne(ctx, bson.M{"user_name": userName}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", userName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding user %s: %w", userName, err)
	}
	return &u, nil
}

// FindUserName returns the stored user_name for email. Accounts are keyed
// by their email address, so a hit echoes the input.
func (s *Store) FindUserName(ctx context.Context, email string) (string, error) {
	u, err := s.FindUser(ctx, email)
	if err != nil {
		return "", err
	}
	s.logger.Debug("user found", "user_name", u.UserName)
	return u.UserName, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	return nil
}
