package repository

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clinichat/entity"
	"clinichat/internal/config"
	"clinichat/internal/lib/sl"
)

const (
	usersCollection         = "users"
	chatsCollection         = "chats"
	participantsCollection  = "chat-participants"
	messagesCollection      = "messages"
	readReceiptsCollection  = "message-read-receipts"
	notificationsCollection = "notifications"
	attachmentsCollection   = "attachments"
)

// ErrNotFound aliases the shared sentinel so callers of this package can
// match misses without importing entity.
var ErrNotFound = entity.ErrNotFound

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
	log           *slog.Logger
}

func NewMongoClient(conf *config.Config, logger *slog.Logger) (*MongoDB, error) {
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
		log:           logger.With(sl.Module("mongodb")),
	}
	return client, nil
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect error: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

// EnsureIndexes creates the unique indexes the chat invariants rely on:
// one GENERAL chat per tenant, one participant row per (chat, user), one
// read receipt per (message, user). Safe to call on every startup.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	_, err = db.Collection(chatsCollection).Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "kind", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "kind", Value: "GENERAL"}}),
	})
	if err != nil {
		return fmt.Errorf("mongodb general chat index: %w", err)
	}

	_, err = db.Collection(participantsCollection).Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb participant index: %w", err)
	}

	_, err = db.Collection(readReceiptsCollection).Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb read receipt index: %w", err)
	}

	_, err = db.Collection(notificationsCollection).Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "read", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongodb notification index: %w", err)
	}

	return nil
}
