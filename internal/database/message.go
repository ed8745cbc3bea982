package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clinichat/entity"
)

// InsertMessage persists a new chat message.
func (m *MongoDB) InsertMessage(msg *entity.Message) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	collection := connection.Database(m.database).Collection(messagesCollection)
	if _, err = collection.InsertOne(m.ctx, msg); err != nil {
		return fmt.Errorf("mongodb insert message: %w", err)
	}

	return nil
}

// GetMessage returns a message by id, or ErrNotFound.
func (m *MongoDB) GetMessage(messageID string) (*entity.Message, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	var msg entity.Message
	err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: messageID}}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb find message: %w", err)
	}

	return &msg, nil
}

// UpdateMessageContent rewrites a message's content and marks it edited.
func (m *MongoDB) UpdateMessageContent(messageID, content string, editedAt time.Time) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "content", Value: content},
		{Key: "edited", Value: true},
		{Key: "edited_at", Value: editedAt},
	}}}
	result, err := collection.UpdateOne(m.ctx, bson.D{{Key: "_id", Value: messageID}}, update)
	if err != nil {
		return fmt.Errorf("mongodb update message: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteMessage removes a message permanently. No tombstone is kept.
func (m *MongoDB) DeleteMessage(messageID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	result, err := collection.DeleteOne(m.ctx, bson.D{{Key: "_id", Value: messageID}})
	if err != nil {
		return fmt.Errorf("mongodb delete message: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// GetChatMessages returns messages for a chat, paginated, newest first.
func (m *MongoDB) GetChatMessages(chatID string, limit, offset int) ([]entity.Message, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(m.ctx, bson.D{{Key: "chat_id", Value: chatID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find messages: %w", err)
	}
	defer cursor.Close(m.ctx)

	var messages []entity.Message
	if err = cursor.All(m.ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode messages: %w", err)
	}

	return messages, nil
}

// UpsertReadReceipt records that a user has read a message. Repeated calls
// for the same (message, user) pair refresh ReadAt and never create a
// second row.
func (m *MongoDB) UpsertReadReceipt(receipt entity.MessageReadReceipt) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(readReceiptsCollection)

	filter := bson.D{{Key: "message_id", Value: receipt.MessageID}, {Key: "user_id", Value: receipt.UserID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "read_at", Value: receipt.ReadAt}}}}
	opts := options.Update().SetUpsert(true)

	if _, err = collection.UpdateOne(m.ctx, filter, update, opts); err != nil {
		return fmt.Errorf("mongodb upsert read receipt: %w", err)
	}

	return nil
}
