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

// CreateChat inserts a chat and its creator's participant row. The creator
// is admin for PRIVATE and GROUP chats.
func (m *MongoDB) CreateChat(chat *entity.Chat) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	chat.Active = true

	collection := connection.Database(m.database).Collection(chatsCollection)
	if _, err = collection.InsertOne(m.ctx, chat); err != nil {
		return fmt.Errorf("mongodb insert chat: %w", err)
	}

	if chat.CreatedBy != "" {
		admin := chat.Kind != entity.ChatGeneral
		if err := m.upsertParticipant(connection, chat.ID, chat.CreatedBy, chat.TenantID, admin); err != nil {
			return err
		}
	}

	return nil
}

// GetChat returns a chat by id, or ErrNotFound.
func (m *MongoDB) GetChat(chatID string) (*entity.Chat, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatsCollection)

	var chat entity.Chat
	err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: chatID}}).Decode(&chat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb find chat: %w", err)
	}

	return &chat, nil
}

// GetGeneralChat returns the tenant's GENERAL chat, or ErrNotFound if it has
// not been created yet.
func (m *MongoDB) GetGeneralChat(tenantID string) (*entity.Chat, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatsCollection)

	var chat entity.Chat
	filter := bson.D{{Key: "tenant_id", Value: tenantID}, {Key: "kind", Value: entity.ChatGeneral}}
	err = collection.FindOne(m.ctx, filter).Decode(&chat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb find general chat: %w", err)
	}

	return &chat, nil
}

// GetOrCreatePrivateChat returns the private chat between two users within a
// tenant, creating it on first use. Idempotent per unordered user pair: both
// orderings resolve to the same chat.
func (m *MongoDB) GetOrCreatePrivateChat(tenantID, userA, userB string) (*entity.Chat, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	// Normalize the pair so lookup is order-independent.
	if userB < userA {
		userA, userB = userB, userA
	}
	pairKey := userA + ":" + userB

	collection := connection.Database(m.database).Collection(chatsCollection)

	var chat entity.Chat
	filter := bson.D{
		{Key: "tenant_id", Value: tenantID},
		{Key: "kind", Value: entity.ChatPrivate},
		{Key: "pair_key", Value: pairKey},
	}
	err = collection.FindOne(m.ctx, filter).Decode(&chat)
	if err == nil {
		return &chat, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongodb find private chat: %w", err)
	}

	now := time.Now()
	chat = entity.Chat{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Kind:      entity.ChatPrivate,
		CreatedBy: userA,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	doc := bson.D{
		{Key: "_id", Value: chat.ID},
		{Key: "tenant_id", Value: chat.TenantID},
		{Key: "kind", Value: chat.Kind},
		{Key: "created_by", Value: chat.CreatedBy},
		{Key: "active", Value: chat.Active},
		{Key: "created_at", Value: chat.CreatedAt},
		{Key: "updated_at", Value: chat.UpdatedAt},
		{Key: "pair_key", Value: pairKey},
	}
	if _, err = collection.InsertOne(m.ctx, doc); err != nil {
		return nil, fmt.Errorf("mongodb insert private chat: %w", err)
	}

	for _, userID := range []string{userA, userB} {
		if err := m.upsertParticipant(connection, chat.ID, userID, tenantID, true); err != nil {
			return nil, err
		}
	}

	return &chat, nil
}

// upsertParticipant inserts a participant row if absent and reactivates it
// if present. Keyed on (chat_id, user_id), so repeated calls self-heal a
// partially backfilled chat.
func (m *MongoDB) upsertParticipant(connection *mongo.Client, chatID, userID, tenantID string, admin bool) error {
	collection := connection.Database(m.database).Collection(participantsCollection)

	filter := bson.D{{Key: "chat_id", Value: chatID}, {Key: "user_id", Value: userID}}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "active", Value: true}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "tenant_id", Value: tenantID},
			{Key: "admin", Value: admin},
			{Key: "joined_at", Value: time.Now()},
		}},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := collection.UpdateOne(m.ctx, filter, update, opts); err != nil {
		return fmt.Errorf("mongodb upsert participant: %w", err)
	}
	return nil
}

// EnsureParticipant adds the user to the chat if they are not already an
// active participant.
func (m *MongoDB) EnsureParticipant(chatID, userID, tenantID string, admin bool) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	return m.upsertParticipant(connection, chatID, userID, tenantID, admin)
}

// IsParticipant reports whether the user is an active participant of the chat.
func (m *MongoDB) IsParticipant(chatID, userID string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(participantsCollection)

	filter := bson.D{{Key: "chat_id", Value: chatID}, {Key: "user_id", Value: userID}, {Key: "active", Value: true}}
	count, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return false, fmt.Errorf("mongodb count participants: %w", err)
	}

	return count > 0, nil
}

// GetParticipants returns every active participant of the chat.
func (m *MongoDB) GetParticipants(chatID string) ([]entity.ChatParticipant, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(participantsCollection)

	cursor, err := collection.Find(m.ctx, bson.D{{Key: "chat_id", Value: chatID}, {Key: "active", Value: true}})
	if err != nil {
		return nil, fmt.Errorf("mongodb find participants: %w", err)
	}
	defer cursor.Close(m.ctx)

	var participants []entity.ChatParticipant
	if err = cursor.All(m.ctx, &participants); err != nil {
		return nil, fmt.Errorf("mongodb decode participants: %w", err)
	}

	return participants, nil
}

// GetTenantChats returns the caller's chats within a tenant, each with its
// participants, last message and the caller's unread count.
func (m *MongoDB) GetTenantChats(tenantID, userID string) ([]entity.ChatView, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	cursor, err := db.Collection(participantsCollection).Find(m.ctx,
		bson.D{{Key: "tenant_id", Value: tenantID}, {Key: "user_id", Value: userID}, {Key: "active", Value: true}})
	if err != nil {
		return nil, fmt.Errorf("mongodb find memberships: %w", err)
	}
	var memberships []entity.ChatParticipant
	if err = cursor.All(m.ctx, &memberships); err != nil {
		return nil, fmt.Errorf("mongodb decode memberships: %w", err)
	}

	views := make([]entity.ChatView, 0, len(memberships))
	for _, membership := range memberships {
		var chat entity.Chat
		err = db.Collection(chatsCollection).
			FindOne(m.ctx, bson.D{{Key: "_id", Value: membership.ChatID}, {Key: "active", Value: true}}).
			Decode(&chat)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return nil, fmt.Errorf("mongodb find chat: %w", err)
		}

		view := entity.ChatView{Chat: chat}

		view.Participants, err = m.participantsWith(connection, chat.ID)
		if err != nil {
			return nil, err
		}

		var last entity.Message
		opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
		err = db.Collection(messagesCollection).
			FindOne(m.ctx, bson.D{{Key: "chat_id", Value: chat.ID}}, opts).
			Decode(&last)
		if err == nil {
			view.LastMessage = &last
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongodb find last message: %w", err)
		}

		view.UnreadCount, err = m.unreadCount(connection, chat.ID, userID)
		if err != nil {
			return nil, err
		}

		views = append(views, view)
	}

	return views, nil
}

func (m *MongoDB) participantsWith(connection *mongo.Client, chatID string) ([]entity.ChatParticipant, error) {
	collection := connection.Database(m.database).Collection(participantsCollection)

	cursor, err := collection.Find(m.ctx, bson.D{{Key: "chat_id", Value: chatID}, {Key: "active", Value: true}})
	if err != nil {
		return nil, fmt.Errorf("mongodb find participants: %w", err)
	}
	defer cursor.Close(m.ctx)

	var participants []entity.ChatParticipant
	if err = cursor.All(m.ctx, &participants); err != nil {
		return nil, fmt.Errorf("mongodb decode participants: %w", err)
	}
	return participants, nil
}

// unreadCount counts chat messages from other senders that the user has not
// acknowledged with a read receipt.
func (m *MongoDB) unreadCount(connection *mongo.Client, chatID, userID string) (int, error) {
	db := connection.Database(m.database)

	cursor, err := db.Collection(messagesCollection).Find(m.ctx,
		bson.D{{Key: "chat_id", Value: chatID}, {Key: "sender_id", Value: bson.D{{Key: "$ne", Value: userID}}}},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return 0, fmt.Errorf("mongodb find unread candidates: %w", err)
	}
	var ids []struct {
		ID string `bson:"_id"`
	}
	if err = cursor.All(m.ctx, &ids); err != nil {
		return 0, fmt.Errorf("mongodb decode unread candidates: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	messageIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		messageIDs = append(messageIDs, id.ID)
	}

	read, err := db.Collection(readReceiptsCollection).CountDocuments(m.ctx,
		bson.D{{Key: "user_id", Value: userID}, {Key: "message_id", Value: bson.D{{Key: "$in", Value: messageIDs}}}})
	if err != nil {
		return 0, fmt.Errorf("mongodb count receipts: %w", err)
	}

	return len(messageIDs) - int(read), nil
}
