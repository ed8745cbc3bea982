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

// InsertNotification persists a notification for a single user.
func (m *MongoDB) InsertNotification(notification *entity.Notification) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	collection := connection.Database(m.database).Collection(notificationsCollection)
	if _, err = collection.InsertOne(m.ctx, notification); err != nil {
		return fmt.Errorf("mongodb insert notification: %w", err)
	}

	return nil
}

// GetNotification returns a notification by id, or ErrNotFound.
func (m *MongoDB) GetNotification(notificationID string) (*entity.Notification, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(notificationsCollection)

	var notification entity.Notification
	err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: notificationID}}).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb find notification: %w", err)
	}

	return &notification, nil
}

// MarkNotificationRead flips the read flag. The user filter enforces
// ownership: a caller can only mark their own notifications.
func (m *MongoDB) MarkNotificationRead(notificationID, userID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(notificationsCollection)

	filter := bson.D{{Key: "_id", Value: notificationID}, {Key: "user_id", Value: userID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "read", Value: true}}}}

	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// GetUnreadNotifications returns a user's unread notifications, newest first.
func (m *MongoDB) GetUnreadNotifications(tenantID, userID string) ([]entity.Notification, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(notificationsCollection)

	filter := bson.D{{Key: "tenant_id", Value: tenantID}, {Key: "user_id", Value: userID}, {Key: "read", Value: false}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find notifications: %w", err)
	}
	defer cursor.Close(m.ctx)

	var notifications []entity.Notification
	if err = cursor.All(m.ctx, &notifications); err != nil {
		return nil, fmt.Errorf("mongodb decode notifications: %w", err)
	}

	return notifications, nil
}
