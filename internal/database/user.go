package repository

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"clinichat/entity"
)

// GetUser returns a user account by id, or ErrNotFound. The message
// pipeline resolves sender name and role through this lookup at send time.
func (m *MongoDB) GetUser(userID string) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(usersCollection)

	var user entity.User
	err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb find user: %w", err)
	}

	return &user, nil
}

// GetActiveTenantUsers returns every active user in a tenant. Used to
// backfill the general chat's participant list.
func (m *MongoDB) GetActiveTenantUsers(tenantID string) ([]entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(usersCollection)

	cursor, err := collection.Find(m.ctx, bson.D{{Key: "tenant_id", Value: tenantID}, {Key: "active", Value: true}})
	if err != nil {
		return nil, fmt.Errorf("mongodb find tenant users: %w", err)
	}
	defer cursor.Close(m.ctx)

	var users []entity.User
	if err = cursor.All(m.ctx, &users); err != nil {
		return nil, fmt.Errorf("mongodb decode tenant users: %w", err)
	}

	return users, nil
}
