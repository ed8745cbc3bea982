package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clinichat/entity"
)

// StoreFile writes the payload to GridFS under a random stored name
// (tenant-partitioned via metadata, collision-free by construction),
// records the Attachment row and returns it. The original filename is
// preserved as metadata only.
func (m *MongoDB) StoreFile(data []byte, meta entity.FileMetadata, baseURL string) (*entity.Attachment, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	storedName := meta.TenantID + "/" + uuid.NewString()

	bucket, err := gridfs.NewBucket(connection.Database(m.database))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}

	uploadOpts := options.GridFSUpload().SetMetadata(meta)
	uploadStream, err := bucket.OpenUploadStream(storedName, uploadOpts)
	if err != nil {
		return nil, fmt.Errorf("gridfs open upload: %w", err)
	}

	size, err := io.Copy(uploadStream, bytes.NewReader(data))
	if err != nil {
		uploadStream.Close()
		return nil, fmt.Errorf("gridfs copy: %w", err)
	}
	if err := uploadStream.Close(); err != nil {
		return nil, fmt.Errorf("gridfs close upload: %w", err)
	}

	attachment := &entity.Attachment{
		ID:           uuid.NewString(),
		TenantID:     meta.TenantID,
		ChatID:       meta.ChatID,
		StoredName:   storedName,
		OriginalName: meta.OriginalName,
		Category:     entity.CategoryForMIME(meta.MIMEType),
		Size:         size,
		MIMEType:     meta.MIMEType,
		UploadedBy:   meta.Uploader,
		CreatedAt:    time.Now(),
	}
	attachment.URL = baseURL + "/" + attachment.ID

	collection := connection.Database(m.database).Collection(attachmentsCollection)
	if _, err = collection.InsertOne(m.ctx, attachment); err != nil {
		return nil, fmt.Errorf("mongodb insert attachment: %w", err)
	}

	return attachment, nil
}

// GetAttachment returns an attachment record by id, or ErrNotFound.
func (m *MongoDB) GetAttachment(attachmentID string) (*entity.Attachment, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(attachmentsCollection)

	var attachment entity.Attachment
	err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: attachmentID}}).Decode(&attachment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongodb find attachment: %w", err)
	}

	return &attachment, nil
}

// gridfsReadCloser wraps a GridFS download stream and disconnects
// the MongoDB client when closed.
type gridfsReadCloser struct {
	stream     *gridfs.DownloadStream
	disconnect func()
}

func (r *gridfsReadCloser) Read(p []byte) (int, error) {
	return r.stream.Read(p)
}

func (r *gridfsReadCloser) Close() error {
	err := r.stream.Close()
	r.disconnect()
	return err
}

// OpenFile streams a stored file back by attachment id. The caller must
// close the returned ReadCloser to release the MongoDB connection.
func (m *MongoDB) OpenFile(attachmentID string) (*entity.Attachment, io.ReadCloser, error) {
	attachment, err := m.GetAttachment(attachmentID)
	if err != nil {
		return nil, nil, err
	}

	connection, err := m.connect()
	if err != nil {
		return nil, nil, err
	}

	bucket, err := gridfs.NewBucket(connection.Database(m.database))
	if err != nil {
		m.disconnect(connection)
		return nil, nil, fmt.Errorf("gridfs bucket: %w", err)
	}

	stream, err := bucket.OpenDownloadStreamByName(attachment.StoredName)
	if err != nil {
		m.disconnect(connection)
		return nil, nil, fmt.Errorf("gridfs open download: %w", err)
	}

	reader := &gridfsReadCloser{
		stream:     stream,
		disconnect: func() { m.disconnect(connection) },
	}

	return attachment, reader, nil
}
