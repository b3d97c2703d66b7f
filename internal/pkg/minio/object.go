package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectInfo is the metadata of a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// UploadInfo describes an uploaded object
type UploadInfo struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// PutObject uploads an object; size may be -1 when unknown.
func (c *Client) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (UploadInfo, error) {
	if err := c.checkClosed(); err != nil {
		return UploadInfo{}, err
	}
	if bucket == "" || key == "" {
		return UploadInfo{}, wrapError("PutObject", ErrInvalidArgument, bucket, key)
	}

	info, err := c.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return UploadInfo{}, wrapError("PutObject", err, bucket, key)
	}

	c.logger.Debug("object uploaded",
		zap.String("bucket", bucket),
		zap.String("object", key),
		zap.Int64("size", info.Size))
	return UploadInfo{Bucket: info.Bucket, Key: info.Key, ETag: info.ETag, Size: info.Size}, nil
}

// StatObject returns object metadata
func (c *Client) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	if err := c.checkClosed(); err != nil {
		return ObjectInfo{}, err
	}
	if bucket == "" || key == "" {
		return ObjectInfo{}, wrapError("StatObject", ErrInvalidArgument, bucket, key)
	}

	info, err := c.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, wrapError("StatObject", err, bucket, key)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// OpenObject opens an object for seekable reading. A missing object is
// reported up front as ErrObjectNotFound rather than on first read.
func (c *Client) OpenObject(ctx context.Context, bucket, key string) (io.ReadSeekCloser, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if bucket == "" || key == "" {
		return nil, wrapError("OpenObject", ErrInvalidArgument, bucket, key)
	}

	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapError("OpenObject", err, bucket, key)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, wrapError("OpenObject", err, bucket, key)
	}
	return obj, nil
}
