package minio

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrObjectNotFound wraps fs.ErrNotExist so callers can test for it without importing this package.
	ErrObjectNotFound = fmt.Errorf("minio: object not found: %w", fs.ErrNotExist)

	ErrInvalidArgument = errors.New("minio: invalid argument")
	ErrClosed          = errors.New("minio: client is closed")
)

// Error represents a MinIO error with additional context
type Error struct {
	Op     string
	Err    error
	Bucket string
	Object string
}

func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Object != "":
		return fmt.Sprintf("minio: %s failed for bucket=%s, object=%s: %v", e.Op, e.Bucket, e.Object, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("minio: %s failed for bucket=%s: %v", e.Op, e.Bucket, e.Err)
	default:
		return fmt.Sprintf("minio: %s failed: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound checks if the error is a "not found" error
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchBucket" || code == "NoSuchKey"
}

// wrapError wraps an error with operation context, mapping missing objects to ErrObjectNotFound.
func wrapError(op string, err error, bucket, object string) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		err = fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	return &Error{Op: op, Err: err, Bucket: bucket, Object: object}
}
