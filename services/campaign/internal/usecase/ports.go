package usecase

import (
	"io"

	"mao-amiga/pkg/queue"
)

// ObjectStorage is satisfied by *s3.Client.
type ObjectStorage interface {
	UploadFile(key string, body io.Reader, contentType string) (string, error)
	DeleteFile(key string) error
}

// TaskPublisher is satisfied by *queue.Client.
type TaskPublisher interface {
	PublishTask(task queue.Task) error
}
