package storage

import "context"

// Storage хранит загруженные файлы работ под ключом, который записывается в submissions.file_path.
type Storage interface {
	Save(ctx context.Context, key string, content []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Provider() string
}
