package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"devnotes/api/internal/ids"
	"devnotes/api/internal/models"
	"devnotes/api/internal/repository"
	"devnotes/api/internal/storage"
)

var (
	ErrFileNotFound = errors.New("file not found")
	// ErrFileGone means the metadata exists but the bytes are missing on
	// disk, a recoverable condition distinct from not-found.
	ErrFileGone    = errors.New("file bytes gone")
	ErrForbidden   = errors.New("forbidden")
	ErrEmptyUpload = errors.New("no files attached")
)

type fileStore interface {
	Create(ctx context.Context, file models.File) error
	GetByID(ctx context.Context, id string) (models.File, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.File, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.File, error)
	Delete(ctx context.Context, id string) error
}

type FileService struct {
	files  fileStore
	store  *storage.LocalStore
	mirror *storage.Mirror
	audit  *AuditRecorder
	log    zerolog.Logger
}

func NewFileService(files fileStore, store *storage.LocalStore, mirror *storage.Mirror, audit *AuditRecorder, log zerolog.Logger) *FileService {
	return &FileService{
		files:  files,
		store:  store,
		mirror: mirror,
		audit:  audit,
		log:    log,
	}
}

type UploadItem struct {
	Name     string
	MimeType string
	Reader   io.Reader
}

type SavedFile struct {
	ID   string
	Name string
}

// Upload persists a batch of items sequentially. There is no multi-item
// transaction: when an item fails, previously saved items remain and are
// returned alongside the error. Admin uploads get a fresh batch folder per
// request so each admin upload session is isolated.
func (s *FileService) Upload(ctx context.Context, user models.User, isAdmin bool, items []UploadItem) ([]SavedFile, string, error) {
	if len(items) == 0 {
		return nil, "", ErrEmptyUpload
	}

	batch := ""
	if isAdmin {
		batch = "admin-" + strconv.FormatInt(time.Now().Unix(), 10)
	}

	saved := make([]SavedFile, 0, len(items))
	for _, item := range items {
		rel, size, err := s.store.Save(user.ID, batch, item.Name, item.Reader)
		if err != nil {
			return saved, batch, fmt.Errorf("save %q: %w", item.Name, err)
		}

		mimeType := item.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		file := models.File{
			ID:        ids.New(),
			UserID:    user.ID,
			Name:      storage.SanitizeFilename(item.Name),
			MimeType:  mimeType,
			SizeBytes: size,
			RelPath:   rel,
			Batch:     batch,
		}

		if err := s.files.Create(ctx, file); err != nil {
			// Bytes without a record are unreachable; take them back out.
			if rerr := s.store.Remove(rel); rerr != nil {
				s.log.Warn().Err(rerr).Str("rel_path", rel).Msg("orphan cleanup failed")
			}
			return saved, batch, fmt.Errorf("record %q: %w", item.Name, err)
		}

		saved = append(saved, SavedFile{ID: file.ID, Name: file.Name})

		if s.mirror != nil {
			if err := s.mirror.UploadFile(ctx, rel, mimeType); err != nil {
				s.log.Warn().Err(err).Str("rel_path", rel).Msg("mirror upload failed")
			}
		}
	}

	s.audit.Record(ctx, models.EventUpload, user, map[string]string{
		"count": strconv.Itoa(len(saved)),
		"batch": batch,
	})

	return saved, batch, nil
}

// List returns the caller's own files, or everyone's when scope is "all"
// and the caller holds admin privilege.
func (s *FileService) List(ctx context.Context, user models.User, isAdmin bool, scope string, limit, offset int) ([]models.File, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	if scope == "all" {
		if !isAdmin {
			return nil, ErrForbidden
		}
		return s.files.ListAll(ctx, limit, offset)
	}
	return s.files.ListByUser(ctx, user.ID, limit, offset)
}

// Open resolves a file record to its bytes. Reads follow the same rule as
// deletes, plus an admin override: a non-owner without privilege gets
// ErrFileNotFound, never a hint that the id exists. The caller owns
// closing the returned handle.
func (s *FileService) Open(ctx context.Context, id string, user models.User, isAdmin bool) (models.File, *os.File, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return models.File{}, nil, ErrFileNotFound
		}
		return models.File{}, nil, err
	}

	if file.UserID != user.ID && !isAdmin {
		return models.File{}, nil, ErrFileNotFound
	}

	f, _, err := s.store.Open(file.RelPath)
	if err != nil {
		if errors.Is(err, storage.ErrMissing) {
			return file, nil, ErrFileGone
		}
		if errors.Is(err, storage.ErrPathEscapesRoot) {
			// A record pointing outside the root is never served.
			return models.File{}, nil, ErrFileNotFound
		}
		return models.File{}, nil, err
	}

	return file, f, nil
}

// Delete is strictly owner-only; a non-owner gets the same ErrFileNotFound
// a stranger would, so the record's existence is not revealed. Bytes are
// removed best-effort, the metadata unconditionally.
func (s *FileService) Delete(ctx context.Context, id string, user models.User) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	if file.UserID != user.ID {
		return ErrFileNotFound
	}

	if err := s.store.Remove(file.RelPath); err != nil {
		s.log.Warn().Err(err).Str("file_id", id).Msg("removing file bytes failed")
	}

	if err := s.files.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return ErrFileNotFound
		}
		return err
	}
	return nil
}
