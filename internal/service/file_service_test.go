package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"devnotes/api/internal/models"
	"devnotes/api/internal/repository"
	"devnotes/api/internal/storage"
)

type fakeFileStore struct {
	byID           map[string]models.File
	failCreateName string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{byID: make(map[string]models.File)}
}

func (f *fakeFileStore) Create(_ context.Context, file models.File) error {
	if f.failCreateName != "" && file.Name == f.failCreateName {
		return errors.New("insert failed")
	}
	f.byID[file.ID] = file
	return nil
}

func (f *fakeFileStore) GetByID(_ context.Context, id string) (models.File, error) {
	file, ok := f.byID[id]
	if !ok {
		return models.File{}, repository.ErrFileNotFound
	}
	return file, nil
}

func (f *fakeFileStore) ListByUser(_ context.Context, userID string, _, _ int) ([]models.File, error) {
	var out []models.File
	for _, file := range f.byID {
		if file.UserID == userID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFileStore) ListAll(_ context.Context, _, _ int) ([]models.File, error) {
	var out []models.File
	for _, file := range f.byID {
		out = append(out, file)
	}
	return out, nil
}

func (f *fakeFileStore) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrFileNotFound
	}
	delete(f.byID, id)
	return nil
}

func newTestFileService(t *testing.T) (*FileService, *fakeFileStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	files := newFakeFileStore()
	svc := NewFileService(files, store, nil, NewAuditRecorder(nil, zerolog.Nop()), zerolog.Nop())
	return svc, files
}

var testUser = models.User{ID: "user-1", Name: "Alice", Email: "alice@example.com"}

func TestUploadBatchRoundTrip(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()

	first := []byte("alpha contents")
	second := []byte{0x00, 0xff, 0x10, 0x42}

	saved, batch, err := svc.Upload(ctx, testUser, false, []UploadItem{
		{Name: "alpha.txt", MimeType: "text/plain", Reader: bytes.NewReader(first)},
		{Name: "beta.bin", Reader: bytes.NewReader(second)},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d files, want 2", len(saved))
	}
	if batch != "" {
		t.Errorf("non-admin upload batch = %q, want empty", batch)
	}

	file, f, err := svc.Open(ctx, saved[0].ID, testUser, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	read, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(read, first) {
		t.Error("read-back bytes differ from uploaded bytes")
	}
	if file.SizeBytes != int64(len(first)) {
		t.Errorf("recorded size = %d, want %d", file.SizeBytes, len(first))
	}
	if file.MimeType != "text/plain" {
		t.Errorf("mime = %q, want text/plain", file.MimeType)
	}

	second0, _, err := svc.Open(ctx, saved[1].ID, testUser, false)
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	if second0.MimeType != "application/octet-stream" {
		t.Errorf("default mime = %q, want application/octet-stream", second0.MimeType)
	}
}

func TestAdminUploadGetsBatchFolder(t *testing.T) {
	svc, files := newTestFileService(t)

	saved, batch, err := svc.Upload(context.Background(), testUser, true, []UploadItem{
		{Name: "a.txt", Reader: strings.NewReader("a")},
		{Name: "b.txt", Reader: strings.NewReader("b")},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(batch, "admin-") {
		t.Errorf("admin batch = %q, want admin- prefix", batch)
	}
	for _, s := range saved {
		file := files.byID[s.ID]
		if file.Batch != batch {
			t.Errorf("file batch = %q, want %q", file.Batch, batch)
		}
		if !strings.HasPrefix(file.RelPath, testUser.ID+"/"+batch+"/") {
			t.Errorf("rel path %q should live under the batch folder", file.RelPath)
		}
	}
}

func TestUploadEmptyBatch(t *testing.T) {
	svc, _ := newTestFileService(t)
	if _, _, err := svc.Upload(context.Background(), testUser, false, nil); !errors.Is(err, ErrEmptyUpload) {
		t.Errorf("empty upload err = %v, want ErrEmptyUpload", err)
	}
}

func TestListScopeAllRequiresAdmin(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()

	if _, err := svc.List(ctx, testUser, false, "all", 0, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("scope=all without admin err = %v, want ErrForbidden", err)
	}
	if _, err := svc.List(ctx, testUser, false, "mine", 0, 0); err != nil {
		t.Errorf("scope=mine: %v", err)
	}
	if _, err := svc.List(ctx, testUser, true, "all", 0, 0); err != nil {
		t.Errorf("scope=all as admin: %v", err)
	}
}

func TestListMineOnlyReturnsOwnFiles(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()

	other := models.User{ID: "user-2", Email: "bob@example.com"}
	if _, _, err := svc.Upload(ctx, testUser, false, []UploadItem{{Name: "mine.txt", Reader: strings.NewReader("m")}}); err != nil {
		t.Fatalf("upload mine: %v", err)
	}
	if _, _, err := svc.Upload(ctx, other, false, []UploadItem{{Name: "theirs.txt", Reader: strings.NewReader("t")}}); err != nil {
		t.Fatalf("upload theirs: %v", err)
	}

	mine, err := svc.List(ctx, testUser, false, "mine", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].UserID != testUser.ID {
		t.Errorf("scope=mine returned %d files, want exactly the owner's 1", len(mine))
	}
}

func TestOpenGoneBytes(t *testing.T) {
	svc, files := newTestFileService(t)
	ctx := context.Background()

	saved, _, err := svc.Upload(ctx, testUser, false, []UploadItem{{Name: "x.txt", Reader: strings.NewReader("x")}})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Simulate out-of-band deletion of the bytes.
	rec := files.byID[saved[0].ID]
	rec.RelPath = testUser.ID + "/vanished.txt"
	files.byID[saved[0].ID] = rec

	if _, _, err := svc.Open(ctx, saved[0].ID, testUser, false); !errors.Is(err, ErrFileGone) {
		t.Errorf("open gone bytes err = %v, want ErrFileGone", err)
	}
}

func TestOpenUnknownID(t *testing.T) {
	svc, _ := newTestFileService(t)
	if _, _, err := svc.Open(context.Background(), "nope", testUser, false); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("open unknown err = %v, want ErrFileNotFound", err)
	}
}

func TestOpenRequiresOwnershipOrAdmin(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()

	saved, _, err := svc.Upload(ctx, testUser, false, []UploadItem{{Name: "x.txt", Reader: strings.NewReader("x")}})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	stranger := models.User{ID: "user-2", Email: "bob@example.com"}
	if _, _, err := svc.Open(ctx, saved[0].ID, stranger, false); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("non-owner read err = %v, want ErrFileNotFound (existence hidden)", err)
	}

	_, f, err := svc.Open(ctx, saved[0].ID, stranger, true)
	if err != nil {
		t.Fatalf("admin read of another user's file: %v", err)
	}
	f.Close()
}

func TestUploadMidBatchFailureKeepsEarlierItems(t *testing.T) {
	svc, files := newTestFileService(t)
	ctx := context.Background()
	files.failCreateName = "second.txt"

	saved, _, err := svc.Upload(ctx, testUser, false, []UploadItem{
		{Name: "first.txt", Reader: strings.NewReader("first contents")},
		{Name: "second.txt", Reader: strings.NewReader("second contents")},
	})
	if err == nil {
		t.Fatal("failing second item should surface an error")
	}
	if len(saved) != 1 || saved[0].Name != "first.txt" {
		t.Fatalf("saved = %v, want exactly the first item", saved)
	}
	if _, ok := files.byID[saved[0].ID]; !ok {
		t.Fatal("first item's record must survive the failure")
	}

	// The first item's bytes must still be readable.
	_, f, err := svc.Open(ctx, saved[0].ID, testUser, false)
	if err != nil {
		t.Fatalf("open surviving item: %v", err)
	}
	defer f.Close()
	read, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read surviving item: %v", err)
	}
	if string(read) != "first contents" {
		t.Errorf("surviving bytes = %q, want the first item's contents", read)
	}
}

func TestDeleteIsOwnerOnly(t *testing.T) {
	svc, files := newTestFileService(t)
	ctx := context.Background()

	saved, _, err := svc.Upload(ctx, testUser, false, []UploadItem{{Name: "x.txt", Reader: strings.NewReader("x")}})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	stranger := models.User{ID: "user-2", Email: "bob@example.com"}
	if err := svc.Delete(ctx, saved[0].ID, stranger); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("non-owner delete err = %v, want ErrFileNotFound (existence hidden)", err)
	}
	if _, ok := files.byID[saved[0].ID]; !ok {
		t.Fatal("non-owner delete must not remove the record")
	}

	if err := svc.Delete(ctx, saved[0].ID, testUser); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, ok := files.byID[saved[0].ID]; ok {
		t.Error("owner delete should remove the record")
	}
	if _, _, err := svc.Open(ctx, saved[0].ID, testUser, false); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("open after delete err = %v, want ErrFileNotFound", err)
	}
}

func TestDeleteWithMissingBytesStillRemovesRecord(t *testing.T) {
	svc, files := newTestFileService(t)
	ctx := context.Background()

	saved, _, err := svc.Upload(ctx, testUser, false, []UploadItem{{Name: "x.txt", Reader: strings.NewReader("x")}})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	rec := files.byID[saved[0].ID]
	rec.RelPath = testUser.ID + "/vanished.txt"
	files.byID[saved[0].ID] = rec

	if err := svc.Delete(ctx, saved[0].ID, testUser); err != nil {
		t.Fatalf("delete with missing bytes: %v", err)
	}
	if _, ok := files.byID[saved[0].ID]; ok {
		t.Error("metadata must be removed even when bytes were already gone")
	}
}
