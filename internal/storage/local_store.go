package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrPathEscapesRoot is returned when a resolved path would land
	// outside the uploads root. Any caller-supplied component that
	// triggers it is treated as a missing file, never served.
	ErrPathEscapesRoot = errors.New("path escapes uploads root")

	// ErrMissing means the metadata's bytes are gone from disk.
	ErrMissing = errors.New("file bytes missing on disk")

	// ErrTooLarge means a single upload exceeded the configured cap.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// LocalStore owns the uploads directory tree: one subdirectory per owner,
// optionally one more per upload batch.
type LocalStore struct {
	root     string
	maxBytes int64
}

// NewLocalStore prepares the uploads root. A maxBytes of zero or less
// disables the per-file size cap.
func NewLocalStore(root string, maxBytes int64) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads root: %w", err)
	}
	return &LocalStore{root: abs, maxBytes: maxBytes}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

// SanitizeFilename keeps letters, digits, '.', '_' and '-'; everything else,
// including path separators and shell metacharacters, becomes '_'. The
// result never contains a traversal sequence because '/' and '\' cannot
// survive.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	// A name of only dots could still collapse into "." or ".." path parts.
	if strings.Trim(out, ".") == "" {
		return "file"
	}
	return out
}

// uniqueName prefixes the sanitized name with a timestamp and random suffix
// so on-disk names are never derived solely from user input and concurrent
// uploads do not collide.
func uniqueName(original string) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate name suffix: %w", err)
	}
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), hex.EncodeToString(suffix), SanitizeFilename(original)), nil
}

// resolve canonicalizes rel against the root and refuses anything that ends
// up outside it. This is the final bounds check before every read, write
// and delete; the sanitizer alone is not trusted.
func (s *LocalStore) resolve(rel string) (string, error) {
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", ErrPathEscapesRoot
	}
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return "", ErrPathEscapesRoot
	}
	abs := filepath.Join(s.root, rel)
	abs = filepath.Clean(abs)
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", ErrPathEscapesRoot
	}
	return abs, nil
}

// Save writes the content under <root>/<ownerID>[/<batch>]/<unique-name> and
// returns the slash-separated relative path plus the byte count.
func (s *LocalStore) Save(ownerID string, batch string, filename string, r io.Reader) (string, int64, error) {
	name, err := uniqueName(filename)
	if err != nil {
		return "", 0, err
	}

	rel := ownerID
	if batch != "" {
		rel = rel + "/" + SanitizeFilename(batch)
	}
	rel = rel + "/" + name

	abs, err := s.resolve(rel)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", 0, fmt.Errorf("create owner dir: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		// One byte past the cap is enough to tell "at the limit" from
		// "over it" without draining an unbounded stream.
		src = io.LimitReader(r, s.maxBytes+1)
	}

	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(abs)
		return "", 0, fmt.Errorf("write file: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		os.Remove(abs)
		return "", 0, ErrTooLarge
	}

	return rel, written, nil
}

// Open returns the file handle and stat for a stored path. Metadata that
// points at bytes no longer on disk yields ErrMissing, a recoverable
// condition distinct from a bad path.
func (s *LocalStore) Open(rel string) (*os.File, os.FileInfo, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrMissing
		}
		return nil, nil, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat file: %w", err)
	}

	return f, info, nil
}

// Remove deletes the bytes; a file already gone is not an error.
func (s *LocalStore) Remove(rel string) error {
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
