package storage

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"devnotes/api/internal/config"
)

// Mirror copies the local uploads tree to an S3-compatible bucket as an
// off-site backup. It is optional and always best-effort: the local disk
// stays the authoritative store.
type Mirror struct {
	client *minio.Client
	bucket string
	region string
	store  *LocalStore
	log    zerolog.Logger
}

func NewMirror(cfg config.MirrorConfig, store *LocalStore, log zerolog.Logger) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &Mirror{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		store:  store,
		log:    log,
	}, nil
}

func (m *Mirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
	}
	return nil
}

// UploadFile pushes one stored file to the bucket under its relative path.
func (m *Mirror) UploadFile(ctx context.Context, rel string, contentType string) error {
	abs, err := m.store.resolve(rel)
	if err != nil {
		return err
	}

	_, err = m.client.FPutObject(ctx, m.bucket, rel, abs, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", rel, err)
	}
	return nil
}

// SyncAll walks the uploads tree and pushes objects the bucket is missing.
// Per-file failures are logged and skipped so one bad object cannot stall
// the rest of the sync.
func (m *Mirror) SyncAll(ctx context.Context) error {
	root := m.store.Root()

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if _, err := m.client.StatObject(ctx, m.bucket, rel, minio.StatObjectOptions{}); err == nil {
			return nil
		}

		if _, err := m.client.FPutObject(ctx, m.bucket, rel, path, minio.PutObjectOptions{}); err != nil {
			m.log.Warn().Err(err).Str("object", rel).Msg("mirror sync upload failed")
		}
		return nil
	})
}
