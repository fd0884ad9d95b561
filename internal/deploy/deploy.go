// SPDX-License-Identifier: MPL-2.0

// Package deploy uploads the generated site to S3-compatible object storage.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"rcbuild/internal/config"
)

const (
	// AccessKeyEnv and SecretKeyEnv name the credential variables, read from
	// the environment or a .env file.
	AccessKeyEnv = "RCBUILD_ACCESS_KEY"
	SecretKeyEnv = "RCBUILD_SECRET_KEY"

	// DefaultEnvFile is read for credentials when present.
	DefaultEnvFile = ".env"

	defaultRegion   = "us-east-1"
	uploadWorkers   = 4
	gzipSuffix      = ".gz"
	defaultMimeType = "application/octet-stream"
)

var (
	// ErrMissingCredentials is returned when no access or secret key is set.
	ErrMissingCredentials = errors.New("deploy credentials are not set")
	// ErrIncompleteTarget is returned when the endpoint or bucket is empty.
	ErrIncompleteTarget = errors.New("deploy endpoint and bucket are required")
)

type (
	// Credentials authenticate against the object store.
	Credentials struct {
		AccessKey string
		SecretKey string
	}

	// Uploader puts a directory tree into a bucket.
	Uploader struct {
		client *minio.Client
		bucket string
		region string
		logger *log.Logger
	}

	// Stats summarize an upload.
	Stats struct {
		Files int64
		Bytes int64
	}
)

// LoadCredentials reads the access and secret key from the environment,
// falling back to envFiles (DefaultEnvFile when none are given). Missing
// files are skipped; process environment wins over file values.
func LoadCredentials(envFiles ...string) (Credentials, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	fromFiles := map[string]string{}
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Credentials{}, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := fromFiles[k]; !seen {
				fromFiles[k] = v
			}
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return fromFiles[key]
	}
	creds := Credentials{
		AccessKey: strings.TrimSpace(lookup(AccessKeyEnv)),
		SecretKey: strings.TrimSpace(lookup(SecretKeyEnv)),
	}
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return creds, fmt.Errorf("%w: set %s and %s", ErrMissingCredentials, AccessKeyEnv, SecretKeyEnv)
	}
	return creds, nil
}

// New creates an Uploader for the bucket described by cfg.
func New(cfg config.DeployConfig, creds Credentials, logger *log.Logger) (*Uploader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	if endpoint == "" || bucket == "" {
		return nil, ErrIncompleteTarget
	}
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return nil, ErrMissingCredentials
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket, region: region, logger: logger}, nil
}

// EnsureBucket creates the bucket unless it exists.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.bucket, err)
	}
	return nil
}

// Upload ensures the bucket exists, then puts every file below root into it
// as prefix/<relative path>. Content types follow the file extension; a .gz sibling is stored
// with the type of the file it compresses and Content-Encoding gzip.
func (u *Uploader) Upload(ctx context.Context, root, prefix string) (Stats, error) {
	if err := u.EnsureBucket(ctx); err != nil {
		return Stats{}, err
	}

	var files, sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := ObjectKey(prefix, filepath.ToSlash(rel))

		g.Go(func() error {
			contentType, encoding := ContentType(p)
			info, err := u.client.FPutObject(gctx, u.bucket, key, p, minio.PutObjectOptions{
				ContentType:     contentType,
				ContentEncoding: encoding,
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			u.logger.Debug("uploaded", "key", key, "bytes", info.Size)
			files.Add(1)
			sent.Add(info.Size)
			return nil
		})
		return nil
	})

	err := g.Wait()
	stats := Stats{Files: files.Load(), Bytes: sent.Load()}
	if walkErr != nil {
		return stats, fmt.Errorf("walk %s: %w", root, walkErr)
	}
	return stats, err
}

// ContentType returns the MIME type and content encoding for name.
func ContentType(name string) (contentType, encoding string) {
	if strings.HasSuffix(name, gzipSuffix) {
		name = strings.TrimSuffix(name, gzipSuffix)
		encoding = "gzip"
	}
	contentType = mime.TypeByExtension(path.Ext(filepath.ToSlash(name)))
	if contentType == "" {
		contentType = defaultMimeType
	}
	return contentType, encoding
}

// ObjectKey joins prefix and a slash-separated relative path into a key
// without leading or doubled slashes.
func ObjectKey(prefix, rel string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	rel = strings.TrimLeft(rel, "/")
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}
