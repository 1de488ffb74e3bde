package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"hifz_backend/internal/config"
	"hifz_backend/internal/util"
)

// StorageProvider stores backup objects under slash-separated names.
type StorageProvider interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// LocalStorageProvider keeps objects in a directory on disk.
type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) path(name string) string {
	return filepath.Join(p.Root, filepath.FromSlash(name))
}

func (p *LocalStorageProvider) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	dst := p.path(name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", err
	}
	return dst, nil
}

func (p *LocalStorageProvider) Download(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(p.path(name))
}

func (p *LocalStorageProvider) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(p.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.Root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	sort.Strings(names)
	return names, err
}

func (p *LocalStorageProvider) Delete(ctx context.Context, name string) error {
	return os.Remove(p.path(name))
}

// MinioStorageProvider keeps objects in a MinIO or S3 bucket.
type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioStorageProvider(ctx context.Context, cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return "/" + p.Bucket + "/" + name, nil
}

func (p *MinioStorageProvider) Download(ctx context.Context, name string) ([]byte, error) {
	obj, err := p.Client.GetObject(ctx, p.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (p *MinioStorageProvider) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range p.Client.ListObjects(ctx, p.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, name string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, name, minio.RemoveObjectOptions{})
}

// NewStorageProvider picks the configured backend. MinIO failures fall
// back to the local directory.
func NewStorageProvider(ctx context.Context, cfg *config.StorageConfig) (StorageProvider, error) {
	if cfg.Type == util.StorageMinio {
		p, err := NewMinioStorageProvider(ctx, cfg)
		if err != nil {
			return &LocalStorageProvider{Root: cfg.LocalPath}, err
		}
		return p, nil
	}
	return &LocalStorageProvider{Root: cfg.LocalPath}, nil
}
