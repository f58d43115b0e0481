// Package s3 implements blob.Store backed by Amazon S3 or an
// S3-compatible object store (MinIO, Ceph RGW).
//
// Storage pointers map directly to object keys (optionally under a key
// prefix), so the bucket mirrors the catalog's deterministic
// files/{fileId}/v{version}/data layout. Upload and download URLs are
// presigned; the catalog never proxies content bytes.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config contains S3 blob store configuration.
type Config struct {
	// Endpoint is the S3 endpoint URL. Empty uses AWS defaults.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Region is the AWS region.
	Region string `mapstructure:"region" yaml:"region"`

	// Bucket is the bucket holding file content. Must already exist.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// AccessKeyID and SecretAccessKey are static credentials.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`

	// KeyPrefix is an optional prefix for all object keys.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// ForcePathStyle enables path-style addressing (required by MinIO).
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// URLExpiry is the lifetime of presigned URLs. Default: 15m.
	URLExpiry time.Duration `mapstructure:"url_expiry" yaml:"url_expiry"`
}

// BlobStore implements blob.Store using S3 presigned URLs.
type BlobStore struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string
	urlExpiry time.Duration
}

// New creates a new S3-backed blob store.
// The bucket must already exist; this function does not create it.
func New(ctx context.Context, cfg Config) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	urlExpiry := cfg.URLExpiry
	if urlExpiry == 0 {
		urlExpiry = 15 * time.Minute
	}

	return &BlobStore{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		urlExpiry: urlExpiry,
	}, nil
}

// key maps a catalog storage pointer to an object key.
func (b *BlobStore) key(storagePath string) string {
	if b.keyPrefix == "" {
		return storagePath
	}
	return path.Join(b.keyPrefix, storagePath)
}

// IssueUploadURL returns a presigned PUT URL for the storage pointer.
func (b *BlobStore) IssueUploadURL(ctx context.Context, storagePath string) (string, error) {
	req, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(storagePath)),
	}, s3.WithPresignExpires(b.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", storagePath, err)
	}
	return req.URL, nil
}

// IssueDownloadURL returns a presigned GET URL for the storage pointer.
func (b *BlobStore) IssueDownloadURL(ctx context.Context, storagePath string) (string, error) {
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(storagePath)),
	}, s3.WithPresignExpires(b.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", storagePath, err)
	}
	return req.URL, nil
}

// Delete removes the object at the storage pointer.
func (b *BlobStore) Delete(ctx context.Context, storagePath string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(storagePath)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", storagePath, err)
	}
	return nil
}

// versionMetadata is the sidecar object registered next to a version's
// content so the blob store can serve version listings on its own.
type versionMetadata struct {
	FileID      string    `json:"file_id"`
	Version     int       `json:"version"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	RegisteredAt time.Time `json:"registered_at"`
}

// SaveVersionMetadata writes a small metadata object for the version.
func (b *BlobStore) SaveVersionMetadata(ctx context.Context, fileID string, version int, storagePath string, size int64) error {
	meta := versionMetadata{
		FileID:       fileID,
		Version:      version,
		StoragePath:  storagePath,
		Size:         size,
		RegisteredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal version metadata: %w", err)
	}

	key := b.key(fmt.Sprintf("files/%s/v%d/meta.json", fileID, version))
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save version metadata for %s v%d: %w", fileID, version, err)
	}
	return nil
}
