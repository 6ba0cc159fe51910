// Package storage implements the upload collaborator: batch upload of
// retrieved recordings to S3 followed by deletion of the successfully
// uploaded local copies. Semantics are atomic per file, partial per batch;
// the session layer renders the combined status.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Gusemmett/multiCamController/log"
)

// S3Config holds configuration for the S3 upload target.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible providers.
	UsePathStyle bool
	// Anonymous skips request signing, for public-write buckets.
	Anonymous bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// BatchResult reports an upload batch: which local paths made it to S3
// and which did not.
type BatchResult struct {
	// SessionFolder is the remote folder the batch was written under.
	SessionFolder string
	// Uploaded lists local paths successfully uploaded.
	Uploaded []string
	// Failed lists local paths whose upload failed or which were missing.
	Failed []string
}

// Success reports whether every file in the batch was uploaded.
func (r BatchResult) Success() bool {
	return len(r.Failed) == 0
}

// CleanupResult reports local deletions after a successful upload.
type CleanupResult struct {
	// Deleted lists local paths removed.
	Deleted []string
	// Failed lists local paths whose deletion failed.
	Failed []string
}

// Success reports whether every requested deletion succeeded.
func (r CleanupResult) Success() bool {
	return len(r.Failed) == 0
}

// putObjectAPI is the slice of the S3 client the store uses.
// Narrow so tests can substitute a stub.
type putObjectAPI interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads recording batches to one bucket.
type S3Store struct {
	client putObjectAPI
	cfg    S3Config
	logger *log.Logger

	// now is replaceable for deterministic session folders in tests.
	now func() time.Time
}

// NewS3Store creates an upload store against the configured bucket.
// Uses the AWS SDK default credential chain unless Anonymous is set.
func NewS3Store(ctx context.Context, cfg S3Config, logger *log.Logger) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Anonymous {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// UploadBatch uploads the given local files into one session folder.
// Missing files count as failed; a failed file never blocks the rest of
// the batch.
func (s *S3Store) UploadBatch(ctx context.Context, paths []string) BatchResult {
	result := BatchResult{SessionFolder: SessionFolder(s.now())}
	if len(paths) == 0 {
		return result
	}

	for _, localPath := range paths {
		if err := s.uploadOne(ctx, localPath, result.SessionFolder); err != nil {
			s.logger.Warn("upload failed", map[string]any{
				"path":  localPath,
				"error": err.Error(),
			})
			result.Failed = append(result.Failed, localPath)
			continue
		}
		result.Uploaded = append(result.Uploaded, localPath)
	}

	s.logger.Info("batch upload finished", map[string]any{
		"folder":   result.SessionFolder,
		"uploaded": len(result.Uploaded),
		"failed":   len(result.Failed),
	})
	return result
}

func (s *S3Store) uploadOne(ctx context.Context, localPath, folder string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	name := filepath.Base(localPath)
	key := path.Join(s.cfg.Prefix, folder, name)
	contentType := ContentType(filepath.Ext(localPath))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.cfg.Bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
		Metadata: map[string]string{
			"original-filename": name,
			"file-size":         strconv.FormatInt(info.Size(), 10),
			"upload-timestamp":  s.now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	return nil
}

// DeleteLocal removes local files after a successful upload. A path that
// is already gone counts as deleted.
func (s *S3Store) DeleteLocal(paths []string) CleanupResult {
	var result CleanupResult
	for _, localPath := range paths {
		err := os.Remove(localPath)
		if err != nil && !os.IsNotExist(err) {
			s.logger.Warn("local cleanup failed", map[string]any{
				"path":  localPath,
				"error": err.Error(),
			})
			result.Failed = append(result.Failed, localPath)
			continue
		}
		result.Deleted = append(result.Deleted, localPath)
	}
	return result
}

// SessionFolder derives the remote folder for one upload batch.
func SessionFolder(t time.Time) string {
	return t.Format("2006-01-02/15-04-05")
}

// contentTypes maps recording file extensions to MIME types.
var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".m4v":  "video/x-m4v",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".json": "application/json",
	".txt":  "text/plain",
}

// ContentType returns the MIME type for a file extension, defaulting to
// application/octet-stream for unrecognized camera formats.
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
