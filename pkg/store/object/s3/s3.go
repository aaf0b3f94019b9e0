// Package s3 implements S3-based object storage for DittoDrive.
//
// Any S3-compatible service works (AWS, MinIO, Localstack). Presigned URLs
// are produced natively by the SDK's presign client.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

// maxDeleteBatch is the DeleteObjects limit imposed by S3.
const maxDeleteBatch = 1000

// S3ObjectStore implements object.Store on top of an S3 bucket.
//
// Storage keys are prefixed with KeyPrefix so several deployments can share
// a bucket. Keys returned by ListKeys have the prefix stripped.
type S3ObjectStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	keyPrefix string
	metrics   S3Metrics
}

// S3ObjectStoreConfig contains configuration for S3 object storage.
type S3ObjectStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is prepended to every storage key (optional)
	KeyPrefix string

	// Metrics receives operation timings (optional)
	Metrics S3Metrics
}

// NewS3ObjectStore creates a new S3-based object store.
//
// The bucket must already exist; its reachability is verified with a
// HeadBucket call so misconfiguration fails at startup.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Store configuration
//
// Returns:
//   - *S3ObjectStore: Initialized store
//   - error: Returns error if the bucket is not accessible
func NewS3ObjectStore(ctx context.Context, cfg S3ObjectStoreConfig) (*S3ObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}

	return &S3ObjectStore{
		client:    cfg.Client,
		presigner: s3.NewPresignClient(cfg.Client),
		bucket:    cfg.Bucket,
		keyPrefix: keyPrefix,
		metrics:   metrics,
	}, nil
}

// NewS3ClientFromConfig builds an S3 client from explicit settings.
//
// Parameters:
//   - ctx: Context for loading AWS configuration
//   - endpoint: Custom endpoint (empty for AWS)
//   - region: AWS region
//   - accessKeyID: Static access key (empty to use the default chain)
//   - secretAccessKey: Static secret key
//   - forcePathStyle: Use path-style addressing (MinIO, Localstack)
//
// Returns:
//   - *s3.Client: Configured client
//   - error: Returns error if the AWS configuration cannot be loaded
func NewS3ClientFromConfig(
	ctx context.Context,
	endpoint, region, accessKeyID, secretAccessKey string,
	forcePathStyle bool,
) (*s3.Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(region),
	}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = forcePathStyle
	}), nil
}

func (s *S3ObjectStore) fullKey(key string) string {
	return s.keyPrefix + key
}

// observe records the outcome of an S3 call started at start.
func (s *S3ObjectStore) observe(operation string, start time.Time, err error) {
	s.metrics.ObserveOperation(operation, time.Since(start), err)
}

// isNotFound reports whether err is an S3 "no such key" condition. HeadObject
// returns a bare 404 (NotFound) while GetObject returns NoSuchKey.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// Put uploads data with a single PutObject call.
func (s *S3ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return object.ErrInvalidKey
	}
	if contentType == "" {
		contentType = object.DefaultContentType
	}

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fullKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	s.observe("PutObject", start, err)
	if err != nil {
		return fmt.Errorf("failed to write object to S3: %w", err)
	}

	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// Get streams the object body. The returned reader records bytes read on
// Close.
func (s *S3ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	s.observe("GetObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to read object from S3: %w", err)
	}

	return newCountingBody(resp.Body, s.metrics), nil
}

// Delete removes key. S3 does not report missing keys on delete, which makes
// this idempotent.
func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	s.observe("DeleteObject", start, err)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

// Copy performs a server-side CopyObject.
func (s *S3ObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dstKey == "" {
		return object.ErrInvalidKey
	}

	start := time.Now()
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.fullKey(dstKey)),
		CopySource: aws.String(copySource(s.bucket, s.fullKey(srcKey))),
	})
	s.observe("CopyObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("object %s: %w", srcKey, object.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to copy object in S3: %w", err)
	}

	return nil
}

// copySource builds the URL-encoded "bucket/key" value CopyObject expects.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// Presign returns a presigned GET URL valid for ttl.
//
// Presigning is a local computation; the object is not checked for existence.
func (s *S3ObjectStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}

	return req.URL, nil
}

// Exists issues a HeadObject for key.
func (s *S3ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := s.Stat(ctx, key); err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Stat returns the object's size, modification time and content type.
func (s *S3ObjectStore) Stat(ctx context.Context, key string) (*object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	s.observe("HeadObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to stat object in S3: %w", err)
	}

	info := &object.ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(resp.ContentLength),
		ContentType: aws.ToString(resp.ContentType),
	}
	if resp.LastModified != nil {
		info.LastModified = *resp.LastModified
	}
	return info, nil
}

// ListKeys pages through ListObjectsV2 under prefix.
func (s *S3ObjectStore) ListKeys(ctx context.Context, prefix string) ([]object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var infos []object.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.fullKey(prefix)),
	})

	for paginator.HasMorePages() {
		start := time.Now()
		page, err := paginator.NextPage(ctx)
		s.observe("ListObjectsV2", start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in S3: %w", err)
		}

		for _, obj := range page.Contents {
			info := object.ObjectInfo{
				Key:  strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}

	return infos, nil
}

// DeleteBatch removes keys with DeleteObjects, chunked to the S3 limit.
// Per-key failures are returned in the map; a chunk-level failure marks every
// key of that chunk as failed.
func (s *S3ObjectStore) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failures := make(map[string]error)
	for begin := 0; begin < len(keys); begin += maxDeleteBatch {
		end := min(begin+maxDeleteBatch, len(keys))
		chunk := keys[begin:end]

		ids := make([]types.ObjectIdentifier, len(chunk))
		for i, key := range chunk {
			ids[i] = types.ObjectIdentifier{Key: aws.String(s.fullKey(key))}
		}

		start := time.Now()
		resp, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		})
		s.observe("DeleteObjects", start, err)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return failures, ctxErr
			}
			logger.Warn("S3 batch delete of %d keys failed: %v", len(chunk), err)
			for _, key := range chunk {
				failures[key] = err
			}
			continue
		}

		for _, e := range resp.Errors {
			key := strings.TrimPrefix(aws.ToString(e.Key), s.keyPrefix)
			failures[key] = fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message))
		}
	}

	return failures, nil
}

// Close is a no-op; the S3 client holds no resources that need releasing.
func (s *S3ObjectStore) Close() error {
	return nil
}

var (
	_ object.Store              = (*S3ObjectStore)(nil)
	_ object.GarbageCollectable = (*S3ObjectStore)(nil)
	_ object.Statter            = (*S3ObjectStore)(nil)
)
