package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client the remote store needs.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Remote is the durable tier: one database's backups under a single prefix in
// an S3 bucket. Artifact names map to object keys as <prefix>/<name>.
type Remote struct {
	api    s3API
	bucket string
	prefix string
}

func NewRemote(api s3API, bucket, prefix string) *Remote {
	return &Remote{api: api, bucket: bucket, prefix: prefix}
}

func (r *Remote) key(name string) string {
	if r.prefix == "" {
		return name
	}
	return path.Join(r.prefix, name)
}

// CheckRoot verifies the bucket is reachable with the configured credentials.
func (r *Remote) CheckRoot(ctx context.Context) error {
	_, err := r.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)})
	if err != nil {
		return fmt.Errorf("failed to access bucket %s: %w", r.bucket, err)
	}
	return nil
}

// Transfer uploads a local file under the artifact's name.
func (r *Remote) Transfer(ctx context.Context, localPath, name string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = r.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(name)),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", localPath, r.bucket, r.key(name), err)
	}
	return nil
}

// Exists reports whether a named artifact is present in the bucket.
func (r *Remote) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(name)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check s3://%s/%s: %w", r.bucket, r.key(name), err)
	}
	return true, nil
}

// List returns the artifact names under the prefix and whether the listing
// was reported truncated. A single page is fetched on purpose; callers must
// not act on a truncated result.
func (r *Remote) List(ctx context.Context) ([]string, bool, error) {
	out, err := r.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list s3://%s/%s: %w", r.bucket, r.prefix, err)
	}

	names := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		names = append(names, path.Base(aws.ToString(obj.Key)))
	}
	return names, aws.ToBool(out.IsTruncated), nil
}

// Delete removes a named artifact from the bucket.
func (r *Remote) Delete(ctx context.Context, name string) error {
	_, err := r.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", r.bucket, r.key(name), err)
	}
	return nil
}
