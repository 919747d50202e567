package purge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/assetwatch/assetwatch/internal/version"
)

// invalidatedAtKey is the user metadata key stamped on refreshed objects.
const invalidatedAtKey = "invalidated-at"

// S3API is the subset of the S3 client used here.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client loads the default AWS credential chain for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// objectKey maps an asset path to its bucket key.
func objectKey(path string) string {
	return strings.TrimPrefix(path, "/")
}

func headObject(ctx context.Context, client S3API, bucket, key string) (*s3.HeadObjectOutput, error) {
	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}
	return out, nil
}

// PingBucket checks that bucket exists and is reachable with the current
// credentials.
func PingBucket(ctx context.Context, client S3API, bucket string) error {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	return nil
}

// S3Purger refreshes an object in place so its Last-Modified and
// Cache-Control change, which origin-pull CDNs treat as a new object.
type S3Purger struct {
	client       S3API
	bucket       string
	cacheControl string
	now          func() time.Time
}

// NewS3Purger creates an S3Purger for bucket.
func NewS3Purger(client S3API, bucket, cacheControl string) *S3Purger {
	return &S3Purger{
		client:       client,
		bucket:       bucket,
		cacheControl: cacheControl,
		now:          time.Now,
	}
}

// Purge copies the object onto itself, replacing its metadata. Content type
// and existing user metadata are carried over.
func (p *S3Purger) Purge(ctx context.Context, path string) error {
	key := objectKey(path)
	head, err := headObject(ctx, p.client, p.bucket, key)
	if err != nil {
		return err
	}

	metadata := make(map[string]string, len(head.Metadata)+1)
	for k, v := range head.Metadata {
		metadata[k] = v
	}
	metadata[invalidatedAtKey] = p.now().UTC().Format(time.RFC3339Nano)

	input := &s3.CopyObjectInput{
		Bucket:            aws.String(p.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(url.PathEscape(p.bucket + "/" + key)),
		MetadataDirective: types.MetadataDirectiveReplace,
		ContentType:       head.ContentType,
		Metadata:          metadata,
	}
	if p.cacheControl != "" {
		input.CacheControl = aws.String(p.cacheControl)
	} else {
		input.CacheControl = head.CacheControl
	}

	if _, err := p.client.CopyObject(ctx, input); err != nil {
		return fmt.Errorf("refresh s3://%s/%s: %w", p.bucket, key, err)
	}
	return nil
}

// S3Fingerprinter fingerprints objects by their ETag. Multipart uploads and
// objects without an ETag have no content digest in their ETag, so their body
// is streamed through version.HashReader instead.
type S3Fingerprinter struct {
	client S3API
	bucket string
}

// NewS3Fingerprinter creates an S3Fingerprinter for bucket.
func NewS3Fingerprinter(client S3API, bucket string) *S3Fingerprinter {
	return &S3Fingerprinter{client: client, bucket: bucket}
}

// Fingerprint returns the unquoted ETag of the object behind path, or a
// blake2b digest of its content when the ETag is not a content hash.
func (f *S3Fingerprinter) Fingerprint(ctx context.Context, path string) (string, error) {
	key := objectKey(path)
	head, err := headObject(ctx, f.client, f.bucket, key)
	if err != nil {
		return "", err
	}
	etag := strings.Trim(aws.ToString(head.ETag), `"`)
	if etag != "" && !isMultipartETag(etag) {
		return etag, nil
	}
	return f.hashContent(ctx, key)
}

func (f *S3Fingerprinter) hashContent(ctx context.Context, key string) (string, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", fmt.Errorf("s3://%s/%s: %w", f.bucket, key, ErrObjectNotFound)
		}
		return "", fmt.Errorf("get s3://%s/%s: %w", f.bucket, key, err)
	}
	defer out.Body.Close()

	digest, err := version.HashReader(out.Body)
	if err != nil {
		return "", fmt.Errorf("fingerprint s3://%s/%s: %w", f.bucket, key, err)
	}
	return digest, nil
}

// isMultipartETag reports whether etag has the "<md5-of-md5s>-<parts>" form.
func isMultipartETag(etag string) bool {
	return strings.Contains(etag, "-")
}
