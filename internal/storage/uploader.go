package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

// ObjectPutter is the slice of the S3 API the uploader needs. The AWS client
// satisfies it; tests substitute a capture.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader stores files in object storage and hands back the public URL the
// record keeps. Keys follow {dir}/{unix-millis}-{filename} so repeated
// uploads of the same file never collide.
type Uploader struct {
	Client        ObjectPutter
	PublicBaseURL string
	Now           func() time.Time
}

// NewClient builds the real S3 client from the ambient AWS credential chain.
func NewClient(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (u *Uploader) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// Upload puts the file under the bucket and returns its public URL. The
// content type is sniffed from the bytes, never trusted from the client.
func (u *Uploader) Upload(ctx context.Context, bucket, dir, filename string, data []byte) (string, error) {
	if u == nil || u.Client == nil {
		return "", fmt.Errorf("storage: uploader not configured")
	}
	key := fmt.Sprintf("%s/%d-%s", strings.Trim(dir, "/"), u.now().UnixMilli(), sanitizeFilename(filename))
	contentType := mimetype.Detect(data).String()
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return u.PublicURL(bucket, key), nil
}

// PublicURL resolves the browsable URL of a stored object.
func (u *Uploader) PublicURL(bucket, key string) string {
	return strings.TrimRight(u.PublicBaseURL, "/") + "/" + bucket + "/" + key
}

// sanitizeFilename strips any path components and reduces the name to
// characters safe in an object key.
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
