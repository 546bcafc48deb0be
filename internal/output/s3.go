package output

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pable/atlas-metrics/internal/config"
)

// S3API is the part of the S3 client used by S3Publisher.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Publisher mirrors written files into a bucket.
type S3Publisher struct {
	client S3API
	bucket string

	// prefix has no leading slash and, typically, a trailing one, e.g. "data/".
	prefix string

	logger *zerolog.Logger
}

// NewS3Publisher wraps an existing client.
func NewS3Publisher(client S3API, bucket, prefix string) *S3Publisher {
	logger := log.With().
		Str("module", "publisher").
		Str("bucket", bucket).
		Logger()
	return &S3Publisher{client: client, bucket: bucket, prefix: prefix, logger: &logger}
}

// S3FromConfig returns a publisher for cfg's bucket, or nil when no bucket
// is configured.
func S3FromConfig(ctx context.Context, cfg *config.Config) (*S3Publisher, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}
	awsCfg, err := cfg.AWS(ctx)
	if err != nil {
		return nil, err
	}
	return NewS3Publisher(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix), nil
}

// Publish uploads every changed file, and every unchanged file the bucket
// does not hold yet. Compressed siblings follow their JSON file. It returns
// the number of objects uploaded.
func (p *S3Publisher) Publish(ctx context.Context, dir string, files []File) (int, error) {
	uploaded := 0
	for _, f := range files {
		if !f.Changed {
			exists, err := p.exists(ctx, p.prefix+f.Name)
			if err != nil {
				return uploaded, err
			}
			if exists {
				continue
			}
		}
		names := []string{f.Name}
		if _, err := os.Stat(filepath.Join(dir, f.Name+ArchiveExt)); err == nil {
			names = append(names, f.Name+ArchiveExt)
		}
		for _, name := range names {
			if err := p.put(ctx, dir, name); err != nil {
				return uploaded, err
			}
			uploaded++
		}
	}
	p.logger.Info().Int("uploaded", uploaded).Int("files", len(files)).Msg("published output")
	return uploaded, nil
}

func (p *S3Publisher) exists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "NotFound" {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to invoke HeadObject")
	}
	return true, nil
}

func (p *S3Publisher) put(ctx context.Context, dir, name string) error {
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	key := p.prefix + name
	if _, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         file,
		ContentType:  aws.String(contentType(name)),
		CacheControl: aws.String("max-age=300"),
	}); err != nil {
		return errors.Wrapf(err, "failed to invoke PutObject for %s", key)
	}
	p.logger.Trace().Str("key", key).Msg("uploaded object")
	return nil
}

func contentType(name string) string {
	if strings.HasSuffix(name, ArchiveExt) {
		return "application/zstd"
	}
	return "application/json"
}
