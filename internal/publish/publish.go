// Package publish uploads the corpus artifact and its packaged documents to
// S3-compatible object storage.
package publish

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/staging"
)

const defaultRegion = "us-east-1"

// Publisher writes corpus objects into one bucket under one prefix.
type Publisher struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

// New creates a Publisher for cfg. The bucket is created on first publish.
func New(cfg contract.S3Config) (*Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &Publisher{client: client, bucket: cfg.Bucket, region: region, prefix: cfg.Prefix}, nil
}

// Publish uploads corpusFile as <prefix>/dataset.json and every document as
// <prefix>/packages/<advisory>/<commit>.txt. It returns the number of
// objects written before the first failure.
func (p *Publisher) Publish(ctx context.Context, corpusFile string, docs []staging.DocumentRef) (int, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return 0, fmt.Errorf("ensure bucket: %w", err)
	}

	written := 0
	if _, err := p.client.FPutObject(ctx, p.bucket, CorpusKey(p.prefix), corpusFile, minio.PutObjectOptions{
		ContentType: "application/json",
	}); err != nil {
		return written, fmt.Errorf("upload %s: %w", corpusFile, err)
	}
	written++

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		key := DocumentKey(p.prefix, doc.AdvisoryID, doc.CommitHash)
		if _, err := p.client.FPutObject(ctx, p.bucket, key, doc.Path, minio.PutObjectOptions{
			ContentType: "text/plain; charset=utf-8",
		}); err != nil {
			return written, fmt.Errorf("upload %s: %w", doc.Path, err)
		}
		written++
	}
	return written, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
}

// CorpusKey is the object key of the corpus artifact.
func CorpusKey(prefix string) string {
	return objectKey(prefix, "dataset.json")
}

// DocumentKey is the object key of one packaged document.
func DocumentKey(prefix, advisoryID, commit string) string {
	return objectKey(prefix, path.Join("packages", advisoryID, commit+".txt"))
}

func objectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.TrimLeft(name, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
