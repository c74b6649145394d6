package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is the subset of manager.Uploader used for stage-out.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Downloader is the subset of manager.Downloader used for stage-in.
type Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// S3Backend transfers objects between S3 and local disk.
type S3Backend struct {
	lister     s3.ListObjectsV2APIClient
	uploader   Uploader
	downloader Downloader
}

// NewS3Backend builds a backend from the default AWS credential chain.
func NewS3Backend(ctx context.Context) (*S3Backend, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Backend{
		lister:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}, nil
}

// NewS3BackendWith builds a backend from explicit clients.
func NewS3BackendWith(lister s3.ListObjectsV2APIClient, up Uploader, down Downloader) *S3Backend {
	return &S3Backend{lister: lister, uploader: up, downloader: down}
}

// DownloadFile fetches bucket/key into destPath.
func (b *S3Backend) DownloadFile(ctx context.Context, bucket, key, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := b.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// DownloadPrefix fetches every object under prefix into destDir, keeping the
// key layout below the prefix. Keys that would land outside destDir are
// rejected. It returns the number of objects fetched.
func (b *S3Backend) DownloadPrefix(ctx context.Context, bucket, prefix, destDir string) (int, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	p := s3.NewListObjectsV2Paginator(b.lister, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	n := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return n, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(key, prefix)
			if rel == "" || strings.HasSuffix(rel, "/") {
				continue
			}
			if !filepath.IsLocal(filepath.FromSlash(rel)) {
				return n, fmt.Errorf("s3://%s/%s: key escapes %s", bucket, key, destDir)
			}
			dest := filepath.Join(destDir, filepath.FromSlash(rel))
			if err := b.DownloadFile(ctx, bucket, key, dest); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// UploadDir uploads every regular file under root to bucket/prefix.
// It returns the number of objects written.
func (b *S3Backend) UploadDir(ctx context.Context, root, bucket, prefix string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   f,
		}); err != nil {
			return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
		}
		n++
		return nil
	})
	return n, err
}
