package stage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ModeLocal publishes the output root in place.
const ModeLocal = "local"

// S3Factory creates the S3 backend on first use.
type S3Factory func(ctx context.Context) (*S3Backend, error)

// Stager resolves input locations to local paths and publishes outputs.
//
// Stage-out modes:
//   - "local": the output root is returned as-is
//   - "file:///shared/path": the tree is copied to the shared path
//   - "s3://bucket/prefix": the tree is uploaded
type Stager struct {
	mode    string
	factory S3Factory
	http    *HTTPFetcher
	logger  *slog.Logger

	once  sync.Once
	s3    *S3Backend
	s3Err error
}

// NewStager creates a Stager. factory may be nil when no s3:// locations
// are expected.
func NewStager(mode string, factory S3Factory, logger *slog.Logger) *Stager {
	if mode == "" {
		mode = ModeLocal
	}
	return &Stager{
		mode:    mode,
		factory: factory,
		http:    NewHTTPFetcher(0, 3),
		logger:  logger.With("component", "stager"),
	}
}

// WithHTTPFetcher replaces the fetcher used for http(s) locations.
func (s *Stager) WithHTTPFetcher(f *HTTPFetcher) *Stager {
	s.http = f
	return s
}

func (s *Stager) backend(ctx context.Context) (*S3Backend, error) {
	s.once.Do(func() {
		if s.factory == nil {
			s.s3Err = fmt.Errorf("s3 staging is not configured")
			return
		}
		s.s3, s.s3Err = s.factory(ctx)
	})
	return s.s3, s.s3Err
}

// StageIn makes location available on local disk below destDir and returns
// the local path. Local and file:// locations are used in place.
func (s *Stager) StageIn(ctx context.Context, location, destDir string, isDir bool) (string, error) {
	scheme, rest := ParseLocation(location)
	switch scheme {
	case "", SchemeFile:
		if _, err := os.Stat(rest); err != nil {
			return "", fmt.Errorf("stage in %s: %w", location, err)
		}
		return rest, nil

	case SchemeS3:
		b, err := s.backend(ctx)
		if err != nil {
			return "", fmt.Errorf("stage in %s: %w", location, err)
		}
		bucket, key, err := ParseS3(location)
		if err != nil {
			return "", err
		}
		dest := filepath.Join(destDir, path.Base(strings.TrimSuffix(key, "/")))
		if isDir {
			n, err := b.DownloadPrefix(ctx, bucket, key, dest)
			if err != nil {
				return "", fmt.Errorf("stage in %s: %w", location, err)
			}
			if n == 0 {
				return "", fmt.Errorf("stage in %s: no objects under prefix", location)
			}
			s.logger.Debug("staged directory", "location", location, "path", dest, "objects", n)
			return dest, nil
		}
		if err := b.DownloadFile(ctx, bucket, key, dest); err != nil {
			return "", fmt.Errorf("stage in %s: %w", location, err)
		}
		s.logger.Debug("staged file", "location", location, "path", dest)
		return dest, nil

	case SchemeHTTP, SchemeHTTPS:
		if isDir {
			return "", fmt.Errorf("stage in %s: directories cannot be fetched over %s", location, scheme)
		}
		dest := filepath.Join(destDir, urlBase(location))
		if err := s.http.Fetch(ctx, location, dest); err != nil {
			return "", fmt.Errorf("stage in %s: %w", location, err)
		}
		s.logger.Debug("fetched file", "location", location, "path", dest)
		return dest, nil

	default:
		return "", fmt.Errorf("stage in: unsupported scheme %q", scheme)
	}
}

// StageOut publishes root according to the stage-out mode and returns the
// published location.
func (s *Stager) StageOut(ctx context.Context, root string) (string, error) {
	return s.StageOutTo(ctx, root, s.mode)
}

// StageOutTo publishes root to dest, which takes the same forms as the
// stage-out mode. A bare path is treated like file://. An empty dest falls
// back to the stage-out mode.
func (s *Stager) StageOutTo(ctx context.Context, root, dest string) (string, error) {
	if dest == "" {
		dest = s.mode
	}
	if dest == ModeLocal {
		return root, nil
	}

	scheme, rest := ParseLocation(dest)
	switch scheme {
	case "", SchemeFile:
		if err := copyTree(root, rest); err != nil {
			return "", fmt.Errorf("stage out to %s: %w", dest, err)
		}
		return rest, nil

	case SchemeS3:
		b, err := s.backend(ctx)
		if err != nil {
			return "", fmt.Errorf("stage out to %s: %w", dest, err)
		}
		bucket, prefix, err := ParseS3(dest)
		if err != nil {
			return "", err
		}
		n, err := b.UploadDir(ctx, root, bucket, prefix)
		if err != nil {
			return "", fmt.Errorf("stage out to %s: %w", dest, err)
		}
		s.logger.Info("outputs uploaded", "location", dest, "objects", n)
		return dest, nil

	default:
		return "", fmt.Errorf("stage out: unsupported destination %q", dest)
	}
}

// copyTree copies every regular file under src to the same relative path under dst.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

// copyFile copies src to dst, creating parent directories as needed.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
