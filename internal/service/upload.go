package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/CZERTAINLY/Repairer/internal/model"
)

// Uploaders returns the report destinations configured by cfg. Without a
// directory the report goes to stdout.
func Uploaders(_ context.Context, cfg model.Output) ([]model.Uploader, error) {
	if cfg.Dir == "" {
		return []model.Uploader{NewWriteUploader(os.Stdout)}, nil
	}
	u, err := NewOSRootUploader(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return []model.Uploader{u}, nil
}

// Publish hands raw to every uploader. All of them are tried.
func Publish(ctx context.Context, raw []byte, uploaders ...model.Uploader) error {
	var errs []error
	for _, u := range uploaders {
		if err := u.Upload(ctx, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func CloseUploaders(ctx context.Context, uploaders []model.Uploader) {
	for _, uploader := range uploaders {
		if closer, ok := uploader.(model.UploadCloser); ok {
			if err := closer.Close(); err != nil {
				slog.ErrorContext(ctx, "closing uploader have failed", "error", err)
			}
		}
	}
}

type WriteUploader struct {
	w io.Writer
}

func NewWriteUploader(w io.Writer) WriteUploader {
	return WriteUploader{w: w}
}

func (u WriteUploader) Upload(_ context.Context, raw []byte) error {
	if u.w == nil {
		u.w = os.Stdout
	}
	_, err := u.w.Write(raw)
	return err
}

// OSRootUploader stores each report as a new file confined to a directory.
type OSRootUploader struct {
	root *os.Root
	now  func() time.Time
}

func NewOSRootUploader(path string) (*OSRootUploader, error) {
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, fmt.Errorf("opening report dir: %w", err)
	}
	return &OSRootUploader{root: root, now: time.Now}, nil
}

func (u *OSRootUploader) Upload(ctx context.Context, b []byte) error {
	if u.root == nil {
		return errors.New("root already closed")
	}

	path := "repairer-" + u.now().Format("2006-01-02-15-04-05.000000000") + ".json"

	f, err := u.root.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating repair report: %w", err)
	}
	_, err = f.Write(b)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("saving repair report: %w", err)
	}
	err = f.Close()
	if err != nil {
		return fmt.Errorf("closing repair report: %w", err)
	}
	slog.InfoContext(ctx, "repair report saved", "path", path)
	return nil
}

func (u *OSRootUploader) Close() error {
	if u.root == nil {
		return errors.New("uploader already closed")
	}
	err := u.root.Close()
	u.root = nil
	return err
}
