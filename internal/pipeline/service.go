// Package pipeline runs fetch, extract and cleanup for a chosen scene.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mmcdole/scenedl/internal/domain"
)

// Options configures a Service.
type Options struct {
	Dir         string // Download and extraction directory
	KeepArchive bool   // Leave the archive on disk after a successful extraction
}

// Service orchestrates fetcher + extractor + history operations.
type Service struct {
	fetcher   domain.Fetcher
	extractor domain.Extractor
	history   domain.HistoryStore
	out       io.Writer
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new pipeline service. history may be nil.
func NewService(
	fetcher domain.Fetcher,
	extractor domain.Extractor,
	history domain.HistoryStore,
	out io.Writer,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return &Service{
		fetcher:   fetcher,
		extractor: extractor,
		history:   history,
		out:       out,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Process downloads scene, extracts it and deletes the archive.
//
// The archive is deleted only after extraction succeeds. When extraction
// fails (including for an unsupported format) the archive stays on disk and
// the error is returned.
func (s *Service) Process(ctx context.Context, scene domain.Scene, progress domain.ProgressReporter) (domain.InstallRecord, error) {
	s.logger.Info("processing scene", "scene", scene.Name, "url", scene.URL, "dir", s.opts.Dir)

	var onProgress domain.ProgressFunc
	if progress != nil {
		onProgress = progress.Update
	}

	res, err := s.fetcher.Fetch(ctx, scene.URL, s.opts.Dir, onProgress)
	if err != nil {
		if progress != nil {
			progress.Abort()
		}
		return domain.InstallRecord{}, fmt.Errorf("download %s: %w", scene.Name, err)
	}
	if progress != nil {
		progress.Done()
	}

	if err := s.extractor.Extract(ctx, res.Path, s.opts.Dir); err != nil {
		s.logger.Warn("keeping archive after failed extraction", "archive", res.Path, "error", err)
		return domain.InstallRecord{}, err
	}
	fmt.Fprintln(s.out, "File is unarchived!!")

	if !s.opts.KeepArchive {
		if err := os.Remove(res.Path); err != nil {
			return domain.InstallRecord{}, fmt.Errorf("failed to remove archive: %w", err)
		}
		s.logger.Debug("removed archive", "archive", res.Path)
	}

	rec := domain.InstallRecord{
		Scene:       scene.Name,
		URL:         scene.URL,
		Archive:     res.Filename,
		Bytes:       res.Total,
		Dir:         s.opts.Dir,
		InstalledAt: s.now().UTC(),
	}
	if s.history != nil {
		if err := s.history.Record(rec); err != nil {
			s.logger.Error("failed to save install record", "scene", scene.Name, "error", err)
		}
	}

	return rec, nil
}
