// Package fetch streams scene archives over HTTP into local files.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/scenedl/internal/domain"
)

// DefaultChunkSize is the read size used when Options.ChunkSize is unset.
const DefaultChunkSize = 1024

// Options configures a Fetcher.
type Options struct {
	ChunkSize int
	Timeout   time.Duration // Whole-request timeout, 0 for none
	Resume    bool          // Continue partial files with a Range request
	UserAgent string
	Client    *http.Client // Optional; overrides Timeout
}

// Fetcher downloads URLs chunk by chunk, reporting progress after each chunk.
type Fetcher struct {
	client    *http.Client
	chunkSize int
	resume    bool
	userAgent string
	logger    *slog.Logger
}

// New creates a Fetcher.
func New(opts Options, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.Client
	if client == nil {
		// The default redirect policy follows Dropbox's 302s.
		client = &http.Client{Timeout: opts.Timeout}
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Fetcher{
		client:    client,
		chunkSize: chunkSize,
		resume:    opts.Resume,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// Fetch downloads rawURL into dir under the name derived by FilenameFromURL.
// onProgress may be nil. Unless resuming is enabled, a partially written
// file is removed when the download fails.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dir string, onProgress domain.ProgressFunc) (domain.DownloadResult, error) {
	name, err := localName(rawURL)
	if err != nil {
		return domain.DownloadResult{}, err
	}
	path := filepath.Join(dir, name)

	var offset int64
	if f.resume {
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			offset = fi.Size()
		}
	}

	resp, offset, err := f.open(ctx, rawURL, offset)
	if err != nil {
		return domain.DownloadResult{}, err
	}
	if resp == nil {
		f.logger.Info("archive already complete", "url", rawURL, "path", path, "bytes", offset)
		if onProgress != nil {
			onProgress(offset, offset)
		}
		return domain.DownloadResult{Filename: name, Path: path, Total: offset}, nil
	}
	defer resp.Body.Close()

	total := int64(-1)
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	} else {
		f.logger.Debug("content length unknown", "url", rawURL)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if offset > 0 {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	fp, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return domain.DownloadResult{}, fmt.Errorf("failed to create %s: %w", path, err)
	}

	written, err := f.copyChunks(fp, resp.Body, offset, total, onProgress)
	if cerr := fp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	if err != nil {
		if !f.resume {
			os.Remove(path)
		}
		f.logger.Error("download failed", "url", rawURL, "written", written, "error", err)
		return domain.DownloadResult{}, err
	}

	f.logger.Info("download complete", "url", rawURL, "path", path, "bytes", written)

	return domain.DownloadResult{
		Filename: name,
		Path:     path,
		Bytes:    written,
		Total:    offset + written,
	}, nil
}

// open issues the GET for rawURL, asking for the bytes after offset when it
// is positive. It returns the response and the offset the body starts at.
// A nil response means the file on disk already holds the whole resource.
// Range replies that do not line up with offset restart the download.
func (f *Fetcher) open(ctx context.Context, rawURL string, offset int64) (*http.Response, int64, error) {
	resp, err := f.get(ctx, rawURL, offset)
	if err != nil {
		return nil, 0, err
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if offset == 0 {
		if !ok {
			resp.Body.Close()
			return nil, 0, &domain.HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
		}
		return resp, 0, nil
	}

	start, size, parsed := parseContentRange(resp.Header.Get("Content-Range"))
	switch {
	case resp.StatusCode == http.StatusPartialContent:
		if parsed && start == offset {
			f.logger.Info("resuming download", "url", rawURL, "offset", offset)
			return resp, offset, nil
		}
		f.logger.Info("range reply does not match partial file, restarting download",
			"url", rawURL, "offset", offset, "content_range", resp.Header.Get("Content-Range"))
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		if parsed && size == offset {
			resp.Body.Close()
			return nil, offset, nil
		}
		f.logger.Info("range not satisfiable, restarting download", "url", rawURL, "offset", offset)
	case ok:
		f.logger.Info("server ignored range, restarting download", "url", rawURL)
		return resp, 0, nil
	default:
		resp.Body.Close()
		return nil, 0, &domain.HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	resp.Body.Close()
	return f.open(ctx, rawURL, 0)
}

func (f *Fetcher) get(ctx context.Context, rawURL string, offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}

	f.logger.Debug("GET", "url", rawURL, "offset", offset)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	return resp, nil
}

// copyChunks copies src to dst one chunk at a time and returns the number of
// bytes written. Progress is counted from the bytes actually written, so a
// short final chunk is reported exactly.
func (f *Fetcher) copyChunks(dst io.Writer, src io.Reader, offset, total int64, onProgress domain.ProgressFunc) (int64, error) {
	buf := make([]byte, f.chunkSize)
	var written int64

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, fmt.Errorf("failed to write chunk: %w", werr)
			}
			if w != n {
				return written, fmt.Errorf("failed to write chunk: %w", io.ErrShortWrite)
			}
			if onProgress != nil {
				onProgress(offset+written, total)
			}
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("failed to read response: %w", rerr)
		}
	}
}

// parseContentRange reads "bytes <first>-<last>/<size>" and "bytes */<size>".
// Unknown parts are returned as -1.
func parseContentRange(h string) (start, size int64, ok bool) {
	units, found := strings.CutPrefix(strings.TrimSpace(h), "bytes ")
	if !found {
		return 0, 0, false
	}
	rng, total, found := strings.Cut(units, "/")
	if !found {
		return 0, 0, false
	}

	start, size = -1, -1
	if rng != "*" {
		first, _, found := strings.Cut(rng, "-")
		if !found {
			return 0, 0, false
		}
		n, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		start = n
	}
	if total != "*" {
		n, err := strconv.ParseInt(total, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		size = n
	}
	return start, size, true
}
