package domain

import "context"

// Fetcher downloads a URL into a directory.
type Fetcher interface {
	Fetch(ctx context.Context, url, dir string, onProgress ProgressFunc) (DownloadResult, error)
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archive, dir string) error
}
