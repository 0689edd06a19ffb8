package domain

import "time"

// Scene is a named downloadable scene archive.
type Scene struct {
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}

// DownloadResult describes an archive written to disk by a Fetcher.
type DownloadResult struct {
	Filename string // Local file name derived from the URL
	Path     string // Full path of the written archive
	Bytes    int64  // Bytes written during this download (excludes resumed prefix)
	Total    int64  // Final size on disk
}

// InstallRecord is persisted after a scene has been fetched and extracted.
type InstallRecord struct {
	Scene       string    `json:"scene"`
	URL         string    `json:"url"`
	Archive     string    `json:"archive"`
	Bytes       int64     `json:"bytes"`
	Dir         string    `json:"dir"`
	InstalledAt time.Time `json:"installed_at"`
}
