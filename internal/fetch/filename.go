package fetch

import (
	"fmt"
	"strings"

	"github.com/mmcdole/scenedl/internal/domain"
)

// FilenameFromURL returns the text after the final "/" of rawURL, cut at the
// first "?". The result is not validated; see localName.
func FilenameFromURL(rawURL string) string {
	name := rawURL[strings.LastIndex(rawURL, "/")+1:]
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	return name
}

// localName derives a file name that is safe to create inside a directory.
func localName(rawURL string) (string, error) {
	name := FilenameFromURL(rawURL)
	switch {
	case name == "", name == ".", name == "..":
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyFilename, rawURL)
	case strings.ContainsAny(name, `\`+"\x00"):
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyFilename, rawURL)
	}
	return name, nil
}
