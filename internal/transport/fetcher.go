package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/grouprpg/sheetbot/internal/errors"
)

// Fetcher downloads inbound pictures into a local directory.
type Fetcher struct {
	client *http.Client
	dir    string
}

// NewFetcher creates a picture fetcher storing files under dir.
func NewFetcher(dir string) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		dir:    dir,
	}
}

// Fetch downloads the picture at url and stores it as baseName plus an
// extension derived from the content type. It returns the final filename.
func (f *Fetcher) Fetch(ctx context.Context, url, baseName string) (string, error) {
	if f == nil {
		return "", fmt.Errorf("fetcher is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(errors.CodePictureFetchFailed, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.CodePictureFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewWithMetadata(errors.CodePictureFetchFailed, map[string]string{
			"status": resp.Status,
		})
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrap(errors.CodePictureFetchFailed, err)
	}
	head = head[:n]

	filename := baseName + extensionFor(resp.Header.Get("Content-Type"), head)
	tmpPath := filepath.Join(f.dir, filename+".part")
	finalPath := filepath.Join(f.dir, filename)

	file, err := os.Create(tmpPath)
	if err != nil {
		return "", errors.Wrap(errors.CodePictureFetchFailed, err)
	}
	if _, err := file.Write(head); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", errors.Wrap(errors.CodePictureFetchFailed, err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", errors.Wrap(errors.CodePictureFetchFailed, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(errors.CodePictureFetchFailed, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(errors.CodePictureFetchFailed, err)
	}
	return filename, nil
}

// extensionFor maps the declared content type, or the sniffed one when
// the header is absent or generic, to a file extension.
func extensionFor(contentType string, head []byte) string {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head)
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
