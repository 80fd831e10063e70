package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// DownloadProgress reports download progress to a callback.
type DownloadProgress struct {
	TotalBytes      int64
	DownloadedBytes int64
	Resuming        bool
}

// ProgressFunc is called periodically during download.
type ProgressFunc func(DownloadProgress)

// Download fetches url into dest. A partial download left in dest+".part"
// is resumed with a Range request; the part file is renamed into place once complete.
func Download(ctx context.Context, client *http.Client, url, dest string, progressFn ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	partPath := dest + ".part"

	var existingSize int64
	if info, err := os.Stat(partPath); err == nil {
		existingSize = info.Size()
	}

	resp, err := get(ctx, client, url, existingSize)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		existingSize = 0
	case http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		// server rejected the range; start over
		_ = resp.Body.Close()
		existingSize = 0
		resp, err = get(ctx, client, url, 0)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download %s: unexpected status on retry: %s", url, resp.Status)
		}
	default:
		return fmt.Errorf("download %s: unexpected HTTP status: %s", url, resp.Status)
	}

	var totalSize int64
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			totalSize = n + existingSize
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if existingSize > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	partFile, err := os.OpenFile(partPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open part file: %w", err)
	}
	defer func() { _ = partFile.Close() }()

	downloaded := existingSize
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := partFile.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("write: %w", writeErr)
			}
			downloaded += int64(n)
			if progressFn != nil {
				progressFn(DownloadProgress{TotalBytes: totalSize, DownloadedBytes: downloaded, Resuming: existingSize > 0})
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return fmt.Errorf("read: %w", readErr)
		}
	}
	if err := partFile.Close(); err != nil {
		return fmt.Errorf("close part file: %w", err)
	}
	if err := os.Rename(partPath, dest); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func get(ctx context.Context, client *http.Client, url string, offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request: %w", err)
	}
	return resp, nil
}
