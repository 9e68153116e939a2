package earthfile

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var remoteSchemes = []string{"http://", "https://", "ftp://"}

// IsRemote reports whether location names a network resource rather than a local path.
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	for _, s := range remoteSchemes {
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}

// fetch issues a single GET. A non-200 status or an empty body is a failure.
func (e *EarthFile) fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(strings.ToLower(location), "http") {
		return nil, errors.Wrapf(ErrUnsupportedScheme, "%s", location)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrRemoteFetch, "%s: %v", location, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrRemoteFetch, "%s: %v", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Wrapf(ErrRemoteFetch, "%s: status %d", location, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, errors.Wrapf(ErrRemoteFetch, "%s: %v", location, err)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrRemoteFetch, "%s: empty body", location)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// localPath checks that location is an existing regular file and returns its absolute,
// symlink-resolved path.
func localPath(location string) (string, error) {
	fi, err := os.Stat(location)
	if err != nil {
		return "", errors.Wrapf(err, "earthfile: stat %s", location)
	}
	if !fi.Mode().IsRegular() {
		return "", errors.Wrapf(ErrNotRegularFile, "%s", location)
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return location, nil
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}
