// Package sdkfetch downloads a prebuilt SDK archive, verifies its digest
// and unpacks it so the resolver can find the export configuration inside.
package sdkfetch

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/voxim-io/voxim/internal/environment"
	"github.com/voxim-io/voxim/internal/httpclient"
	"github.com/voxim-io/voxim/internal/perf"
)

// HashMismatchError means the downloaded archive did not match the pinned
// digest. The archive is discarded before this error is returned.
type HashMismatchError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("digest mismatch for %s: expected %s, got %s", e.URL, e.Expected, e.Actual)
}

// UnsafeArchiveError means an archive entry tried to escape the
// destination directory.
type UnsafeArchiveError struct {
	Entry string
}

func (e *UnsafeArchiveError) Error() string {
	return fmt.Sprintf("archive entry %s escapes the destination directory", e.Entry)
}

// Fetcher retrieves and unpacks SDK archives.
type Fetcher struct {
	fs     afero.Fs
	client httpclient.Doer
	sender httpclient.Sender
}

func NewFetcher(fs afero.Fs, client httpclient.Doer, sender httpclient.Sender) *Fetcher {
	return &Fetcher{fs: fs, client: client, sender: sender}
}

// ArchiveURL returns the download location for an SDK version.
func ArchiveURL(version string) string {
	return fmt.Sprintf("%s/voxim-sdk-%s.tar.gz", environment.SDKBaseURL(), version)
}

// Fetch downloads the archive for version, verifies it against
// expectedDigest (hex sha256, empty skips verification) and unpacks it
// into destDir. It returns the unpacked SDK root.
func (f *Fetcher) Fetch(ctx context.Context, version string, expectedDigest string, destDir string) (string, error) {
	ctx, span := perf.StartSpan(ctx, "sdkfetch.fetch")
	defer span.End()

	url := ArchiveURL(version)
	archivePath := filepath.Join(destDir, fmt.Sprintf("voxim-sdk-%s.tar.gz", version))

	if err := httpclient.DownloadFile(ctx, url, archivePath, f.client, f.sender, f.fs); err != nil {
		return "", err
	}

	if err := f.verify(url, archivePath, expectedDigest); err != nil {
		_ = f.fs.Remove(archivePath)
		return "", err
	}

	root := filepath.Join(destDir, fmt.Sprintf("voxim-sdk-%s", version))
	if err := f.unpack(archivePath, root); err != nil {
		return "", err
	}

	_ = f.fs.Remove(archivePath)
	return root, nil
}

func (f *Fetcher) verify(url string, archivePath string, expectedDigest string) error {
	if expectedDigest == "" {
		return nil
	}

	file, err := f.fs.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return err
	}
	actual := hex.EncodeToString(hasher.Sum(nil))

	if !strings.EqualFold(actual, expectedDigest) {
		return &HashMismatchError{URL: url, Expected: strings.ToLower(expectedDigest), Actual: actual}
	}
	return nil
}

func (f *Fetcher) unpack(archivePath string, root string) error {
	file, err := f.fs.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gz.Close()

	reader := tar.NewReader(gz)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := safeJoin(root, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := f.fs.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := f.extractFile(reader, target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		default:
			// Symlinks and other special entries are not expected in SDK
			// archives and get skipped.
		}
	}
}

func (f *Fetcher) extractFile(reader io.Reader, target string, mode os.FileMode) error {
	if err := f.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := f.fs.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, reader); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return f.fs.Chmod(target, mode)
}

func safeJoin(root string, entry string) (string, error) {
	target := filepath.Join(root, filepath.Clean(entry))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", &UnsafeArchiveError{Entry: entry}
	}
	return target, nil
}
