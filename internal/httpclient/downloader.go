package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
)

// Sender receives progress messages during a download. A bubbletea program
// satisfies it; headless callers pass a no-op implementation.
type Sender interface {
	Send(msg tea.Msg)
}

// DownloadProgressMsg reports download progress as a fraction in [0, 1].
// Percent is negative when the server did not announce a content length.
type DownloadProgressMsg struct {
	FileName string
	Percent  float64
}

// DownloadFile streams url into destination. The optional filesystem
// argument lets tests supply an in-memory fs; the OS fs is the default.
func DownloadFile(ctx context.Context, url string, destination string, doer Doer, sender Sender, filesystems ...afero.Fs) error {
	fs := afero.NewOsFs()
	if len(filesystems) > 0 {
		fs = filesystems[0]
	}

	ctx, cancel := WithDownloadTimeout(ctx)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	response, err := doer.Do(request)
	if err != nil {
		return WrapTimeoutError(err)
	}
	defer func() {
		_ = drainAndClose(response.Body)
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d downloading %s", response.StatusCode, url)
	}

	if err := fs.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return err
	}

	file, err := fs.Create(destination)
	if err != nil {
		return err
	}

	writer := &progressWriter{
		fileName: filepath.Base(destination),
		total:    response.ContentLength,
		sender:   sender,
		out:      file,
	}

	_, copyErr := io.Copy(writer, response.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = fs.Remove(destination)
		return WrapTimeoutError(copyErr)
	}
	if closeErr != nil {
		_ = fs.Remove(destination)
		return closeErr
	}

	if sender != nil {
		sender.Send(DownloadProgressMsg{FileName: writer.fileName, Percent: 1})
	}
	return nil
}

type progressWriter struct {
	fileName string
	total    int64
	written  int64
	sender   Sender
	out      io.Writer
}

func (writer *progressWriter) Write(payload []byte) (int, error) {
	n, err := writer.out.Write(payload)
	writer.written += int64(n)

	if writer.sender != nil {
		percent := -1.0
		if writer.total > 0 {
			percent = float64(writer.written) / float64(writer.total)
		}
		writer.sender.Send(DownloadProgressMsg{
			FileName: writer.fileName,
			Percent:  percent,
		})
	}
	return n, err
}
