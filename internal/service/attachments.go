package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"golang.org/x/sync/errgroup"
)

const stageConcurrency = 4

// AttachmentManager holds the images staged for the next message.
type AttachmentManager struct {
	mu     sync.Mutex
	staged []domain.Attachment
}

func NewAttachmentManager() *AttachmentManager {
	return &AttachmentManager{}
}

// Stage validates data as an image and queues it.
func (m *AttachmentManager) Stage(name string, data []byte) (domain.Attachment, error) {
	att, err := NewAttachment(name, data)
	if err != nil {
		return domain.Attachment{}, err
	}

	m.mu.Lock()
	m.staged = append(m.staged, att)
	m.mu.Unlock()
	return att, nil
}

// StageFiles reads and stages every path concurrently. Files are appended as
// they finish, so the staged order follows completion, not argument order.
// The returned error joins the failures of individual files.
func (m *AttachmentManager) StageFiles(ctx context.Context, paths ...string) error {
	var (
		errMu sync.Mutex
		errs  []error
	)
	fail := func(err error) {
		errMu.Lock()
		errs = append(errs, err)
		errMu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(fmt.Errorf("stage %s: %w", path, err))
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				fail(fmt.Errorf("read %s: %w", path, err))
				return nil
			}
			if _, err := m.Stage(filepath.Base(path), data); err != nil {
				fail(fmt.Errorf("stage %s: %w", path, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Unstage drops the attachment at index. Out-of-range indexes are ignored.
func (m *AttachmentManager) Unstage(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.staged) {
		return
	}
	m.staged = append(m.staged[:index], m.staged[index+1:]...)
}

func (m *AttachmentManager) Clear() {
	m.mu.Lock()
	m.staged = nil
	m.mu.Unlock()
}

// Take returns the staged attachments and empties the list in one step, so
// images staged concurrently land either in the result or in the next batch.
func (m *AttachmentManager) Take() []domain.Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	taken := m.staged
	m.staged = nil
	return taken
}

// Staged returns a copy of the staged attachments in order.
func (m *AttachmentManager) Staged() []domain.Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Attachment(nil), m.staged...)
}

func (m *AttachmentManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged)
}

// NewAttachment sniffs data and builds an attachment with a data URL preview.
func NewAttachment(name string, data []byte) (domain.Attachment, error) {
	if len(data) > config.MaxImageSize {
		return domain.Attachment{}, fmt.Errorf("%s (%d bytes): %w", name, len(data), domain.ErrAttachmentTooLarge)
	}
	mediaType := DetectMediaType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		return domain.Attachment{}, fmt.Errorf("%s is %s: %w", name, mediaType, domain.ErrUnsupportedType)
	}
	return domain.Attachment{
		Name:      name,
		MediaType: mediaType,
		Preview:   DataURL(mediaType, data),
		Data:      data,
	}, nil
}

// DetectMediaType returns the sniffed MIME type without parameters.
func DetectMediaType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func DataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
