package debt

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

// MaxFileSize caps one debt attachment.
const MaxFileSize = 10 << 20

var (
	ErrFileNotFound = fmt.Errorf("%w: debt file", httpx.ErrNotFound)
	ErrFileEmpty    = fmt.Errorf("%w: file is empty", httpx.ErrValidation)
	ErrFileTooLarge = fmt.Errorf("%w: file exceeds %d MB", httpx.ErrValidation, MaxFileSize>>20)
	ErrFileName     = fmt.Errorf("%w: file name is required", httpx.ErrValidation)
)

// File is an attachment (contract, invoice scan, reconciliation sheet)
// kept against a customer's debt for one year. Content is loaded separately.
type File struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	Year        int       `json:"year"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Notes       string    `json:"notes,omitempty"`
	UploadedBy  *int64    `json:"uploaded_by,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// FileUpload carries one attachment.
type FileUpload struct {
	CustomerID int64
	Year       int
	FileName   string
	Notes      string
	Content    []byte
}

// FileRepository persists attachments with their bytes.
type FileRepository interface {
	CreateFile(ctx context.Context, f File, content []byte) (File, error)
	ListFiles(ctx context.Context, customerID int64, year *int) ([]File, error)
	// GetFile returns the metadata and the bytes.
	GetFile(ctx context.Context, id int64) (File, []byte, error)
	DeleteFile(ctx context.Context, id int64) error
}

// FileService stores attachments per customer and year.
type FileService struct {
	repo      FileRepository
	customers CustomerLookup
	logger    *slog.Logger
}

// NewFileService constructs the attachment service.
func NewFileService(repo FileRepository, customerLookup CustomerLookup, logger *slog.Logger) *FileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileService{repo: repo, customers: customerLookup, logger: logger}
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)

// SanitizeFileName keeps letters, digits and dots; everything else becomes
// an underscore. Directory parts are dropped.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// Upload validates and stores an attachment. The content type is sniffed
// from the bytes, never taken from the client.
func (s *FileService) Upload(ctx context.Context, in FileUpload) (File, error) {
	if in.CustomerID <= 0 {
		return File{}, ErrInvalidCustomer
	}
	if in.Year < 2000 || in.Year > 2100 {
		return File{}, ErrInvalidYear
	}
	name := SanitizeFileName(in.FileName)
	if name == "" {
		return File{}, ErrFileName
	}
	switch {
	case len(in.Content) == 0:
		return File{}, ErrFileEmpty
	case len(in.Content) > MaxFileSize:
		return File{}, ErrFileTooLarge
	}
	if _, err := s.customers.Get(ctx, in.CustomerID); err != nil {
		return File{}, err
	}
	f := File{
		CustomerID:  in.CustomerID,
		Year:        in.Year,
		FileName:    name,
		ContentType: mimetype.Detect(in.Content).String(),
		Size:        int64(len(in.Content)),
		Notes:       strings.TrimSpace(in.Notes),
	}
	if uid, ok := shared.UserIDFromContext(ctx); ok {
		f.UploadedBy = &uid
	}
	created, err := s.repo.CreateFile(ctx, f, in.Content)
	if err != nil {
		return File{}, err
	}
	s.logger.Info("debt file uploaded",
		slog.Int64("customer_id", created.CustomerID), slog.Int("year", created.Year),
		slog.String("file", created.FileName), slog.Int64("size", created.Size))
	return created, nil
}

// List returns the customer's attachments, newest first, optionally for one year.
func (s *FileService) List(ctx context.Context, customerID int64, year *int) ([]File, error) {
	if customerID <= 0 {
		return nil, ErrInvalidCustomer
	}
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListFiles(ctx, customerID, year)
}

// Open returns an attachment of customerID with its bytes.
func (s *FileService) Open(ctx context.Context, customerID, id int64) (File, []byte, error) {
	f, content, err := s.repo.GetFile(ctx, id)
	if err != nil {
		return File{}, nil, err
	}
	if f.CustomerID != customerID {
		return File{}, nil, ErrFileNotFound
	}
	return f, content, nil
}

// Delete removes an attachment of customerID.
func (s *FileService) Delete(ctx context.Context, customerID, id int64) error {
	if _, _, err := s.Open(ctx, customerID, id); err != nil {
		return err
	}
	return s.repo.DeleteFile(ctx, id)
}
