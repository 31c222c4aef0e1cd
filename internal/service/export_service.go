package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/pkg/export"
	"github.com/noah-isme/smk-student-hub/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders report jobs and persists the files behind signed download links.
type ExportService struct {
	renderer *ReportRenderer
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	xlsx     csvRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(renderer *ReportRenderer, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		renderer: renderer,
		storage:  files,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		xlsx:     export.NewXLSXExporter("Laporan"),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the job, stores the file and signs a download link.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	session := models.Session{Name: job.CreatedBy, TeacherID: job.Params.Teacher, Role: job.Params.Role}

	var payload []byte
	var err error
	if job.Type == models.ReportTypeMonthly {
		var report *MonthlyReport
		report, err = s.renderer.Monthly(ctx, session, job.Params.Month, job.Params.ClassID)
		if err != nil {
			return nil, err
		}
		payload, err = s.renderer.PDF(report)
	} else {
		var dataset export.Dataset
		var title string
		dataset, title, err = s.renderer.Dataset(ctx, session, job.Type, job.Params.Month, job.Params.ClassID)
		if err != nil {
			return nil, err
		}
		switch job.Params.Format {
		case models.ReportFormatCSV:
			payload, err = s.csv.Render(dataset)
		case models.ReportFormatPDF:
			payload, err = s.pdf.Render(dataset, title)
		case models.ReportFormatXLSX:
			payload, err = s.xlsx.Render(dataset)
		default:
			err = fmt.Errorf("unsupported format %s", job.Params.Format)
		}
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Verify validates a download token.
func (s *ExportService) Verify(token string) (storage.Grant, error) {
	return s.signer.Verify(token)
}

// Read returns the stored file content.
func (s *ExportService) Read(relPath string) ([]byte, error) {
	return s.storage.Read(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().Format("20060102_150405")
	scope := sanitizeFilename(job.Params.Month)
	if job.Params.ClassID != "" {
		scope += "_" + sanitizeFilename(job.Params.ClassID)
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, shortID(job.ID), job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
