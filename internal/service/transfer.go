package service

// transfer.go holds the CSV import and export endpoints of both the HTML pages and the API.
//
// Imports hold the whole batch in one database transaction, so only a few of them may run at
// the same time. A request waits up to MaxImportWait for a free slot and is refused afterwards.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contact-manager/internal/csvcodec"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	pkgmodel "gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"golang.org/x/sync/semaphore"
)

// uploadField is the name of the multipart field carrying the CSV file.
const uploadField = "csv_file"

// maxReportedErrors is the number of row errors shown as notices after an import.
const maxReportedErrors = 5

var (
	errTooManyImports = errors.New("too many concurrent imports")
	errFileTooLarge   = errors.New("file too large")
	errNoFile         = errors.New("no file selected")
	errNotCSV         = errors.New("only CSV files are allowed")
)

// uploadLimiter bounds the number of imports running at the same time.
type uploadLimiter struct {
	sem     *semaphore.Weighted
	maxWait time.Duration
}

func newUploadLimiter(maxConcurrent int64, maxWait time.Duration) *uploadLimiter {
	return &uploadLimiter{sem: semaphore.NewWeighted(maxConcurrent), maxWait: maxWait}
}

// acquire waits for a free slot. It returns errTooManyImports if none became free in time,
// or the error of ctx if the request was canceled. Every successful acquire must be followed
// by exactly one release.
func (l *uploadLimiter) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()
	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errTooManyImports
	}
	return nil
}

func (l *uploadLimiter) release() {
	l.sem.Release(1)
}

// receiveUpload returns the CSV file of a multipart request. Requests larger than
// MaxUploadSize are refused before their body is read.
func (s *Service) receiveUpload(c *gin.Context) (multipart.File, error) {
	if c.Request.ContentLength > s.opts.MaxUploadSize {
		return nil, errFileTooLarge
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadSize)
	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errFileTooLarge
		}
		return nil, errNoFile
	}
	if header.Filename == "" {
		return nil, errNoFile
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		return nil, errNotCSV
	}
	return header.Open()
}

// importExportPage renders the upload form and the export link.
func (s *Service) importExportPage(c *gin.Context) {
	s.render(c, http.StatusOK, "import_export.html", gin.H{
		"Title":       "Import / Export",
		"MaxUploadMB": s.opts.MaxUploadSize >> 20,
	})
}

// importContacts imports the uploaded CSV file and shows the outcome as notices.
func (s *Service) importContacts(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.uploads.acquire(ctx); err != nil {
		logging.FromContext(ctx).Warn("import refused", "error", err)
		s.redirect(c, "/import-export",
			failure("The server is busy with other imports. Please try again in a moment."))
		return
	}
	defer s.uploads.release()

	file, err := s.receiveUpload(c)
	if err != nil {
		s.redirect(c, "/import-export", failure(s.uploadMessage(err)))
		return
	}
	defer file.Close()

	report := s.importer.Import(ctx, file)
	s.redirect(c, "/import-export", reportNotices(report)...)
}

// importContactsJSON imports the uploaded CSV file and responds with the import report.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/import --request "POST" --form "csv_file=@contacts.csv"
func (s *Service) importContactsJSON(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.uploads.acquire(ctx); err != nil {
		logging.FromContext(ctx).Warn("import refused", "error", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "too many concurrent imports"})
		return
	}
	defer s.uploads.release()

	file, err := s.receiveUpload(c)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.AbortWithStatusJSON(status, gin.H{"message": s.uploadMessage(err)})
		return
	}
	defer file.Close()

	c.JSON(http.StatusOK, s.importer.Import(ctx, file))
}

func (s *Service) uploadMessage(err error) string {
	switch {
	case errors.Is(err, errFileTooLarge):
		return fmt.Sprintf("The file is too large. The maximum size is %d MB.", s.opts.MaxUploadSize>>20)
	case errors.Is(err, errNotCSV):
		return "Invalid file type. Only CSV files are allowed."
	default:
		return "No file selected."
	}
}

// reportNotices summarizes an import: the counts, then the first few row errors.
func reportNotices(report pkgmodel.ImportReport) []notice {
	var notices []notice
	if report.Committed {
		notices = append(notices, success(fmt.Sprintf(
			"Import completed: %d imported, %d updated, %d skipped out of %d total rows.",
			report.Imported, report.Updated, report.Skipped, report.Total)))
	} else {
		notices = append(notices, failure("Import failed. No contacts were changed."))
	}
	for i, msg := range report.Errors {
		if i == maxReportedErrors {
			notices = append(notices, warning(fmt.Sprintf("...and %d more errors.", len(report.Errors)-maxReportedErrors)))
			break
		}
		notices = append(notices, warning(msg))
	}
	return notices
}

// exportContacts sends all contacts as a CSV download.
func (s *Service) exportContacts(c *gin.Context) {
	if err := s.sendExport(c); err != nil {
		logging.FromContext(c.Request.Context()).Error("cannot export contacts", "error", err)
		s.redirect(c, "/import-export", failure("An error occurred while exporting contacts."))
	}
}

// exportContactsJSON sends all contacts as a CSV download.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/export --output contacts.csv
func (s *Service) exportContactsJSON(c *gin.Context) {
	if err := s.sendExport(c); err != nil {
		logging.FromContext(c.Request.Context()).Error("cannot export contacts", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}

// sendExport writes the download. Nothing is written when it returns an error.
func (s *Service) sendExport(c *gin.Context) error {
	contacts, err := s.store.All(c.Request.Context())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := csvcodec.Export(&buf, contacts); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	filename := "contacts_export_" + s.opts.Now().Format("20060102_150405") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	return nil
}
