// Package importer reconciles the rows of a CSV file with the stored contacts.
//
// The email address is the key: a row whose normalized email is already known updates that
// contact, any other row creates a new one. All rows of a file are applied in a single
// transaction. A row that cannot be applied is skipped and reported without affecting the
// others, while a problem with the file as a whole discards every change.
package importer

import (
	"context"
	"fmt"
	"io"
	"time"

	"gitlab.com/dirk.krummacker/contact-manager/internal/csvcodec"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"gitlab.com/dirk.krummacker/contact-manager/internal/metrics"
	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
	pkgmodel "gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "gitlab.com/dirk.krummacker/contact-manager/internal/importer"

var requiredColumns = []string{model.FieldFullName, model.FieldPhoneNumber, model.FieldEmail}

// Importer applies CSV files to the contact store.
type Importer struct {
	store   *store.Store
	now     func() time.Time
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures an Importer.
type Option func(*Importer)

// WithClock sets the source of the created and updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// WithMetrics makes the importer count rows and imports.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Importer) { i.metrics = m }
}

// WithTracerProvider sets the provider of the import spans. The global provider is used by
// default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(i *Importer) { i.tracer = tp.Tracer(tracerName) }
}

// New creates an importer writing to s.
func New(s *store.Store, opts ...Option) *Importer {
	i := &Importer{
		store:  s,
		now:    model.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import reads the CSV file from r and applies all of its rows.
//
// Errors are part of the report rather than returned: "Row <n>: <detail>" for every skipped
// row and a single "File error: <detail>" when the file could not be processed. In the latter
// case the report carries no counts, with one exception: when only the final commit fails, the
// counts describe what the rows would have done and Committed is false.
func (i *Importer) Import(ctx context.Context, r io.Reader) pkgmodel.ImportReport {
	ctx, span := i.tracer.Start(ctx, "importer.Import")
	defer span.End()

	report := i.run(ctx, r)

	span.SetAttributes(
		attribute.Int("import.total", report.Total),
		attribute.Int("import.imported", report.Imported),
		attribute.Int("import.updated", report.Updated),
		attribute.Int("import.skipped", report.Skipped),
		attribute.Bool("import.committed", report.Committed),
	)
	if !report.Committed {
		span.SetStatus(codes.Error, report.Errors[len(report.Errors)-1])
	}
	i.metrics.ObserveImport(report.Committed)

	logging.FromContext(ctx).Info("csv import finished",
		"total", report.Total,
		"imported", report.Imported,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
		"committed", report.Committed,
	)
	return report
}

func (i *Importer) run(ctx context.Context, r io.Reader) pkgmodel.ImportReport {
	tx, err := i.store.Begin(ctx)
	if err != nil {
		return fileFailure(err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil {
			logging.FromContext(ctx).Error("cannot roll back import", "error", err)
		}
	}()

	report := pkgmodel.ImportReport{Errors: []string{}}
	rows := csvcodec.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return fileFailure(err)
		}
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fileFailure(err)
		}

		report.Total++
		skip := func(detail string) {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: %s", row.Number, detail))
			i.metrics.ObserveImportRow(metrics.RowSkipped)
		}
		if !hasRequired(row) {
			skip("Missing required fields")
			continue
		}
		outcome, err := i.importRow(ctx, tx, row)
		if err != nil {
			skip(store.Describe(err))
			continue
		}
		switch outcome {
		case metrics.RowImported:
			report.Imported++
		case metrics.RowUpdated:
			report.Updated++
		}
		i.metrics.ObserveImportRow(outcome)
	}

	if err := tx.Commit(); err != nil {
		report.Errors = append(report.Errors, "File error: "+store.Describe(err))
		return report
	}
	report.Committed = true
	return report
}

// hasRequired reports whether the row has values for all required columns. Import rows are not
// validated any further.
func hasRequired(row csvcodec.Row) bool {
	for _, column := range requiredColumns {
		if !row.Present(column) {
			return false
		}
	}
	return true
}

// importRow creates or updates the contact of one row and returns which of the two it did.
func (i *Importer) importRow(ctx context.Context, tx *store.Tx, row csvcodec.Row) (string, error) {
	fields := row.Fields().Clean()
	now := i.now()

	var outcome string
	err := tx.Isolated(ctx, func() error {
		existing, found, err := tx.FindByEmail(ctx, fields.Email)
		if err != nil {
			return err
		}
		if found {
			existing.ApplyImport(fields, now)
			outcome = metrics.RowUpdated
			return tx.Update(ctx, &existing)
		}
		c := model.NewContact(fields, now)
		outcome = metrics.RowImported
		_, err = tx.Create(ctx, &c)
		return err
	})
	return outcome, err
}

func fileFailure(err error) pkgmodel.ImportReport {
	return pkgmodel.ImportReport{Errors: []string{"File error: " + store.Describe(err)}}
}
