package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a single import row.
const (
	RowImported = "imported"
	RowUpdated  = "updated"
	RowSkipped  = "skipped"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ContactsCreated prometheus.Counter
	ContactsUpdated prometheus.Counter
	ContactsDeleted prometheus.Counter
	ImportRows      *prometheus.CounterVec
	Imports         *prometheus.CounterVec
}

// New creates all Prometheus metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ContactsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "contacts_created_total",
			Help: "Total number of contacts created through forms or the API",
		}),
		ContactsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "contacts_updated_total",
			Help: "Total number of contacts edited through forms or the API",
		}),
		ContactsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "contacts_deleted_total",
			Help: "Total number of contacts deleted",
		}),
		ImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_import_rows_total",
			Help: "Total number of processed CSV import rows by outcome",
		}, []string{"outcome"}),
		Imports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_imports_total",
			Help: "Total number of CSV imports by whether they were committed",
		}, []string{"committed"}),
	}
}

// IncrementContactsCreated increments the contacts created counter by 1
func (m *Metrics) IncrementContactsCreated() {
	if m != nil {
		m.ContactsCreated.Inc()
	}
}

// IncrementContactsUpdated increments the contacts updated counter by 1
func (m *Metrics) IncrementContactsUpdated() {
	if m != nil {
		m.ContactsUpdated.Inc()
	}
}

// IncrementContactsDeleted increments the contacts deleted counter by 1
func (m *Metrics) IncrementContactsDeleted() {
	if m != nil {
		m.ContactsDeleted.Inc()
	}
}

// ObserveImportRow counts one import row with the outcome RowImported, RowUpdated or RowSkipped.
func (m *Metrics) ObserveImportRow(outcome string) {
	if m != nil {
		m.ImportRows.WithLabelValues(outcome).Inc()
	}
}

// ObserveImport counts one finished import.
func (m *Metrics) ObserveImport(committed bool) {
	if m == nil {
		return
	}
	if committed {
		m.Imports.WithLabelValues("true").Inc()
	} else {
		m.Imports.WithLabelValues("false").Inc()
	}
}
