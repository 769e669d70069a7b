package api

import (
	"sync/atomic"
	"time"
)

// Metrics collects in-memory server metrics using atomic counters.
type Metrics struct {
	startTime      time.Time
	requests       atomic.Int64
	serverErrors   atomic.Int64
	clientErrors   atomic.Int64
	logins         atomic.Int64
	failedLogins   atomic.Int64
	attendanceSets atomic.Int64
	importedRows   atomic.Int64
	failedRows     atomic.Int64
	exports        atomic.Int64
	uploads        atomic.Int64
}

// MetricsSnapshot is a point-in-time view of server metrics.
type MetricsSnapshot struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Requests         int64   `json:"requests"`
	ServerErrors     int64   `json:"server_errors"`
	ClientErrors     int64   `json:"client_errors"`
	Logins           int64   `json:"logins"`
	FailedLogins     int64   `json:"failed_logins"`
	AttendanceMarks  int64   `json:"attendance_marks"`
	ImportedRows     int64   `json:"imported_rows"`
	FailedImportRows int64   `json:"failed_import_rows"`
	Exports          int64   `json:"exports"`
	Uploads          int64   `json:"uploads"`
}

// NewMetrics creates a new Metrics instance with the current time as start.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordRequest increments the total request counter.
func (m *Metrics) RecordRequest() {
	m.requests.Add(1)
}

// RecordError increments the server error (5xx) counter.
func (m *Metrics) RecordError() {
	m.serverErrors.Add(1)
}

// RecordClientError increments the client error (4xx) counter.
func (m *Metrics) RecordClientError() {
	m.clientErrors.Add(1)
}

// RecordLogin counts a login attempt by outcome.
func (m *Metrics) RecordLogin(ok bool) {
	if ok {
		m.logins.Add(1)
	} else {
		m.failedLogins.Add(1)
	}
}

// RecordAttendance adds n attendance marks.
func (m *Metrics) RecordAttendance(n int64) {
	m.attendanceSets.Add(n)
}

// RecordImport adds the row outcomes of one import.
func (m *Metrics) RecordImport(imported, failed int64) {
	m.importedRows.Add(imported)
	m.failedRows.Add(failed)
}

// RecordExport increments the workbook download counter.
func (m *Metrics) RecordExport() {
	m.exports.Add(1)
}

// RecordUpload increments the photo upload counter.
func (m *Metrics) RecordUpload() {
	m.uploads.Add(1)
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds:    time.Since(m.startTime).Seconds(),
		Requests:         m.requests.Load(),
		ServerErrors:     m.serverErrors.Load(),
		ClientErrors:     m.clientErrors.Load(),
		Logins:           m.logins.Load(),
		FailedLogins:     m.failedLogins.Load(),
		AttendanceMarks:  m.attendanceSets.Load(),
		ImportedRows:     m.importedRows.Load(),
		FailedImportRows: m.failedRows.Load(),
		Exports:          m.exports.Load(),
		Uploads:          m.uploads.Load(),
	}
}
