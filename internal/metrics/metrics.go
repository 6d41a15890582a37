package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultAuthorized = "authorized"
	ResultRejected   = "rejected"
	ResultOK         = "ok"
	ResultError      = "error"
)

var (
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_scans_total",
		Help: "Credential scans by outcome",
	}, []string{"result"})

	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkin_registrations_total",
		Help: "Attendees registered",
	})

	MirrorWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_mirror_writes_total",
		Help: "Writes to the external audit table by operation and result",
	}, []string{"op", "result"})

	StatusColumnsAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkin_status_columns_allocated_total",
		Help: "Status N columns appended to audit tables",
	})

	MirrorPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkin_mirror_pending",
		Help: "Registry rows waiting to reach the audit table, as of the last reconcile",
	})
)

func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
