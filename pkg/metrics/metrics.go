package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikichain", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikichain", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// LedgerTransactions counts submitted transactions by op and result
	// (committed, rejected, journal_error).
	LedgerTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikichain", Subsystem: "ledger", Name: "transactions_total", Help: "Submitted ledger transactions by op and result."},
		[]string{"op", "result"},
	)
	LedgerDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "wikichain", Subsystem: "ledger", Name: "documents", Help: "Live documents in the ledger."},
	)
	ConsortiumMembers = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "wikichain", Subsystem: "ledger", Name: "consortium_members", Help: "Current consortium size."},
	)

	AuditRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wikichain", Subsystem: "audit", Name: "runs_total", Help: "Existence audit runs by result."},
		[]string{"result"},
	)
	AuditMissing = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "wikichain", Subsystem: "audit", Name: "missing_content_total", Help: "Content ids reported missing by the content store."},
	)
	AuditPurged = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "wikichain", Subsystem: "audit", Name: "purged_documents_total", Help: "Documents removed by existence audits."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(LedgerTransactions)
	reg.MustRegister(LedgerDocuments)
	reg.MustRegister(ConsortiumMembers)
	reg.MustRegister(AuditRuns)
	reg.MustRegister(AuditMissing)
	reg.MustRegister(AuditPurged)
}
