// Package audit drives the proof-of-existence check: it lists the content
// ids the ledger references, asks the content store which are gone, and
// purges the documents that point at them.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wikichain/wikichain/pkg/logger"
	"github.com/wikichain/wikichain/pkg/metrics"
)

// LedgerClient is the slice of the ledger the auditor needs.
type LedgerClient interface {
	ListAllContentIDs(ctx context.Context) ([]string, error)
	// Purge removes documents referencing any of contentIDs and returns their titles.
	Purge(ctx context.Context, contentIDs []string) ([]string, error)
}

// ContentChecker reports which content ids are not retrievable.
type ContentChecker interface {
	CheckAvailability(ctx context.Context, cids []string) ([]string, error)
}

// ReportStore persists audit reports. It may be nil.
type ReportStore interface {
	Save(ctx context.Context, r *Report) error
}

// Report summarizes one audit run.
type Report struct {
	RunID      string    `bson:"runId" json:"runId"`
	StartedAt  time.Time `bson:"startedAt" json:"startedAt"`
	FinishedAt time.Time `bson:"finishedAt" json:"finishedAt"`
	Checked    int       `bson:"checked" json:"checked"`
	Missing    []string  `bson:"missing" json:"missing"`
	Purged     []string  `bson:"purged" json:"purged"`
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
}

type Auditor struct {
	ledger  LedgerClient
	content ContentChecker
	reports ReportStore
	now     func() time.Time
	log     *logger.Logger
}

func NewAuditor(l LedgerClient, c ContentChecker, reports ReportStore) *Auditor {
	return &Auditor{ledger: l, content: c, reports: reports, now: time.Now, log: logger.Named("audit")}
}

// Run performs one audit. Purge is only submitted when something is missing.
// A failed run still yields a report carrying the error.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	r := &Report{RunID: uuid.NewString(), StartedAt: a.now().UTC(), Missing: []string{}, Purged: []string{}}
	err := a.run(ctx, r)
	r.FinishedAt = a.now().UTC()
	if err != nil {
		r.Error = err.Error()
		metrics.AuditRuns.WithLabelValues("error").Inc()
		a.log.Errorf("run %s failed: %v", r.RunID, err)
	} else {
		metrics.AuditRuns.WithLabelValues("ok").Inc()
		metrics.AuditMissing.Add(float64(len(r.Missing)))
		metrics.AuditPurged.Add(float64(len(r.Purged)))
		a.log.Infof("run %s: checked=%d missing=%d purged=%d", r.RunID, r.Checked, len(r.Missing), len(r.Purged))
	}
	if a.reports != nil {
		if serr := a.reports.Save(ctx, r); serr != nil {
			a.log.Warnf("save report %s: %v", r.RunID, serr)
		}
	}
	return r, err
}

func (a *Auditor) run(ctx context.Context, r *Report) error {
	cids, err := a.ledger.ListAllContentIDs(ctx)
	if err != nil {
		return fmt.Errorf("list content ids: %w", err)
	}
	r.Checked = len(cids)
	if len(cids) == 0 {
		return nil
	}
	missing, err := a.content.CheckAvailability(ctx, cids)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	r.Missing = append(r.Missing, missing...)
	if len(missing) == 0 {
		return nil
	}
	purged, err := a.ledger.Purge(ctx, missing)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	r.Purged = append(r.Purged, purged...)
	return nil
}

// DefaultInterval is used by Loop when given a non-positive interval.
const DefaultInterval = 5 * time.Minute

// Loop runs an audit every interval until ctx is done. Failed runs are
// logged and retried on the next tick.
func (a *Auditor) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		a.log.Warnf("invalid audit interval %s; using %s", interval, DefaultInterval)
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = a.Run(ctx)
		}
	}
}
