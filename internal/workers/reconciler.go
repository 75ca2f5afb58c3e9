// Package workers holds background jobs started by the API process.
package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

type ProposalReconciler interface {
	ReconcileHiredProposals(ctx context.Context) (int64, error)
}

// Reconciler marks the hired freelancer's proposal accepted on gigs that left
// the open state while that proposal stayed pending.
type Reconciler struct {
	Store    ProposalReconciler
	Interval time.Duration
	Logger   *logrus.Logger
	// OnRepair runs after a pass that changed rows.
	OnRepair func()
}

func NewReconciler(store ProposalReconciler, interval time.Duration, logger *logrus.Logger) *Reconciler {
	return &Reconciler{Store: store, Interval: interval, Logger: logger}
}

func (r *Reconciler) Start(ctx context.Context) {
	r.Logger.WithField("interval", r.Interval.String()).Info("proposal reconciler started")

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("proposal reconciler shutting down")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass and returns the number of repaired rows.
func (r *Reconciler) RunOnce(ctx context.Context) int64 {
	n, err := r.Store.ReconcileHiredProposals(ctx)
	if err != nil {
		if ctx.Err() == nil {
			utils.LogError(ctx, "proposal_reconcile_failed", err, nil)
		}
		return 0
	}
	if n > 0 {
		utils.LogEvent(ctx, "proposals_reconciled", map[string]interface{}{"repaired": n})
		if r.OnRepair != nil {
			r.OnRepair()
		}
	}
	return n
}
