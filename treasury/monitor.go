package treasury

import (
	"context"
	"sync"
	"time"

	"github.com/dan13ram/squads-treasury/models"

	log "github.com/sirupsen/logrus"
)

const (
	ProposalMonitorName = "proposal monitor"

	DefaultMonitorPageSize = 10
	monitorTimeout         = 30 * time.Second
)

// ProposalMonitorRunner refreshes the multisig and its most recent
// proposals and logs every status change it observes.
type ProposalMonitorRunner struct {
	queries  *Queries
	pageSize uint32

	mu               sync.Mutex
	statuses         map[uint32]models.ProposalStatus
	transactionIndex uint32
	pending          int64
}

func NewProposalMonitorRunner(queries *Queries, pageSize int64) *ProposalMonitorRunner {
	if pageSize <= 0 {
		pageSize = DefaultMonitorPageSize
	}
	return &ProposalMonitorRunner{
		queries:  queries,
		pageSize: uint32(pageSize),
		statuses: make(map[uint32]models.ProposalStatus),
	}
}

// isPending reports whether a proposal still awaits votes or execution.
// known is false for a status outside the enumeration.
func isPending(status models.ProposalStatus) (pending bool, known bool) {
	switch status {
	case models.ProposalStatusDraft,
		models.ProposalStatusActive,
		models.ProposalStatusExecuteReady:
		return true, true
	case models.ProposalStatusExecuted,
		models.ProposalStatusRejected,
		models.ProposalStatusCancelled:
		return false, true
	}
	return false, false
}

func (x *ProposalMonitorRunner) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), monitorTimeout)
	defer cancel()

	x.queries.Invalidate(KeyMultisig, KeyTransactions)

	multisig, err := x.queries.Multisig(ctx)
	if err != nil {
		log.WithError(err).Error("[MONITOR] Error fetching multisig")
		return
	}

	start := multisig.TransactionIndex
	end := uint32(1)
	if start > x.pageSize {
		end = start - x.pageSize + 1
	}

	proposals, err := x.queries.Proposals(ctx, start, end)
	if err != nil {
		log.WithError(err).Error("[MONITOR] Error fetching proposals")
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	var pending int64
	for _, proposal := range proposals {
		logger := log.WithField("index", proposal.Index).WithField("status", proposal.Status.String())
		isPendingProposal, known := isPending(proposal.Status)
		if !known {
			logger.Warn("[MONITOR] Skipping proposal with unknown status")
			continue
		}

		previous, seen := x.statuses[proposal.Index]
		switch {
		case !seen:
			logger.Debug("[MONITOR] Found proposal")
		case previous != proposal.Status:
			logger.WithField("previous", previous.String()).Info("[MONITOR] Proposal status changed")
		}
		x.statuses[proposal.Index] = proposal.Status
		if isPendingProposal {
			pending++
		}
	}

	x.transactionIndex = multisig.TransactionIndex
	x.pending = pending

	log.WithField("transaction_index", x.transactionIndex).
		WithField("pending", pending).
		Debug("[MONITOR] Refreshed proposals")
}

func (x *ProposalMonitorRunner) Status() models.RunnerStatus {
	x.mu.Lock()
	defer x.mu.Unlock()

	return models.RunnerStatus{
		TransactionIndex: x.transactionIndex,
		PendingProposals: x.pending,
	}
}
