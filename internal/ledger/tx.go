package ledger

import (
	"fmt"
	"time"
)

// Op names a ledger transaction.
type Op string

const (
	OpRegister  Op = "register"
	OpPublish   Op = "publish"
	OpUpdate    Op = "update"
	OpVote      Op = "vote"
	OpDesignate Op = "designate"
	OpVerify    Op = "verify"
	OpPurge     Op = "purge"

	// OpGenesis is journaled once at seq 0 and fixes the owner and threshold.
	// It is never submitted.
	OpGenesis Op = "genesis"
)

// Tx is one submitted transaction. Seq and Timestamp are assigned by the
// ledger at submission and journaled with the tx, so replay is deterministic.
type Tx struct {
	ID         string    `json:"id" bson:"id"`
	Seq        uint64    `json:"seq" bson:"seq"`
	Op         Op        `json:"op" bson:"op"`
	Caller     Address   `json:"caller" bson:"caller"`
	Username   string    `json:"username,omitempty" bson:"username,omitempty"`
	Title      string    `json:"title,omitempty" bson:"title,omitempty"`
	ContentID  string    `json:"contentId,omitempty" bson:"contentId,omitempty"`
	ContentIDs []string  `json:"contentIds,omitempty" bson:"contentIds,omitempty"`
	Threshold  int       `json:"threshold,omitempty" bson:"threshold,omitempty"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// Receipt describes a committed transaction.
type Receipt struct {
	TxID       string    `json:"txId"`
	Seq        uint64    `json:"seq"`
	Op         Op        `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
	Designated []Address `json:"designated,omitempty"`
	Purged     []string  `json:"purged,omitempty"`
}

// plan validates tx against the current state without touching it.
func (s *State) plan(tx Tx) (mutation, error) {
	if tx.Caller == "" {
		return nil, ErrInvalidInput
	}
	switch tx.Op {
	case OpRegister:
		return s.planRegister(tx)
	case OpPublish:
		return s.planPublish(tx)
	case OpUpdate:
		return s.planUpdate(tx)
	case OpVote:
		return s.planVote(tx)
	case OpDesignate:
		return s.planDesignate(tx)
	case OpVerify:
		return s.planVerify(tx)
	case OpPurge:
		return s.planPurge(tx)
	}
	return nil, fmt.Errorf("unknown op %q: %w", tx.Op, ErrInvalidInput)
}
