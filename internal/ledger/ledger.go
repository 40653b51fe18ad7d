package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wikichain/wikichain/pkg/logger"
	"github.com/wikichain/wikichain/pkg/metrics"
)

// Journal is the write-ahead commit log. A transaction is applied to memory
// only once it is known to be stored, and Open replays the journal in Seq order.
type Journal interface {
	Append(ctx context.Context, tx Tx) error
	// Lookup reports the transaction stored at seq, if any.
	Lookup(ctx context.Context, seq uint64) (Tx, bool, error)
	Replay(ctx context.Context, fn func(Tx) error) error
}

var (
	// ErrCorruptJournal is returned by Open when a journaled transaction
	// cannot be replayed against the state rebuilt so far.
	ErrCorruptJournal = errors.New("corrupt ledger journal")
	// ErrGenesisMismatch is returned by Open when Options disagree with the
	// genesis record already in the journal.
	ErrGenesisMismatch = errors.New("options do not match journaled genesis")
	// ErrHalted is returned by Submit after the outcome of a journal append
	// could not be determined. Reopen the ledger to replay the journal.
	ErrHalted = errors.New("ledger halted")
)

// journalTimeout bounds journal I/O, which runs detached from the caller's
// context so a disconnecting client cannot cut a write short.
const journalTimeout = 10 * time.Second

// Options configures a Ledger.
type Options struct {
	Threshold    int
	GenesisOwner Address
	// Clock stamps transactions; defaults to time.Now.
	Clock func() time.Time
}

// Ledger is the single, totally ordered state machine. Mutations are
// serialized behind one writer lock; reads see only committed state.
type Ledger struct {
	mu      sync.RWMutex
	state   *State
	journal Journal
	now     func() time.Time
	seq     uint64
	halted  error
	log     *logger.Logger
}

// Open builds a ledger and replays every journaled transaction. An empty
// journal gets a genesis record holding opts.GenesisOwner and opts.Threshold;
// a non-empty one must start with a genesis record equal to them.
func Open(ctx context.Context, opts Options, j Journal) (*Ledger, error) {
	if opts.GenesisOwner == "" {
		return nil, fmt.Errorf("genesis owner required: %w", ErrInvalidInput)
	}
	if opts.Threshold < 1 {
		return nil, fmt.Errorf("threshold must be >= 1, got %d: %w", opts.Threshold, ErrInvalidInput)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	l := &Ledger{
		state:   newState(opts.Threshold, opts.GenesisOwner),
		journal: j,
		now:     opts.Clock,
		log:     logger.Named("ledger"),
	}
	haveGenesis := false
	err := j.Replay(ctx, func(tx Tx) error {
		if !haveGenesis {
			if tx.Op != OpGenesis || tx.Seq != 0 {
				return fmt.Errorf("%w: journal does not start with a genesis record (got %s at seq %d)", ErrCorruptJournal, tx.Op, tx.Seq)
			}
			if tx.Caller != opts.GenesisOwner || tx.Threshold != opts.Threshold {
				return fmt.Errorf("%w: journal has owner=%s threshold=%d, options have owner=%s threshold=%d",
					ErrGenesisMismatch, tx.Caller, tx.Threshold, opts.GenesisOwner, opts.Threshold)
			}
			haveGenesis = true
			return nil
		}
		if tx.Seq != l.seq+1 {
			return fmt.Errorf("%w: expected seq %d, got %d", ErrCorruptJournal, l.seq+1, tx.Seq)
		}
		mut, err := l.state.plan(tx)
		if err != nil {
			return fmt.Errorf("%w: tx %d (%s): %v", ErrCorruptJournal, tx.Seq, tx.Op, err)
		}
		mut(&Receipt{})
		l.seq = tx.Seq
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replay journal: %w", err)
	}
	if !haveGenesis {
		g := Tx{ID: uuid.NewString(), Seq: 0, Op: OpGenesis, Caller: opts.GenesisOwner, Threshold: opts.Threshold, Timestamp: l.now().UTC()}
		if err := l.append(ctx, g); err != nil {
			return nil, fmt.Errorf("journal genesis: %w", err)
		}
		l.log.Infof("new ledger: owner=%s threshold=%d", opts.GenesisOwner, opts.Threshold)
	}
	l.observe()
	l.log.Infof("replayed %d transactions: documents=%d members=%d", l.seq, len(l.state.order), len(l.state.consortium.Members))
	return l, nil
}

// append stores tx and returns nil only when it is known to be journaled.
// An Append error is settled with Lookup, because a write can land and still
// report failure. If neither call gives a definite answer the ledger halts.
func (l *Ledger) append(ctx context.Context, tx Tx) error {
	detached := context.WithoutCancel(ctx)
	actx, cancel := context.WithTimeout(detached, journalTimeout)
	aerr := l.journal.Append(actx, tx)
	cancel()
	if aerr == nil {
		return nil
	}
	lctx, cancel := context.WithTimeout(detached, journalTimeout)
	defer cancel()
	stored, ok, lerr := l.journal.Lookup(lctx, tx.Seq)
	switch {
	case lerr != nil:
		l.halted = fmt.Errorf("%w: seq %d outcome unknown: append: %v; lookup: %v", ErrHalted, tx.Seq, aerr, lerr)
		return l.halted
	case !ok:
		return aerr
	case stored.ID == tx.ID:
		l.log.Warnf("journal append for seq %d reported %v but the entry is stored", tx.Seq, aerr)
		return nil
	default:
		l.halted = fmt.Errorf("%w: seq %d holds foreign tx %s", ErrHalted, tx.Seq, stored.ID)
		return l.halted
	}
}

// Halted returns the reason Submit refuses transactions, or nil.
func (l *Ledger) Halted() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.halted
}

// Submit applies tx atomically: plan against the current state, journal,
// then mutate. A rejected or unjournaled tx leaves state unchanged.
func (l *Ledger) Submit(ctx context.Context, tx Tx) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.halted != nil {
		return Receipt{}, fmt.Errorf("%s: %w", tx.Op, l.halted)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Seq = l.seq + 1
	tx.Timestamp = l.now().UTC()

	mut, err := l.state.plan(tx)
	if err != nil {
		metrics.LedgerTransactions.WithLabelValues(string(tx.Op), "rejected").Inc()
		l.log.Debugf("rejected %s by %s: kind=%s err=%v", tx.Op, tx.Caller, KindOf(err), err)
		return Receipt{}, fmt.Errorf("%s: %w", tx.Op, err)
	}
	if err := l.append(ctx, tx); err != nil {
		metrics.LedgerTransactions.WithLabelValues(string(tx.Op), "journal_error").Inc()
		l.log.Errorf("journal append failed for %s seq=%d: %v", tx.Op, tx.Seq, err)
		return Receipt{}, fmt.Errorf("%s: journal append: %w", tx.Op, err)
	}
	l.seq = tx.Seq
	r := Receipt{TxID: tx.ID, Seq: tx.Seq, Op: tx.Op, Timestamp: tx.Timestamp}
	mut(&r)

	metrics.LedgerTransactions.WithLabelValues(string(tx.Op), "committed").Inc()
	l.observe()
	l.log.Debugf("committed %s seq=%d by %s", tx.Op, tx.Seq, tx.Caller)
	return r, nil
}

func (l *Ledger) observe() {
	metrics.LedgerDocuments.Set(float64(len(l.state.order)))
	metrics.ConsortiumMembers.Set(float64(len(l.state.consortium.Members)))
}

func (l *Ledger) Register(ctx context.Context, caller Address, username string) (Receipt, error) {
	return l.Submit(ctx, Tx{Op: OpRegister, Caller: caller, Username: username})
}

func (l *Ledger) Publish(ctx context.Context, caller Address, title, contentID string) (Receipt, error) {
	return l.Submit(ctx, Tx{Op: OpPublish, Caller: caller, Title: title, ContentID: contentID})
}

func (l *Ledger) Update(ctx context.Context, caller Address, title, newContentID string) (Receipt, error) {
	return l.Submit(ctx, Tx{Op: OpUpdate, Caller: caller, Title: title, ContentID: newContentID})
}

func (l *Ledger) Vote(ctx context.Context, caller Address, title string) (Receipt, error) {
	return l.Submit(ctx, Tx{Op: OpVote, Caller: caller, Title: title})
}

// Designate runs consortium membership designation (DCMD).
func (l *Ledger) Designate(ctx context.Context, caller Address) (Receipt, error) {
	return l.Submit(ctx, Tx{Op: OpDesignate, Caller: caller})
}

func (l *Ledger) Verify(ctx context.Context, caller Address, title string) (Receipt, error) {
	return l.Submit(ctx, Tx{Op: OpVerify, Caller: caller, Title: title})
}

// Purge removes documents whose content the external audit reported missing.
func (l *Ledger) Purge(ctx context.Context, caller Address, contentIDs []string) (Receipt, error) {
	return l.Submit(ctx, Tx{Op: OpPurge, Caller: caller, ContentIDs: append([]string(nil), contentIDs...)})
}

// Query returns one version of a document. versionIndex is 1-based; any
// index at or above the version count, such as LatestVersion, means newest.
func (l *Ledger) Query(title string, versionIndex int) (ArticleView, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, err := l.state.query(title, versionIndex)
	if err != nil {
		return ArticleView{}, fmt.Errorf("query: %w", err)
	}
	return v, nil
}

// Document returns a copy of the full document record.
func (l *Ledger) Document(title string) (Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.state.document(title)
	if !ok {
		return Document{}, fmt.Errorf("document: %w", ErrArticleNotFound)
	}
	return d.clone(), nil
}

func (l *Ledger) ListAllContentIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.allContentIDs()
}

// ArticlesByContentID returns live titles referencing cid in any version.
func (l *Ledger) ArticlesByContentID(cid string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.titlesByContentID(cid)
}

func (l *Ledger) ArticleCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.state.order)
}

func (l *Ledger) Account(a Address) (Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, err := l.state.lookup(a)
	if err != nil {
		return Account{}, fmt.Errorf("account %s: %w", a, err)
	}
	return acc, nil
}

// RegisteredUsers returns registered addresses in registration order.
func (l *Ledger) RegisteredUsers() []Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Address(nil), l.state.registered...)
}

func (l *Ledger) Consortium() Consortium {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.consortiumView()
}

func (l *Ledger) Owner() Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.consortium.GenesisOwner
}

func (l *Ledger) Threshold() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.consortium.Threshold
}

// Seq returns the sequence number of the last committed transaction.
func (l *Ledger) Seq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}
