package ledger

// State holds the two arenas (accounts, documents) and the consortium.
// Cross references are addresses and titles, never pointers between arenas,
// so removing a document cannot leave a dangling reference behind.
//
// State is not safe for concurrent use; Ledger serializes access.
type State struct {
	accounts   map[Address]*Account
	registered []Address

	documents map[string]*Document
	order     []string // live titles in publication order

	consortium Consortium
	memberSet  map[Address]struct{}
}

// mutation applies a planned transaction. It runs only after the plan was
// accepted and journaled, and it cannot fail.
type mutation func(r *Receipt)

func newState(threshold int, owner Address) *State {
	return &State{
		accounts:   make(map[Address]*Account),
		documents:  make(map[string]*Document),
		consortium: Consortium{Threshold: threshold, GenesisOwner: owner},
		memberSet:  make(map[Address]struct{}),
	}
}

// account returns the record for a, creating an unregistered one on first
// touch. Scores credited before registration land here.
func (s *State) account(a Address) *Account {
	acc, ok := s.accounts[a]
	if !ok {
		acc = &Account{Address: a}
		s.accounts[a] = acc
	}
	return acc
}

func (s *State) document(title string) (*Document, bool) {
	d, ok := s.documents[title]
	return d, ok
}

// liveDocuments returns live documents in publication order.
func (s *State) liveDocuments() []*Document {
	out := make([]*Document, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, s.documents[t])
	}
	return out
}
