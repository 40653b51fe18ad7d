package ledger

func (s *State) isOwner(a Address) bool {
	return a != "" && a == s.consortium.GenesisOwner
}

func (s *State) isMember(a Address) bool {
	_, ok := s.memberSet[a]
	return ok
}

// canDesignate is the single privilege check for re-running designation.
func (s *State) canDesignate(a Address) bool {
	return s.isOwner(a) || s.isMember(a)
}

// planDesignate promotes every voter of a document that reached the
// threshold. Documents are scanned in publication order and voters in vote
// order, so the resulting member order is deterministic. Membership only grows.
func (s *State) planDesignate(tx Tx) (mutation, error) {
	if !s.canDesignate(tx.Caller) {
		return nil, ErrForbidden
	}
	var added []Address
	seen := make(map[Address]struct{})
	for _, d := range s.liveDocuments() {
		if d.VoteCount < s.consortium.Threshold {
			continue
		}
		for _, v := range d.Voters {
			if s.isMember(v) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			added = append(added, v)
		}
	}
	return func(r *Receipt) {
		for _, a := range added {
			s.memberSet[a] = struct{}{}
			s.consortium.Members = append(s.consortium.Members, a)
			s.account(a).IsConsortiumMember = true
		}
		r.Designated = append([]Address(nil), added...)
	}, nil
}

func (s *State) consortiumView() Consortium {
	c := s.consortium
	c.Members = append([]Address(nil), s.consortium.Members...)
	return c
}
