package ledger

// planPurge removes every live document that references one of the given
// content ids in any version. The id set comes from an external availability
// audit and is trusted as is; the ledger does no I/O of its own here.
func (s *State) planPurge(tx Tx) (mutation, error) {
	missing := make(map[string]struct{}, len(tx.ContentIDs))
	for _, c := range tx.ContentIDs {
		missing[c] = struct{}{}
	}
	var doomed []string
	for _, d := range s.liveDocuments() {
		for _, v := range d.Versions {
			if _, ok := missing[v.ContentID]; ok {
				doomed = append(doomed, d.Title)
				break
			}
		}
	}
	return func(r *Receipt) {
		if len(doomed) == 0 {
			return
		}
		gone := make(map[string]struct{}, len(doomed))
		for _, t := range doomed {
			gone[t] = struct{}{}
			delete(s.documents, t)
		}
		kept := s.order[:0]
		for _, t := range s.order {
			if _, ok := gone[t]; !ok {
				kept = append(kept, t)
			}
		}
		s.order = kept
		r.Purged = append([]string(nil), doomed...)
	}, nil
}
