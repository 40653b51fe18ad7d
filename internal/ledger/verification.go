package ledger

// planVerify records a member's verification. Once the distinct verifier
// count reaches the threshold the document stays verified. A repeated
// verification by the same member is accepted and changes nothing.
func (s *State) planVerify(tx Tx) (mutation, error) {
	if !s.isMember(tx.Caller) {
		return nil, ErrForbidden
	}
	d, ok := s.document(tx.Title)
	if !ok {
		return nil, ErrArticleNotFound
	}
	if d.hasVerified(tx.Caller) {
		return func(*Receipt) {}, nil
	}
	return func(*Receipt) {
		d.verifySet[tx.Caller] = struct{}{}
		d.Verifiers = append(d.Verifiers, tx.Caller)
		if len(d.Verifiers) >= s.consortium.Threshold {
			d.IsVerified = true
		}
	}, nil
}
