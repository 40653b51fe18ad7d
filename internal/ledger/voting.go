package ledger

func (s *State) planVote(tx Tx) (mutation, error) {
	d, ok := s.document(tx.Title)
	if !ok {
		return nil, ErrArticleNotFound
	}
	if d.hasVoted(tx.Caller) {
		return nil, ErrAlreadyVoted
	}
	return func(*Receipt) {
		d.voterSet[tx.Caller] = struct{}{}
		d.Voters = append(d.Voters, tx.Caller)
		d.VoteCount++
		s.credit(tx.Caller, VoteReward)
	}, nil
}
