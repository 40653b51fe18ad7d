package ledger

func (s *State) planRegister(tx Tx) (mutation, error) {
	if acc, ok := s.accounts[tx.Caller]; ok && acc.Registered {
		return nil, ErrAlreadyRegistered
	}
	return func(*Receipt) {
		acc := s.account(tx.Caller)
		acc.Username = tx.Username
		acc.Registered = true
		// registration starts the score from zero; consortium membership, if
		// earned before registering, is kept so members and flags stay in sync
		acc.PerformanceScore = 0
		s.registered = append(s.registered, tx.Caller)
	}, nil
}

func (s *State) lookup(a Address) (Account, error) {
	acc, ok := s.accounts[a]
	if !ok || !acc.Registered {
		return Account{}, ErrNotRegistered
	}
	return *acc, nil
}
