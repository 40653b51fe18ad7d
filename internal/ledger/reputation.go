package ledger

// Score rewards. There is no decrement; scores only grow.
const (
	PublishReward uint64 = 10
	UpdateReward  uint64 = 7
	VoteReward    uint64 = 5
)

// credit adds amount to a's performance score. It is only called from
// mutations, never directly by callers.
func (s *State) credit(a Address, amount uint64) {
	s.account(a).PerformanceScore += amount
}
