package ledger

import "time"

// Address identifies a participant. It is the stable key of the account arena.
type Address string

// Account is a participant record. Accounts are never deleted.
type Account struct {
	Address            Address `json:"address" bson:"address"`
	Username           string  `json:"username" bson:"username"`
	Registered         bool    `json:"registered" bson:"registered"`
	PerformanceScore   uint64  `json:"performanceScore" bson:"performanceScore"`
	IsConsortiumMember bool    `json:"isConsortiumMember" bson:"isConsortiumMember"`
}

// Version is one revision of a document. VersionNumber of the k-th version is k.
type Version struct {
	ContentID     string    `json:"contentId" bson:"contentId"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	VersionNumber int       `json:"versionNumber" bson:"versionNumber"`
}

// Document is a versioned article keyed by its title.
type Document struct {
	Title      string    `json:"title" bson:"title"`
	Author     Address   `json:"author" bson:"author"`
	VoteCount  int       `json:"voteCount" bson:"voteCount"`
	Voters     []Address `json:"voters" bson:"voters"`
	IsVerified bool      `json:"isVerified" bson:"isVerified"`
	Verifiers  []Address `json:"verifiers" bson:"verifiers"`
	Versions   []Version `json:"versions" bson:"versions"`

	voterSet  map[Address]struct{}
	verifySet map[Address]struct{}
}

func (d *Document) hasVoted(a Address) bool {
	_, ok := d.voterSet[a]
	return ok
}

func (d *Document) hasVerified(a Address) bool {
	_, ok := d.verifySet[a]
	return ok
}

func (d *Document) latest() Version {
	return d.Versions[len(d.Versions)-1]
}

// clone returns a deep copy safe to hand out of the lock.
func (d *Document) clone() Document {
	out := *d
	out.Voters = append([]Address(nil), d.Voters...)
	out.Verifiers = append([]Address(nil), d.Verifiers...)
	out.Versions = append([]Version(nil), d.Versions...)
	out.voterSet = nil
	out.verifySet = nil
	return out
}

// ArticleView is the result of a query: one version of a document plus its vetting state.
type ArticleView struct {
	Author        Address   `json:"author"`
	Title         string    `json:"title"`
	ContentID     string    `json:"contentId"`
	Timestamp     time.Time `json:"timestamp"`
	VoteCount     int       `json:"voteCount"`
	IsVerified    bool      `json:"isVerified"`
	VersionNumber int       `json:"versionNumber"`
}

// Consortium is the verifier quorum.
type Consortium struct {
	Members      []Address `json:"members"`
	Threshold    int       `json:"threshold"`
	GenesisOwner Address   `json:"genesisOwner"`
}
