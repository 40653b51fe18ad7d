package ledger

// LatestVersion is the conventional version index meaning "newest". Any index
// at or above the version count resolves to the newest version as well.
const LatestVersion = 100

func (s *State) planPublish(tx Tx) (mutation, error) {
	if tx.Title == "" || tx.ContentID == "" {
		return nil, ErrInvalidInput
	}
	if _, ok := s.documents[tx.Title]; ok {
		return nil, ErrDocumentExists
	}
	return func(*Receipt) {
		s.documents[tx.Title] = &Document{
			Title:     tx.Title,
			Author:    tx.Caller,
			Versions:  []Version{{ContentID: tx.ContentID, Timestamp: tx.Timestamp, VersionNumber: 1}},
			voterSet:  make(map[Address]struct{}),
			verifySet: make(map[Address]struct{}),
		}
		s.order = append(s.order, tx.Title)
		s.credit(tx.Caller, PublishReward)
	}, nil
}

// planUpdate appends a version. Any caller may revise any document and the
// reviser, not the author, is credited.
func (s *State) planUpdate(tx Tx) (mutation, error) {
	d, ok := s.document(tx.Title)
	if !ok {
		return nil, ErrArticleNotFound
	}
	if tx.ContentID == "" {
		return nil, ErrInvalidInput
	}
	return func(*Receipt) {
		d.Versions = append(d.Versions, Version{
			ContentID:     tx.ContentID,
			Timestamp:     tx.Timestamp,
			VersionNumber: d.latest().VersionNumber + 1,
		})
		s.credit(tx.Caller, UpdateReward)
	}, nil
}

func (s *State) query(title string, versionIndex int) (ArticleView, error) {
	if title == "" {
		return ArticleView{}, ErrInvalidInput
	}
	d, ok := s.document(title)
	if !ok || versionIndex <= 0 {
		return ArticleView{}, ErrArticleNotFound
	}
	v := d.latest()
	if versionIndex < len(d.Versions) {
		v = d.Versions[versionIndex-1]
	}
	return ArticleView{
		Author:        d.Author,
		Title:         d.Title,
		ContentID:     v.ContentID,
		Timestamp:     v.Timestamp,
		VoteCount:     d.VoteCount,
		IsVerified:    d.IsVerified,
		VersionNumber: v.VersionNumber,
	}, nil
}

// allContentIDs returns the first version's content id of every live
// document, in publication order.
func (s *State) allContentIDs() []string {
	out := make([]string, 0, len(s.order))
	for _, d := range s.liveDocuments() {
		out = append(out, d.Versions[0].ContentID)
	}
	return out
}

// titlesByContentID returns live titles that reference cid in any version.
func (s *State) titlesByContentID(cid string) []string {
	var out []string
	for _, d := range s.liveDocuments() {
		for _, v := range d.Versions {
			if v.ContentID == cid {
				out = append(out, d.Title)
				break
			}
		}
	}
	return out
}
