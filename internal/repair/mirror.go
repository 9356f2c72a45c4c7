package repair

// Mirrors cycles through a record's download locations, primary URL first.
// Each retry attempt pulls the next location, so a dead primary rotates to
// its mirrors without spending extra HTTP attempts.
type Mirrors struct {
	urls []string
	next int
}

// NewMirrors builds the rotation from the primary URL and its alternates.
// Empty alternates are dropped.
func NewMirrors(primary string, alternates []string) *Mirrors {
	urls := make([]string, 0, 1+len(alternates))
	urls = append(urls, primary)
	for _, u := range alternates {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return &Mirrors{urls: urls}
}

// Next returns the URL for the next attempt and advances the rotation.
func (m *Mirrors) Next() string {
	u := m.urls[m.next]
	m.next = (m.next + 1) % len(m.urls)
	return u
}

// Count returns the number of distinct locations.
func (m *Mirrors) Count() int {
	return len(m.urls)
}
