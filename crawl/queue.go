// Package crawl — ordered link set.
package crawl

// LinkSet collects URLs in first-seen order, ignoring repeats.
type LinkSet struct {
	items []string
	seen  map[string]bool
}

// NewLinkSet creates an empty LinkSet.
func NewLinkSet() *LinkSet {
	return &LinkSet{seen: make(map[string]bool)}
}

// Add records url and reports whether it was new.
func (s *LinkSet) Add(url string) bool {
	if s.seen[url] {
		return false
	}
	s.seen[url] = true
	s.items = append(s.items, url)
	return true
}

// Len returns the number of distinct URLs.
func (s *LinkSet) Len() int {
	return len(s.items)
}

// All returns the URLs in first-seen order.
func (s *LinkSet) All() []string {
	return s.items
}
