package export

import (
	"fmt"
	"sort"

	"github.com/gaurav-prasanna/postpress/core"
)

// SelectPosts returns the posts taking part in the job, in listing order.
// Selected ids that the listing does not contain are reported as warnings.
// Duplicate listing entries are collapsed to the first.
func SelectPosts(posts []core.PostRef, cfg core.ExportConfiguration) ([]core.PostRef, []string) {
	seen := make(map[string]bool, len(posts))
	var selected []core.PostRef

	if cfg.Mode != core.ModeSpecificPosts {
		for _, p := range posts {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			selected = append(selected, p)
		}
		return selected, nil
	}

	want := make(map[string]bool, len(cfg.SelectedPostIDs))
	for _, id := range cfg.SelectedPostIDs {
		want[id] = true
	}
	for _, p := range posts {
		if !want[p.ID] || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		selected = append(selected, p)
	}

	var warnings []string
	reported := map[string]bool{}
	for _, id := range cfg.SelectedPostIDs {
		if !seen[id] && !reported[id] {
			reported[id] = true
			warnings = append(warnings, fmt.Sprintf("selected post %q is not in the publication's post list", id))
		}
	}
	return selected, warnings
}

// ResolveOrder returns posts in the order they will be packaged.
//
// Date order sorts by parsed publication time (unparseable timestamps count
// as the Unix epoch) and breaks ties by title, ascending, in both directions.
// Manual order takes ManualOrder ids first, skipping unknown and repeated
// ids, then appends the remaining posts in their incoming order.
func ResolveOrder(posts []core.PostRef, cfg core.ExportConfiguration) []core.PostRef {
	out := append([]core.PostRef(nil), posts...)

	if cfg.OrderMode == core.OrderManual {
		byID := make(map[string]int, len(out))
		for i, p := range out {
			byID[p.ID] = i
		}
		used := make([]bool, len(out))
		ordered := make([]core.PostRef, 0, len(out))
		for _, id := range cfg.ManualOrder {
			i, ok := byID[id]
			if !ok || used[i] {
				continue
			}
			used[i] = true
			ordered = append(ordered, out[i])
		}
		for i, p := range out {
			if !used[i] {
				ordered = append(ordered, p)
			}
		}
		return ordered
	}

	keys := make(map[string]int64, len(out))
	for _, p := range out {
		keys[p.ID] = core.ParsePublishedAt(p.PublishedAt).SortKey()
	}
	desc := cfg.SortDirection != core.SortAscending
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := keys[out[i].ID], keys[out[j].ID]
		if ki != kj {
			if desc {
				return ki > kj
			}
			return ki < kj
		}
		return out[i].Title < out[j].Title
	})
	return out
}
