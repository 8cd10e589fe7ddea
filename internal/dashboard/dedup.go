package dashboard

import "sync"

// dedupWindow is how many recently seen check-in resource ids are
// remembered. A full event and its poke carry the same resource id, so one
// logical check-in counts once regardless of delivery path.
const dedupWindow = 512

// Dedup is a bounded LRU set of resource ids.
type Dedup struct {
	mu    sync.Mutex
	limit int
	order []string
	seen  map[string]struct{}
}

func NewDedup(limit int) *Dedup {
	if limit < 1 {
		limit = dedupWindow
	}
	return &Dedup{limit: limit, seen: make(map[string]struct{}, limit)}
}

// Observe records the id and reports whether it was new. Empty ids are
// never deduplicated.
func (d *Dedup) Observe(id string) bool {
	if id == "" {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}

	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.limit {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	return true
}
