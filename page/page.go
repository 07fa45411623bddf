// Package page computes bounded display windows over the ledger.
package page

import (
	"sync"

	"github.com/xraph/vial/shot"
)

// DefaultSize is the page size used when none (or a non-positive one) is given.
const DefaultSize = 10

// View is one page of records.
type View struct {
	Items      []*shot.Shot `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
	Total      int          `json:"total"`
}

// HasNext reports whether a later page exists.
func (v View) HasNext() bool { return v.Page < v.TotalPages }

// HasPrev reports whether an earlier page exists.
func (v View) HasPrev() bool { return v.Page > 1 }

// TotalPages returns ceil(n/size), never less than 1.
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultSize
	}
	total := (n + size - 1) / size
	return max(total, 1)
}

// Clamp bounds current into [1, total].
func Clamp(current, total int) int {
	return min(max(current, 1), max(total, 1))
}

// Window returns the records of page current (1-based), clamped to the
// available pages. The returned slice aliases records.
func Window(records []*shot.Shot, size, current int) View {
	if size <= 0 {
		size = DefaultSize
	}
	total := TotalPages(len(records), size)
	current = Clamp(current, total)

	start := (current - 1) * size
	end := min(start+size, len(records))
	start = min(start, end)

	return View{
		Items:      records[start:end],
		Page:       current,
		PageSize:   size,
		TotalPages: total,
		Total:      len(records),
	}
}

// Pager tracks the current page over a changing record set.
type Pager struct {
	mu      sync.Mutex
	size    int
	current int
	records []*shot.Shot
	view    View
}

// NewPager creates a pager positioned on page 1.
func NewPager(size int) *Pager {
	if size <= 0 {
		size = DefaultSize
	}
	p := &Pager{size: size, current: 1}
	p.view = Window(nil, size, 1)
	return p
}

// Refresh recomputes the window after a ledger change, keeping the current
// page when it still exists.
func (p *Pager) Refresh(records []*shot.Shot) View {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.records = records
	return p.recompute(p.current)
}

// GoTo moves to page n, clamped into the available range.
func (p *Pager) GoTo(n int) View {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.recompute(n)
}

// Next advances one page. On the last page it is a no-op.
func (p *Pager) Next() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.view.HasNext() {
		return p.view
	}
	return p.recompute(p.current + 1)
}

// Prev goes back one page. On the first page it is a no-op.
func (p *Pager) Prev() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.view.HasPrev() {
		return p.view
	}
	return p.recompute(p.current - 1)
}

// View returns the current window.
func (p *Pager) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.view
}

// Size returns the page size.
func (p *Pager) Size() int { return p.size }

func (p *Pager) recompute(n int) View {
	p.view = Window(p.records, p.size, n)
	p.current = p.view.Page
	return p.view
}
