package board

import (
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"noticeboard/internal/domain/notice"
)

// Deps holds the board's injectable collaborators.
// Zero-valued fields fall back to UUIDv7 ids and time.Now.
type Deps struct {
	GenerateID func() string
	Now        func() time.Time
}

// Board is an in-memory ordered collection of notices, newest first.
// It is not safe for concurrent use; the owner serialises calls.
type Board struct {
	notices    []notice.Notice
	generateID func() string
	now        func() time.Time
}

// New creates an empty board.
func New(deps Deps) *Board {
	b := &Board{generateID: deps.GenerateID, now: deps.Now}
	if b.generateID == nil {
		b.generateID = generateID
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// generateID returns a time-ordered UUID, unique even for calls within the same millisecond.
func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Add turns a draft into a notice and prepends it.
// PRE: none
// POST: on ok, Len grows by one and the new notice is first, unpinned, with a fresh ID;
// otherwise the board is unchanged
func (b *Board) Add(d notice.Draft) (notice.Notice, bool) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		slog.Debug("notice_event", "event", "notice_rejected", "reason", err.Error())
		return notice.Notice{}, false
	}

	id := b.generateID()
	if b.indexOf(id) >= 0 {
		slog.Warn("notice_event", "event", "notice_rejected", "reason", "duplicate id", "notice_id", id)
		return notice.Notice{}, false
	}

	now := b.now()
	n := notice.Notice{
		ID:        id,
		Category:  d.Category,
		Title:     d.Title,
		Text:      d.Text,
		Date:      now.Format(notice.DateLayout),
		Pinned:    false,
		CreatedAt: now,
	}
	b.notices = slices.Insert(b.notices, 0, n)

	slog.Info("notice_event", "event", "notice_added", "notice_id", n.ID, "type", n.Category)
	return n, true
}

// Remove deletes the notice with the given id.
// PRE: none
// POST: returns true and Len shrinks by one if id was present; otherwise a no-op
func (b *Board) Remove(id string) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.notices = slices.Delete(b.notices, i, i+1)
	slog.Info("notice_event", "event", "notice_removed", "notice_id", id)
	return true
}

// TogglePin flips the pinned flag on the notice with the given id.
// PRE: none
// POST: returns the updated notice and true if id was present; otherwise a no-op
func (b *Board) TogglePin(id string) (notice.Notice, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return notice.Notice{}, false
	}
	b.notices[i].Pinned = !b.notices[i].Pinned

	event := "notice_pinned"
	if !b.notices[i].Pinned {
		event = "notice_unpinned"
	}
	slog.Info("notice_event", "event", event, "notice_id", id)
	return b.notices[i], true
}

// Project yields the notices matching f, pinned ones first.
// Each partition keeps board order. Every range over the result walks the
// current board state afresh; the board is never mutated.
// INVARIANT: board state is not mutated
func (b *Board) Project(f notice.Filter) iter.Seq[notice.Notice] {
	return func(yield func(notice.Notice) bool) {
		for _, pinned := range [2]bool{true, false} {
			for _, n := range b.notices {
				if n.Pinned != pinned || !f.Matches(n) {
					continue
				}
				if !yield(n) {
					return
				}
			}
		}
	}
}

// Get returns the notice with the given id.
func (b *Board) Get(id string) (notice.Notice, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return notice.Notice{}, false
	}
	return b.notices[i], true
}

// Len returns the number of notices on the board.
func (b *Board) Len() int {
	return len(b.notices)
}

// Counts returns the number of notices per filter, including FilterAll.
func (b *Board) Counts() map[notice.Filter]int {
	counts := make(map[notice.Filter]int, len(notice.Filters))
	for _, f := range notice.Filters {
		counts[f] = 0
	}
	for _, n := range b.notices {
		counts[notice.FilterAll]++
		counts[notice.Filter(n.Category)]++
	}
	return counts
}

// Seed appends existing notices after the current ones, keeping their order.
// Notices without an ID are given one; notices with a duplicate ID or an
// invalid category are skipped.
// PRE: none
// POST: returns the number of notices added
func (b *Board) Seed(notices ...notice.Notice) int {
	added := 0
	for _, n := range notices {
		if n.ID == "" {
			n.ID = b.generateID()
		}
		if !n.Category.Valid() || b.indexOf(n.ID) >= 0 {
			slog.Warn("notice_event", "event", "seed_skipped", "notice_id", n.ID, "type", n.Category)
			continue
		}
		b.notices = append(b.notices, n)
		added++
	}
	return added
}

func (b *Board) indexOf(id string) int {
	return slices.IndexFunc(b.notices, func(n notice.Notice) bool { return n.ID == id })
}
