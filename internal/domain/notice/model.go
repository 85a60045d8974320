package notice

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the closed set of tags a notice can carry.
type Category string

// Notice categories
const (
	CategoryAnnouncement Category = "announcement"
	CategoryEvent        Category = "event"
	CategoryReminder     Category = "reminder"
	CategoryImportant    Category = "important"
)

// DefaultCategory is applied to drafts that leave the category unset.
const DefaultCategory = CategoryAnnouncement

// DateLayout is the display format stamped onto a notice when it is added.
const DateLayout = "Mon Jan 02 2006"

// ValidCategories contains all valid notice categories in display order.
var ValidCategories = []Category{CategoryAnnouncement, CategoryEvent, CategoryReminder, CategoryImportant}

// Domain errors
var (
	ErrEmptyTitle      = errors.New("notice title cannot be empty")
	ErrEmptyText       = errors.New("notice text cannot be empty")
	ErrInvalidCategory = errors.New("notice category must be one of: announcement, event, reminder, important")
)

// ParseCategory converts raw input into a Category.
// PRE: none
// POST: empty input yields DefaultCategory; unknown input yields ErrInvalidCategory
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCategory, nil
	}
	c := Category(strings.ToLower(raw))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, v := range ValidCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Label returns the display label, e.g. "Announcement".
func (c Category) Label() string {
	return titleCase(string(c))
}

// titleCase builds a fresh Caser per call; Casers carry state and cannot be shared.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Notice is one posted item on the board.
// Date is formatted once when the notice is added and never recomputed.
type Notice struct {
	ID        string    `json:"id"`
	Category  Category  `json:"type"`
	Title     string    `json:"title"`
	Text      string    `json:"text"` // Markdown
	Date      string    `json:"date"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is uncommitted input for a new notice.
type Draft struct {
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Category Category `json:"type,omitempty"`
}

// Normalize trims the title and text and applies the default category.
// PRE: none
// POST: returned draft has no surrounding whitespace and a non-empty Category
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Text = strings.TrimSpace(d.Text)
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	return d
}

// Validate checks that the draft can become a notice.
// Whitespace-only title or text counts as empty.
// PRE: none
// POST: Returns nil if valid, a domain error otherwise
func (d Draft) Validate() error {
	d = d.Normalize()
	if d.Title == "" {
		return ErrEmptyTitle
	}
	if d.Text == "" {
		return ErrEmptyText
	}
	if !d.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}
