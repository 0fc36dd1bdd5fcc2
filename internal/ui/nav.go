package ui

import "fmt"

// Section identifiers of the dashboard.
const (
	SectionOverview    = "overview"
	SectionAttacks     = "attacks"
	SectionConnections = "connections"
	SectionAlerts      = "alerts"
)

// Entry is one sidebar navigation entry and the section it shows.
type Entry struct {
	ID    string
	Label string
}

// DefaultEntries is the dashboard sidebar.
var DefaultEntries = []Entry{
	{ID: SectionOverview, Label: "Overview"},
	{ID: SectionAttacks, Label: "Attacks"},
	{ID: SectionConnections, Label: "Connections"},
	{ID: SectionAlerts, Label: "Alerts"},
}

// Navigator tracks the active sidebar entry, the visible section, the
// section title and whether the sidebar is collapsed. Exactly one entry
// is active and exactly one section is visible at any time.
type Navigator struct {
	entries   []Entry
	active    int
	title     string
	collapsed bool
}

// NewNavigator creates a navigator with the first entry active.
func NewNavigator(entries []Entry) *Navigator {
	if len(entries) == 0 {
		entries = DefaultEntries
	}
	n := &Navigator{entries: append([]Entry(nil), entries...)}
	n.title = n.entries[0].Label
	return n
}

// Select activates the entry with the given id and shows its section.
func (n *Navigator) Select(id string) error {
	for i, e := range n.entries {
		if e.ID == id {
			n.active = i
			n.title = e.Label
			return nil
		}
	}
	return fmt.Errorf("unknown section %q", id)
}

// SelectIndex activates the entry at 1-based position pos.
func (n *Navigator) SelectIndex(pos int) error {
	if pos < 1 || pos > len(n.entries) {
		return fmt.Errorf("no section %d", pos)
	}
	return n.Select(n.entries[pos-1].ID)
}

// ToggleSidebar flips the collapsed state and returns the new value.
func (n *Navigator) ToggleSidebar() bool {
	n.collapsed = !n.collapsed
	return n.collapsed
}

// Collapsed reports whether the sidebar is collapsed.
func (n *Navigator) Collapsed() bool { return n.collapsed }

// Active returns the active entry.
func (n *Navigator) Active() Entry { return n.entries[n.active] }

// IsActive reports whether the entry with id is the active one.
func (n *Navigator) IsActive(id string) bool { return n.entries[n.active].ID == id }

// SectionVisible reports whether the section with id is shown.
func (n *Navigator) SectionVisible(id string) bool { return n.IsActive(id) }

// Title is the label of the active entry.
func (n *Navigator) Title() string { return n.title }

// Entries returns the sidebar entries in order.
func (n *Navigator) Entries() []Entry { return append([]Entry(nil), n.entries...) }
