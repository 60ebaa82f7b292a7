package plugin

// EntryKind distinguishes how a radial entry behaves when chosen.
type EntryKind string

const (
	EntryAction    EntryKind = "action"
	EntrySubmenu   EntryKind = "submenu"
	EntrySeparator EntryKind = "separator"
)

// Priority bounds shared by entries and providers.
const (
	MinPriority     = 0
	MaxPriority     = 1000
	DefaultPriority = 100
)

// ClampPriority bounds p to [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	switch {
	case p < MinPriority:
		return MinPriority
	case p > MaxPriority:
		return MaxPriority
	default:
		return p
	}
}

// Entry is a single radial menu slot. For action entries ID doubles as the action id.
type Entry struct {
	ID           string         `json:"id"`
	Label        string         `json:"label"`
	Description  string         `json:"description,omitempty"`
	IconID       string         `json:"icon_id,omitempty"`
	Kind         EntryKind      `json:"kind"`
	Priority     int            `json:"priority"`
	Visible      bool           `json:"visible"`
	Enabled      bool           `json:"enabled"`
	VisibleWhen  string         `json:"visible_when,omitempty"`
	EnabledWhen  string         `json:"enabled_when,omitempty"`
	PreviewPanel string         `json:"preview_panel,omitempty"`
	SubEntries   []Entry        `json:"sub_entries,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewActionEntry returns a visible, enabled action entry with default priority.
func NewActionEntry(id, label string) Entry {
	return Entry{ID: id, Label: label, Kind: EntryAction, Priority: DefaultPriority, Visible: true, Enabled: true}
}

// NewSubmenu returns a visible, enabled submenu entry.
func NewSubmenu(id, label string, children ...Entry) Entry {
	return Entry{ID: id, Label: label, Kind: EntrySubmenu, Priority: DefaultPriority, Visible: true, Enabled: true, SubEntries: children}
}

// NewSeparator returns a separator entry.
func NewSeparator(id string) Entry {
	return Entry{ID: id, Kind: EntrySeparator, Priority: DefaultPriority, Visible: true}
}
