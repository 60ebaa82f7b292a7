package plugin

// PanelKind selects the presentation of panel content.
type PanelKind string

const (
	PanelPreview      PanelKind = "preview"
	PanelConfirmModal PanelKind = "confirm_modal"
	PanelInfoModal    PanelKind = "info_modal"
	PanelTextInput    PanelKind = "text_input"
	PanelCustom       PanelKind = "custom"
)

// ButtonStyle hints how a panel button is rendered.
type ButtonStyle string

const (
	ButtonDefault ButtonStyle = "default"
	ButtonPrimary ButtonStyle = "primary"
	ButtonDanger  ButtonStyle = "danger"
	ButtonSuccess ButtonStyle = "success"
)

// PanelButton triggers ActionID when pressed.
type PanelButton struct {
	Label    string      `json:"label"`
	ActionID string      `json:"action_id"`
	Style    ButtonStyle `json:"style"`
	Enabled  bool        `json:"enabled"`
}

// TextInputSpec configures a text-input panel.
type TextInputSpec struct {
	Placeholder     string `json:"placeholder,omitempty"`
	InitialValue    string `json:"initial_value,omitempty"`
	MaxLength       int    `json:"max_length"`
	ValidationRegex string `json:"validation_regex,omitempty"`
	SubmitActionID  string `json:"submit_action_id"`
}

// DefaultInputMaxLength is applied when a text-input spec leaves MaxLength unset.
const DefaultInputMaxLength = 100

// PanelContent is the content shown in one panel slot.
type PanelContent struct {
	Kind     PanelKind      `json:"kind"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Buttons  []PanelButton  `json:"buttons,omitempty"`
	Input    *TextInputSpec `json:"input,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
