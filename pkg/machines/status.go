package machines

import "strings"

// Status is the operational state of a machine. The set is closed; raw text
// that does not name one of the known states parses to StatusUnknown.
type Status string

const (
	// AnyStatus is the empty filter: every machine passes it.
	AnyStatus Status = ""

	StatusWorking Status = "working"
	StatusIdle    Status = "idle"
	StatusFault   Status = "fault"
	StatusUnknown Status = "unknown"
)

// Statuses lists the concrete states in display order.
var Statuses = []Status{StatusWorking, StatusIdle, StatusFault, StatusUnknown}

// Color is a display color understood by the map and the list.
type Color string

const (
	ColorGreen Color = "green"
	ColorGold  Color = "gold"
	ColorRed   Color = "red"
	ColorGray  Color = "gray"
)

// statusAliases maps lowercased text to a status. The Polish labels come from
// the field crews' tablets and are accepted alongside the canonical names.
var statusAliases = map[string]Status{
	"working": StatusWorking,
	"pracuje": StatusWorking,
	"idle":    StatusIdle,
	"postój":  StatusIdle,
	"postoj":  StatusIdle,
	"fault":   StatusFault,
	"awaria":  StatusFault,
	"unknown": StatusUnknown,
}

// ParseStatus converts raw text into a Status. Matching ignores case and
// surrounding spaces. It never fails: unrecognised text is StatusUnknown.
func ParseStatus(raw string) Status {
	if s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

// ParseFilter converts a filter control value into a Status filter.
// Empty text and "all" select every machine.
func ParseFilter(raw string) Status {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "all") {
		return AnyStatus
	}
	return ParseStatus(trimmed)
}

// Known reports whether s is one of the concrete states.
func (s Status) Known() bool {
	switch s {
	case StatusWorking, StatusIdle, StatusFault, StatusUnknown:
		return true
	}
	return false
}

// Label is the English display label.
func (s Status) Label() string {
	switch s {
	case StatusWorking:
		return "Working"
	case StatusIdle:
		return "Idle"
	case StatusFault:
		return "Fault"
	case AnyStatus:
		return "All"
	}
	return "Unknown"
}

// LocalLabel is the Polish display label used on the crews' dashboards.
func (s Status) LocalLabel() string {
	switch s {
	case StatusWorking:
		return "Pracuje"
	case StatusIdle:
		return "Postój"
	case StatusFault:
		return "Awaria"
	case AnyStatus:
		return "Wszystkie"
	}
	return "Nieznany"
}

// Blinks reports whether markers in this state should draw attention.
func (s Status) Blinks() bool { return s == StatusFault }

// ColorOf maps a status to its display color. The mapping is total: anything
// that is not working, idle or fault is gray.
func ColorOf(s Status) Color {
	switch s {
	case StatusWorking:
		return ColorGreen
	case StatusIdle:
		return ColorGold
	case StatusFault:
		return ColorRed
	}
	return ColorGray
}

// ColorForText parses raw status text before mapping it to a color.
func ColorForText(raw string) Color { return ColorOf(ParseStatus(raw)) }

// UnmarshalText lets catalog files carry free-text status values.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// MarshalText writes the canonical name; the empty filter stays empty.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s), nil
}
