// Package animation defines the selectable light patterns and their
// per-frame renderers.
package animation

import "fmt"

// Kind identifies the active animation. The zero value is None.
type Kind int

// Animation kinds, one per print lifecycle phase.
const (
	None Kind = iota
	PrinterConnected
	PrintStarted
	PrintProgress
	PrintDone
	PrintFailed
)

var kindNames = map[Kind]string{
	None:             "none",
	PrinterConnected: "printer_connected",
	PrintStarted:     "print_started",
	PrintProgress:    "print_progress",
	PrintDone:        "print_done",
	PrintFailed:      "print_failed",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{None, PrinterConnected, PrintStarted, PrintProgress, PrintDone, PrintFailed}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown animation %q", name)
}

// MarshalText renders the kind by name in JSON and TOML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
