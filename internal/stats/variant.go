package stats

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVariant means the selected navigation button carries a label
// that is neither "Standard" nor "Expanded".
var ErrUnknownVariant = errors.New("unknown table variant")

// Variant is one of the two views of the stats table.
type Variant int

const (
	Standard Variant = iota + 1
	Expanded
)

func (v Variant) String() string {
	switch v {
	case Standard:
		return "standard"
	case Expanded:
		return "expanded"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Toggle returns the other variant.
func (v Variant) Toggle() Variant {
	if v == Standard {
		return Expanded
	}
	return Standard
}

// ParseVariant maps a button label to a Variant. It is the only place the
// page's free-text labels are compared.
func ParseVariant(label string) (Variant, error) {
	switch {
	case strings.EqualFold(strings.TrimSpace(label), "standard"):
		return Standard, nil
	case strings.EqualFold(strings.TrimSpace(label), "expanded"):
		return Expanded, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, label)
}

// Set implements pflag.Value.
func (v *Variant) Set(s string) error {
	parsed, err := ParseVariant(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Type implements pflag.Value.
func (v *Variant) Type() string {
	return "variant"
}

func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(b []byte) error {
	return v.Set(string(b))
}
