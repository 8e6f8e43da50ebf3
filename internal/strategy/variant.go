package strategy

import (
	"fmt"
	"strings"
)

// Variant selects one of the fixed strategy flavours.
type Variant int

const (
	VariantBasic Variant = iota
	VariantGoverned
	VariantVirtual
	VariantGovernedVirtual
)

// Capabilities are the policy switches a variant turns on in the shared
// state machine.
type Capabilities struct {
	RequiresGovernanceApproval bool
	UsesVirtualToken           bool
}

var variants = map[Variant]struct {
	name string
	caps Capabilities
}{
	VariantBasic:           {"basic", Capabilities{}},
	VariantGoverned:        {"governed", Capabilities{RequiresGovernanceApproval: true}},
	VariantVirtual:         {"virtual", Capabilities{UsesVirtualToken: true}},
	VariantGovernedVirtual: {"governed_virtual", Capabilities{RequiresGovernanceApproval: true, UsesVirtualToken: true}},
}

func (v Variant) String() string {
	if entry, ok := variants[v]; ok {
		return entry.name
	}
	return "unknown"
}

// Capabilities returns the capability record of v.
func (v Variant) Capabilities() (Capabilities, error) {
	entry, ok := variants[v]
	if !ok {
		return Capabilities{}, fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
	return entry.caps, nil
}

// ParseVariant maps a variant name to its value.
func ParseVariant(name string) (Variant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return VariantBasic, nil
	}
	for v, entry := range variants {
		if entry.name == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}
