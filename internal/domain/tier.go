// Package domain defines the core entities of the compliance engine.
package domain

import (
	"fmt"
	"strings"

	"tickex/pkg/errors"
)

// Tier is the depth of identity verification required or achieved.
// The ordering is total: TierNone < TierBasic < TierAdvanced < TierEnhanced.
// Within a session a tier only ratchets upward; it never silently decreases.
type Tier int

const (
	TierNone Tier = iota
	TierBasic
	TierAdvanced
	TierEnhanced
)

var tierNames = map[Tier]string{
	TierNone:     "none",
	TierBasic:    "basic",
	TierAdvanced: "advanced",
	TierEnhanced: "enhanced",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Covers reports whether a holder of tier t satisfies a requirement of
// tier required.
func (t Tier) Covers(required Tier) bool {
	return t >= required
}

// ParseTier maps a canonical tier name to its Tier value.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return TierNone, nil
	case "basic":
		return TierBasic, nil
	case "advanced":
		return TierAdvanced, nil
	case "enhanced":
		return TierEnhanced, nil
	}
	return TierNone, errors.Wrapf(errors.ErrInvalidTier, "unknown verification tier %q", s)
}

// MarshalJSON renders the tier name rather than its numeric value.
func (t Tier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts the canonical tier names.
func (t *Tier) UnmarshalJSON(b []byte) error {
	parsed, err := ParseTier(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
