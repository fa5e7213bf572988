package alias

import "strings"

// Provider names accepted in PREFERRED_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// Qualified model prefixes understood by the forwarder.
const (
	PrefixOpenAI = "openai"
	PrefixGemini = "gemini"
)

// Slot selects which configured model an alias maps to.
type Slot int

const (
	SlotBig Slot = iota
	SlotSmall
)

func (s Slot) String() string {
	switch s {
	case SlotBig:
		return "big"
	case SlotSmall:
		return "small"
	default:
		return "unknown"
	}
}

// Settings is the subset of configuration the resolver reads.
type Settings struct {
	PreferredProvider string
	BigModel          string
	SmallModel        string
}

// Model returns the configured model name for slot.
func (s Settings) Model(slot Slot) string {
	if slot == SlotSmall {
		return s.SmallModel
	}
	return s.BigModel
}

// Rule maps a marker token to a settings slot.
type Rule struct {
	Marker string
	Slot   Slot
}

// Rules are evaluated in order; the first marker contained in the alias wins.
var Rules = []Rule{
	{Marker: "haiku", Slot: SlotSmall},
	{Marker: "sonnet", Slot: SlotBig},
}

// Prefix returns the provider prefix for a preferred provider value.
// Anything other than the secondary provider selects the primary one.
func Prefix(provider string) string {
	if strings.EqualFold(strings.TrimSpace(provider), ProviderGoogle) {
		return PrefixGemini
	}
	return PrefixOpenAI
}

// Match reports the slot selected by name, if any.
func Match(name string) (Slot, bool) {
	lower := strings.ToLower(name)
	for _, r := range Rules {
		if strings.Contains(lower, r.Marker) {
			return r.Slot, true
		}
	}
	return 0, false
}

// Resolve maps an alias to "<prefix>/<model>". Names that match no rule are
// returned unchanged so callers can pass a fully qualified model directly.
func Resolve(name string, s Settings) string {
	slot, ok := Match(name)
	if !ok {
		return name
	}
	return Prefix(s.PreferredProvider) + "/" + s.Model(slot)
}

// Split separates a qualified model into prefix and model name.
// ok is false when name has no prefix.
func Split(name string) (prefix, model string, ok bool) {
	prefix, model, ok = strings.Cut(name, "/")
	if !ok || prefix == "" {
		return "", name, false
	}
	return prefix, model, true
}
