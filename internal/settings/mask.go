package settings

import "strings"

// CredentialMarker marks keys whose values are secrets.
const CredentialMarker = "API_KEY"

// DisplayLine is one rendered settings line.
type DisplayLine struct {
	Text      string
	Malformed bool
}

// IsCredential reports whether key names a secret.
func IsCredential(key string) bool { return strings.Contains(key, CredentialMarker) }

// Mask shortens a secret to its first and last four characters.
// Values of eight characters or fewer are returned unchanged.
func Mask(value string) string {
	if len(value) <= 8 {
		return value
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// Render formats an entry for display, masking credentials.
func Render(e Entry) DisplayLine {
	if e.Malformed {
		return DisplayLine{Text: e.Raw, Malformed: true}
	}
	if IsCredential(e.Key) && len(e.Value) > 8 {
		return DisplayLine{Text: e.Key + "=" + Mask(e.Value)}
	}
	return DisplayLine{Text: e.Key + "=" + e.Value}
}

// Display renders every entry of the store.
func (s *Store) Display() ([]DisplayLine, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	out := make([]DisplayLine, 0, len(entries))
	for _, e := range entries {
		out = append(out, Render(e))
	}
	return out, nil
}
