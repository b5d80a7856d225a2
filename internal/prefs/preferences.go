package prefs

import "sort"

// Preferences maps each recipient address of one send attempt to its
// resolved preference. It is built once and not mutated afterwards; the
// helpers below return new maps.
type Preferences map[string]SendPreference

// Addresses returns the addresses in sorted order.
func (p Preferences) Addresses() []string {
	out := make([]string, 0, len(p))
	for addr := range p {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Failures returns the failure of every address that carries one.
func (p Preferences) Failures() map[string]*Failure {
	out := make(map[string]*Failure)
	for addr, pref := range p {
		if pref.Failure != nil {
			out[addr] = pref.Failure
		}
	}
	return out
}

// Without returns a copy of p without the given addresses.
func (p Preferences) Without(addresses ...string) Preferences {
	drop := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		drop[a] = struct{}{}
	}

	out := make(Preferences, len(p))
	for addr, pref := range p {
		if _, ok := drop[addr]; !ok {
			out[addr] = pref
		}
	}
	return out
}

// MIMETypes returns the distinct MIME types required, sorted.
func (p Preferences) MIMETypes() []MIMEType {
	seen := make(map[MIMEType]struct{})
	for _, pref := range p {
		if pref.Failure == nil {
			seen[pref.MIMEType] = struct{}{}
		}
	}

	out := make([]MIMEType, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
