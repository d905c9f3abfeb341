package errors

import "strings"

// Separator divides the segments of an error ID.
const Separator = ":"

// Descriptor is the (category, message) pair surfaced to the host.
type Descriptor struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// JoinID joins non-empty segments with the separator.
func JoinID(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, Separator)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, Separator)
}

// NormalizeID substitutes characters the host reserves in category names.
// Dots become segment separators, whitespace becomes '_', and empty segments
// are dropped.
func NormalizeID(id string) string {
	id = strings.Map(func(r rune) rune {
		switch r {
		case '.':
			return ':'
		case ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, id)
	return JoinID(strings.Split(id, Separator)...)
}

// Describe converts err into a Descriptor. fallbackID is used when err
// carries no category of its own.
func Describe(err error, fallbackID string) Descriptor {
	if err == nil {
		return Descriptor{}
	}
	id := IDOf(err)
	if id == "" {
		id = fallbackID
	}
	msg := MessageOf(err)
	if msg == "" {
		msg = "unknown error"
	}
	return Descriptor{
		ID:      NormalizeID(id),
		Message: msg,
	}
}

// Segments splits an ID into its segments.
func (d Descriptor) Segments() []string {
	if d.ID == "" {
		return nil
	}
	return strings.Split(d.ID, Separator)
}

// HasPrefix reports whether the descriptor's ID starts with the given
// segments, matching whole segments only.
func (d Descriptor) HasPrefix(segments ...string) bool {
	have := d.Segments()
	if len(segments) > len(have) {
		return false
	}
	for i, s := range segments {
		if have[i] != s {
			return false
		}
	}
	return true
}
