package winf

import "strings"

// winfTag holds the parsed information from a `winf` struct tag.
type winfTag struct {
	Name      string
	Omitempty bool
}

// parseWinfTag parses a raw struct tag string into a winfTag struct.
// If the tag string is empty, it uses the provided fieldName as the default.
func parseWinfTag(tagStr, fieldName string) winfTag {
	if tagStr == "" {
		return winfTag{Name: fieldName}
	}
	parts := strings.Split(tagStr, ",")
	tag := winfTag{Name: parts[0]}
	if tag.Name == "" {
		tag.Name = fieldName
	}
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			tag.Omitempty = true
		}
	}
	return tag
}
