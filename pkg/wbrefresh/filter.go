package wbrefresh

import "strings"

// BlankSuffix ends the label of an OLAP member that stands for the blank
// or aggregate bucket.
const BlankSuffix = ".&"

// VisibleItems returns the labels worth showing in a date filter. Blank or
// whitespace-only labels and labels ending in BlankSuffix are dropped; the
// order of the rest is kept.
func VisibleItems(items []string) []string {
	var result []string
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" || strings.HasSuffix(trimmed, BlankSuffix) {
			continue
		}
		result = append(result, item)
	}
	return result
}
