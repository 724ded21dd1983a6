package stock

import "strings"

// Status is the canonical classification of a scraped stock status.
// The string values are what the snapshot file stores.
type Status string

const (
	InStock    Status = "In Stock"
	OutOfStock Status = "Out of Stock"
	Unknown    Status = "Unknown"

	// Seen is recorded for presence-mode items. It is never produced by Classify.
	Seen Status = "Seen"
)

// "not in stock" contains the positive marker, so it is checked first.
const negatedInStockMarker = "not in stock"

const inStockMarker = "in stock"

var outOfStockMarkers = []string{
	"out of stock",
	"sold out",
}

// Classify maps free-form status text to a Status by case-insensitive
// substring match. An in-stock marker wins over out-of-stock markers in the
// same text. Empty or unrecognised text is Unknown.
func Classify(text string) Status {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Unknown
	}
	if strings.Contains(strings.ReplaceAll(t, negatedInStockMarker, ""), inStockMarker) {
		return InStock
	}
	if strings.Contains(t, negatedInStockMarker) {
		return OutOfStock
	}
	for _, m := range outOfStockMarkers {
		if strings.Contains(t, m) {
			return OutOfStock
		}
	}
	return Unknown
}

// ParseStatus reads a stored status value. Exact canonical values are kept;
// anything else (older snapshots stored raw scraped text) is re-classified.
func ParseStatus(s string) Status {
	switch st := Status(s); st {
	case InStock, OutOfStock, Unknown, Seen:
		return st
	}
	return Classify(s)
}

func (s Status) String() string { return string(s) }
