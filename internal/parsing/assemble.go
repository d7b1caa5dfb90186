package parsing

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// ExtractionKind tells whether an item line matched the decomposition pattern
type ExtractionKind int

const (
	// Matched means quantity and name came from the decomposition pattern
	Matched ExtractionKind = iota
	// Fallback means the whole line became the name with quantity 1
	Fallback
)

func (k ExtractionKind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Extraction is the decomposed form of an item line
type Extraction struct {
	Kind     ExtractionKind
	Quantity int
	Name     string
}

// itemLinePattern captures an optional leading quantity, the name, and an
// optional trailing "(4.50)" or "($4.50)" annotation. Separators include
// Unicode spaces such as NBSP, which OCR output often contains.
var itemLinePattern = regexp.MustCompile(`^(?:([0-9]+)[\s\p{Z}]+)?(.*?)[\s\p{Z}]*(\(\$?[0-9]+\.[0-9]{2}\))?$`)

// ExtractItem splits an item line into quantity and name.
// The trailing price annotation is discarded; the paired price line wins.
func ExtractItem(raw string) Extraction {
	m := itemLinePattern.FindStringSubmatch(raw)
	if m == nil {
		return fallback(raw)
	}

	quantity := 1
	if m[1] != "" {
		q, err := strconv.Atoi(m[1])
		if err != nil {
			return fallback(raw)
		}
		quantity = q
	}

	return Extraction{
		Kind:     Matched,
		Quantity: quantity,
		Name:     strings.TrimSpace(m[2]),
	}
}

func fallback(raw string) Extraction {
	return Extraction{Kind: Fallback, Quantity: 1, Name: raw}
}

// Assemble pairs item lines with price lines by index.
// The result has one record per index of the longer list; the missing side
// of an unpaired index is left nil.
func Assemble(lines Lines) []Record {
	n := max(len(lines.Items), len(lines.Prices))
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		var rec Record
		if i < len(lines.Items) {
			ext := ExtractItem(lines.Items[i].Raw)
			name, quantity := ext.Name, ext.Quantity
			rec.ItemName = &name
			rec.Quantity = &quantity
		}
		if i < len(lines.Prices) {
			price := lines.Prices[i].Value
			rec.Price = &price
		}
		records = append(records, rec)
	}
	return records
}

// Parse converts OCR text into receipt records
func Parse(text string) []Record {
	lines := Classify(text)
	slog.Debug("Classified receipt lines", "items", len(lines.Items), "prices", len(lines.Prices))
	return Assemble(lines)
}
