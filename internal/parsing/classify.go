package parsing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var priceLinePattern = regexp.MustCompile(`^[0-9]+\.[0-9]{2}$`)

// Classify splits OCR text into item lines and price lines.
// Lines are trimmed and blank lines are dropped. A line is a price line only
// when the whole line is digits, a decimal point and exactly two digits.
func Classify(text string) Lines {
	var lines Lines
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if price, ok := parsePriceLine(line); ok {
			lines.Prices = append(lines.Prices, PriceLine{Value: price})
			continue
		}
		lines.Items = append(lines.Items, ItemLine{Raw: line})
	}
	return lines
}

func parsePriceLine(line string) (decimal.Decimal, bool) {
	if !priceLinePattern.MatchString(line) {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(line)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}
