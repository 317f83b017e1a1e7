package collector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var priceRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// CleanPrice extracts a decimal price from retailer page text such as
// "£1,299.00", "Now £799", or "1299". Returns an error when no digits are
// present or the amount fails to parse.
func CleanPrice(text string) (decimal.Decimal, error) {
	match := priceRe.FindString(text)
	if match == "" {
		return decimal.Zero, fmt.Errorf("no price in %q", strings.TrimSpace(text))
	}

	cleaned := strings.ReplaceAll(match, ",", "")
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", cleaned, err)
	}
	return price, nil
}
