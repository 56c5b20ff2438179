// Package amount turns the free-text recipient and amount fields of an
// airdrop into lists and totals.
package amount

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned by ParseWei when an entry is not a
// non-negative base-10 integer.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	// One or more commas / newlines. \r is folded in so CRLF pastes split cleanly.
	delimiters = regexp.MustCompile(`[,\r\n]+`)

	// Longest numeric prefix, the same prefix parseFloat-style parsers accept.
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)
)

// Split breaks text on runs of commas and newlines, trims every piece and
// drops the empty ones. Order is preserved.
func Split(text string) []string {
	parts := delimiters.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CalculateTotal sums the numbers in text. A single entry that does not
// start with a number makes the whole result 0; there is no partial sum.
// Empty input also yields 0.
func CalculateTotal(text string) float64 {
	var total float64
	for _, p := range Split(text) {
		f, ok := parseFloat(p)
		if !ok {
			return 0
		}
		total += f
	}
	return total
}

// ParseWei parses every entry of text as an integer amount in the token's
// base unit and returns the list together with its exact sum. Unlike
// CalculateTotal it fails loudly: the first bad entry is reported by
// position and nothing is returned.
func ParseWei(text string) ([]*big.Int, *big.Int, error) {
	parts := Split(text)
	amounts := make([]*big.Int, 0, len(parts))
	total := new(big.Int)
	for i, p := range parts {
		n, ok := parseUint(p)
		if !ok {
			return nil, nil, fmt.Errorf("%w: entry %d (%q) is not a whole number of base units", ErrInvalidAmount, i+1, p)
		}
		amounts = append(amounts, n)
		total.Add(total, n)
	}
	return amounts, total, nil
}

// FormatUnits renders raw as a decimal string with the given number of
// decimals, trimming trailing zeros: 1500000 with 6 decimals is "1.5".
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	if decimals <= 0 {
		return raw.String()
	}
	neg := raw.Sign() < 0
	s := new(big.Int).Abs(raw).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	if neg {
		whole = "-" + whole
	}
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// parseFloat accepts the longest numeric prefix of s, so "12abc" is 12 and
// "abc" is not a number.
func parseFloat(s string) (float64, bool) {
	m := floatPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

func parseUint(s string) (*big.Int, bool) {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, false
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return n, true
}
