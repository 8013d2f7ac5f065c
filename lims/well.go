package lims

import (
	"fmt"
	"strconv"
	"strings"
)

// WellPosition addresses one cell on a plate. Row and Column are zero-based,
// the textual forms are the usual plate coordinates ("A01" padded, "A1" alphanumeric).
type WellPosition struct {
	Row    int
	Column int
}

const rowLetters = "ABCDEFGHIJKLMNOP"

var ErrInvalidWellPosition = fmt.Errorf("invalid well position")

// ParseWellPosition accepts both the padded ("A01") and the alphanumeric ("A1")
// form, as the two instrument families disagree on which one they emit.
func ParseWellPosition(raw string) (WellPosition, error) {
	trimmed := strings.TrimSpace(strings.ToUpper(raw))
	if len(trimmed) < 2 {
		return WellPosition{}, fmt.Errorf("%w: %q", ErrInvalidWellPosition, raw)
	}
	row := strings.IndexByte(rowLetters, trimmed[0])
	if row < 0 {
		return WellPosition{}, fmt.Errorf("%w: %q", ErrInvalidWellPosition, raw)
	}
	column, err := strconv.Atoi(trimmed[1:])
	if err != nil || column < 1 {
		return WellPosition{}, fmt.Errorf("%w: %q", ErrInvalidWellPosition, raw)
	}
	return WellPosition{Row: row, Column: column - 1}, nil
}

// String returns the padded form used in sample list files, e.g. "A01".
func (w WellPosition) String() string {
	return fmt.Sprintf("%c%02d", rowLetters[w.Row], w.Column+1)
}

// AlphaNum returns the unpadded form used by the instruments, e.g. "A1".
func (w WellPosition) AlphaNum() string {
	return fmt.Sprintf("%c%d", rowLetters[w.Row], w.Column+1)
}
