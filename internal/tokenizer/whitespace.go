package tokenizer

import "strings"

const whitespaceCounterName = "whitespace"

// WhitespaceCounter approximates tokens as whitespace-separated words.
type WhitespaceCounter struct{}

// Name identifies the counter in status messages.
func (WhitespaceCounter) Name() string {
	return whitespaceCounterName
}

// CountString returns the number of whitespace-separated fields in input.
func (WhitespaceCounter) CountString(input string) (int, error) {
	return len(strings.Fields(input)), nil
}
