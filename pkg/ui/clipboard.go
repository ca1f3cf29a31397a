package ui

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrNoClipboard is returned when the platform has no usable clipboard.
var ErrNoClipboard = errors.New("no clipboard utility available")

// CopyToClipboard copies text to the system clipboard.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return ErrNoClipboard
	}
	return clipboard.WriteAll(text)
}
