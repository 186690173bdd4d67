package retrieval

import (
	"fmt"
	"strings"
)

// Mode selects how much of the corpus grounds the answer.
type Mode string

const (
	// ModeDefault grounds the answer on the top-K search results only.
	ModeDefault Mode = "default"
	// ModeComprehensive sweeps dominant sections and grounds on them.
	ModeComprehensive Mode = "comprehensive"
)

// ParseMode accepts "default", "simple", "comprehensive" and the empty string.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "simple":
		return ModeDefault, nil
	case "comprehensive":
		return ModeComprehensive, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m Mode) String() string { return string(m) }
