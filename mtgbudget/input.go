package mtgbudget

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/mtgban/go-mtgbudget/cardname"
)

// ReadCardList parses a card list, one entry per line, skipping blank lines.
// Lines have no length limit.
func ReadCardList(r io.Reader) ([]cardname.Entry, error) {
	var entries []cardname.Entry

	reader := bufio.NewReader(r)
	for {
		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return entries, err
		}

		line := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if line != "" {
			entries = append(entries, cardname.ParseLine(line))
		}

		if err != nil {
			return entries, nil
		}
	}
}

// ReadExclusions parses a list of names to leave out of the total,
// normalized in the same way as card list entries.
func ReadExclusions(r io.Reader) (map[string]bool, error) {
	entries, err := ReadCardList(r)
	if err != nil {
		return nil, err
	}

	out := map[string]bool{}
	for _, entry := range entries {
		out[cardname.Key(entry.Name)] = true
	}
	return out, nil
}
