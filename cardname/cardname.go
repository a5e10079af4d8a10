// Package cardname turns free-form deck list lines into card names and
// derives the keys and slugs used to address price sources.
package cardname

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Entry is a single parsed line of a card list.
type Entry struct {
	Count int    `json:"count"`
	Name  string `json:"name"`
}

var (
	// A repeat count is a run of digits, an optional x/X and some space
	countRegexp = regexp.MustCompile(`^(\d+)[xX]?\s+(.+)$`)

	// Set codes and collector numbers "(C21) 123", finish markers "*F*",
	// and single slash comments "/ sideboard". Split card separators "//"
	// are never matched since they are not followed by a space.
	annotationRegexp = regexp.MustCompile(`\s+(?:\(|\*|/\s).*$`)

	wordRegexp = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)
)

// ParseLine extracts the repeat count and the card name from a line such as
// "2x Sol Ring (C21) 123". The count defaults to 1 when not present, and
// when the line has no recognizable structure the whole trimmed line is
// returned as the name.
func ParseLine(raw string) Entry {
	line := clean(raw)

	entry := Entry{
		Count: 1,
		Name:  line,
	}

	groups := countRegexp.FindStringSubmatch(line)
	if len(groups) == 3 {
		count, err := strconv.Atoi(groups[1])
		if err == nil && count > 0 {
			entry.Count = count
		}
		entry.Name = groups[2]
	}

	name := annotationRegexp.ReplaceAllString(entry.Name, "")
	name = strings.TrimSpace(name)
	if name != "" {
		entry.Name = name
	}

	return entry
}

// Slugify joins the words of a card name with hyphens, producing the path
// segment most shops use to address a card page. Running Slugify on its own
// output returns the same string.
func Slugify(name string) string {
	words := wordRegexp.FindAllString(norm.NFC.String(name), -1)
	return strings.Join(words, "-")
}

// Key returns the lookup key of a card name, used to compare names coming
// from different sources.
func Key(name string) string {
	return strings.ToLower(clean(name))
}

// Equals compares two names after both are converted with Key.
func Equals(name1, name2 string) bool {
	return Key(name1) == Key(name2)
}

func clean(str string) string {
	str = strings.ReplaceAll(str, "\ufeff", "")
	str = norm.NFC.String(str)
	return strings.TrimSpace(str)
}
