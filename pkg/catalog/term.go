package catalog

import (
	"errors"
	"strconv"
	"strings"
)

// TermOrdinal takes a term string like "Fall 2017" and maps it onto a
// sortable number (e.g: 20173) so that the most recent term can be found.
func TermOrdinal(term string) (int, error) {
	split := strings.Fields(term)
	if len(split) != 2 {
		return 0, errors.New(term + " is not a valid term")
	}

	season := strings.ToLower(split[0])
	year, err := strconv.Atoi(split[1])
	if err != nil {
		return 0, errors.New(term + " is not a valid term")
	}

	var seasonSuffix int
	switch season {
	case "winter":
		seasonSuffix = 0
	case "spring":
		seasonSuffix = 1
	case "summer":
		seasonSuffix = 2
	case "fall":
		seasonSuffix = 3
	default:
		return 0, errors.New(term + " is not a valid term")
	}

	return year*10 + seasonSuffix, nil
}

// IsTerm reports whether s names a term such as "Spring 2024".
func IsTerm(s string) bool {
	_, err := TermOrdinal(s)
	return err == nil
}

// MostRecentTerm picks the latest recognizable term from the list, falling
// back to the first entry when none of them parse.
func MostRecentTerm(terms []string) string {
	best, bestOrdinal := "", -1
	for _, term := range terms {
		ordinal, err := TermOrdinal(term)
		if err != nil {
			continue
		}
		if ordinal > bestOrdinal {
			best, bestOrdinal = term, ordinal
		}
	}
	if best == "" && len(terms) > 0 {
		return terms[0]
	}
	return best
}
