package catalog

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTermOrdinal(t *testing.T) {
	testCases := []struct {
		term     string
		expected int
		valid    bool
	}{
		{term: "Fall 2017", expected: 20173, valid: true},
		{term: "spring 2024", expected: 20241, valid: true},
		{term: "Winter 2020", expected: 20200, valid: true},
		{term: "Summer 2023", expected: 20232, valid: true},
		{term: "Autumn 2023"},
		{term: "Fall"},
		{term: "Fall twenty"},
	}
	for _, tc := range testCases {
		t.Run(tc.term, func(t *testing.T) {
			ordinal, err := TermOrdinal(tc.term)
			if !tc.valid {
				require.Error(t, err)
				require.False(t, IsTerm(tc.term))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, ordinal)
			require.True(t, IsTerm(tc.term))
		})
	}
}

func TestMostRecentTerm(t *testing.T) {
	require.Equal(t, "Fall 2024", MostRecentTerm([]string{"Spring 2024", "Fall 2024", "Summer 2023"}))
	require.Equal(t, "Spring 2025", MostRecentTerm([]string{"Fall 2024", "Spring 2025"}))
	require.Equal(t, "Intersession", MostRecentTerm([]string{"Intersession", "Other"}))
	require.Equal(t, "", MostRecentTerm(nil))
}

func TestClockTime(t *testing.T) {
	ct := ClockTime{Hour: 8, Minute: 30, Offset: -5 * 3600}
	require.Equal(t, "08:30:00-05:00", ct.String())
	require.Equal(t, "+05:30", FormatOffset(19800))
	require.Equal(t, "+00:00", FormatOffset(0))

	parsed, err := ParseClockTime("08:30:00-05:00")
	require.NoError(t, err)
	require.Equal(t, ct, *parsed)

	_, err = ParseClockTime("8:30am")
	require.Error(t, err)
	_, err = ParseClockTime("24:00:00+00:00")
	require.Error(t, err)
}

func TestErrorLog(t *testing.T) {
	log := NewErrorLog()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(KindNetwork, "CIS", "", "timeout")
		}()
	}
	wg.Wait()
	require.Equal(t, 20, log.Len())

	entries := log.Entries()
	entries[0].Message = "mutated"
	require.Equal(t, "timeout", log.Entries()[0].Message)

	e := log.Append(KindCourse, "CIS", "1057", "constraint failed")
	require.Equal(t, "course error for CIS 1057: constraint failed", e.Error())
	require.False(t, e.Time.IsZero())

	var target ScrapeError
	require.True(t, errors.As(error(e), &target))
	require.Equal(t, "network error for CIS: timeout", log.Entries()[0].Error())
}
