package resolve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

func TestQuery_Postcodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"W9 1SY", "W9 1SY"},
		{"w9 1sy", "W9 1SY"},
		{"SW1A 1AA", "SW1A 1AA"},
		{"  EC1A 1BB  ", "EC1A 1BB"},
		{"M1 1AE", "M1 1AE"},
		{"B33 8TH", "B33 8TH"},
		{"CR2 6XH", "CR2 6XH"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			targets, err := Query(tt.raw)
			require.NoError(t, err)
			require.Len(t, targets, 1)
			require.Equal(t, pharma.KindSearch, targets[0].Kind)
			require.Equal(t, tt.want, targets[0].Query)
		})
	}
}

func TestQuery_PostcodeWithoutSpaceWinsOverCodeShape(t *testing.T) {
	t.Parallel()

	// W91SY matches both shapes; the postcode interpretation takes priority.
	targets, err := Query("W91SY")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, pharma.KindSearch, targets[0].Kind)
	require.Equal(t, "W91SY", targets[0].Query)
}

func TestQuery_PharmacyCodes(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"FJ144", "fj144", "FA001"} {
		t.Run(raw, func(t *testing.T) {
			t.Parallel()
			targets, err := Query(raw)
			require.NoError(t, err)
			require.Len(t, targets, 1)
			require.Equal(t, pharma.KindDetail, targets[0].Kind)
			require.Equal(t, strings.ToUpper(raw), targets[0].ID)
		})
	}
}

func TestQuery_Invalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "zzz", "12345678", "hello world", "FJ14", "FJ1445X"} {
		t.Run(raw, func(t *testing.T) {
			t.Parallel()
			targets, err := Query(raw)
			require.Empty(t, targets)
			var vErr *pharma.ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestFromListing_DedupesAndCaps(t *testing.T) {
	t.Parallel()

	rows := []pharma.ListingRow{
		{ID: "FA111", Name: "First"},
		{ID: "fa111", Name: "First again"},
		{ID: "", Name: "No identifier"},
		{ID: "FB222", Name: "Second"},
		{ID: "FC333", Name: "Third"},
	}

	targets := FromListing(rows, 2)
	require.Len(t, targets, 2)
	require.Equal(t, "FA111", targets[0].ID)
	require.Equal(t, "First", targets[0].Hint)
	require.Equal(t, "FB222", targets[1].ID)
}

func TestFromListing_NoCap(t *testing.T) {
	t.Parallel()

	rows := []pharma.ListingRow{
		{ID: "FA111", Name: "A"},
		{ID: "FB222", Name: "B"},
	}
	require.Len(t, FromListing(rows, 0), 2)
}

func TestNormalizePostcode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "W9 1SY", NormalizePostcode("w9  1sy"))
	require.Equal(t, "SW1A 1AA", NormalizePostcode(" sw1a 1aa "))
}
