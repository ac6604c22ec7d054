package noderange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandLiteralList(t *testing.T) {
	names, err := Expand("n1,n3,n2", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3"}, names)
}

func TestExpandBracketRange(t *testing.T) {
	names, err := Expand("n[1-3]", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3"}, names)
}

func TestExpandZeroPadded(t *testing.T) {
	names, err := Expand("n[01-03]", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n01", "n02", "n03"}, names)
}

func TestExpandBracketList(t *testing.T) {
	names, err := Expand("n[1,3,5-6]", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n3", "n5", "n6"}, names)
}

func TestExpandCartesian(t *testing.T) {
	names, err := Expand("n[1-2]e[1-2]", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"n1e1", "n1e2", "n2e1", "n2e2"}, names)
}

func TestExpandExclusion(t *testing.T) {
	names, err := Expand("n[1-3],!n2", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n3"}, names)
}

func TestExpandGroupReference(t *testing.T) {
	resolver := func(group string) ([]string, error) {
		if group == "rack1" {
			return []string{"n1", "n2"}, nil
		}
		return nil, nil
	}
	names, err := Expand("@rack1,n3", resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3"}, names)
}

func TestExpandBareHyphenRange(t *testing.T) {
	names, err := Expand("n1-n3", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3"}, names)
}

func TestExpandBareHyphenRangeLiteralFallback(t *testing.T) {
	names, err := Expand("my-node", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-node"}, names)
}

func TestExpandInvalidRange(t *testing.T) {
	_, err := Expand("n[5-1]", nil)
	assert.Error(t, err)
}

func TestNaturalSortOrder(t *testing.T) {
	names := []string{"n10", "n2", "n1"}
	Sort(names)
	assert.Equal(t, []string{"n1", "n2", "n10"}, names)
}

func TestAbbreviateRoundTrip(t *testing.T) {
	names := []string{"n1", "n2", "n3", "n5"}
	abbrev := Abbreviate(names)
	expanded, err := Expand(abbrev, nil)
	require.NoError(t, err)
	assert.Equal(t, names, expanded)
}

func TestAbbreviateLiteralFallback(t *testing.T) {
	abbrev := Abbreviate([]string{"foo", "bar"})
	expanded, err := Expand(abbrev, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"foo", "bar"}, expanded)
}

func TestAbbreviateContiguousPairUsesHyphenForm(t *testing.T) {
	assert.Equal(t, "n1-n2", Abbreviate([]string{"n1", "n2"}))
}

func TestAbbreviateContiguousRunRoundTripsThroughHyphenForm(t *testing.T) {
	names := []string{"n1", "n2", "n3"}
	abbrev := Abbreviate(names)
	assert.Equal(t, "n1-n3", abbrev)

	expanded, err := Expand(abbrev, nil)
	require.NoError(t, err)
	assert.Equal(t, names, expanded)
}

func TestAbbreviateGappedGroupKeepsBracketForm(t *testing.T) {
	assert.Equal(t, "n[1-2,5]", Abbreviate([]string{"n1", "n2", "n5"}))
}
