package id

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortedAndUnique(t *testing.T) {
	t.Parallel()

	ids := make([]string, 500)
	for i := range ids {
		ids[i] = New()
	}

	assert.True(t, sort.StringsAreSorted(ids))
	seen := map[string]bool{}
	for _, s := range ids {
		assert.False(t, seen[s], "duplicate %s", s)
		seen[s] = true
	}
}

func TestWithPrefixAndTime(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Add(-time.Second)
	s := WithPrefix(Position)
	assert.True(t, strings.HasPrefix(s, "pos_"))

	ts, err := Time(s)
	require.NoError(t, err)
	assert.True(t, ts.After(before))
	assert.True(t, ts.Before(time.Now().UTC().Add(time.Second)))

	_, err = Time("run_not-a-ulid")
	assert.Error(t, err)
}
