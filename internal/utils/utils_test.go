package utils_test

import (
	"sort"
	"testing"

	"github.com/lemussistemas/salsa-hn-frontend/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestToStrings(t *testing.T) {
	require.Nil(t, utils.ToStrings(nil))
	require.Equal(t, []string{"required"}, utils.ToStrings("required"))
	require.Equal(t, []string{"a", "b", "3"}, utils.ToStrings([]any{"a", []any{"b", 3}}))

	nested := utils.ToStrings(map[string]any{"x": []any{"bad"}, "y": "worse"})
	sort.Strings(nested)
	require.Equal(t, []string{"x: bad", "y: worse"}, nested)
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, utils.SplitList(" a, ,b,"))
	require.Nil(t, utils.SplitList(""))
}

func TestPointers(t *testing.T) {
	var s *string
	require.Equal(t, "-", utils.ValueOr(s, "-"))
	require.Equal(t, "x", utils.ValueOr(utils.Ptr("x"), "-"))
}
