package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssert(t *testing.T) {
	require.PanicsWithValue(t, "driver must not be nil", func() { NotNil(nil, "driver") })
	require.NotPanics(t, func() { NotNil(1, "n") })
	require.PanicsWithValue(t, "date format must not be empty", func() { NotEmptyStr("", "date format") })
	require.NotPanics(t, func() { NotEmptyStr("%Y", "date format") })
}
