package power

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeepAwakeRestores(t *testing.T) {
	restore, err := KeepAwake()
	require.NoError(t, err)
	require.NotNil(t, restore)
	restore()
}
