package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetVersionString(t *testing.T) {
	defer func(old string) { version = old }(version)
	version = "1.2.3"

	require.Equal(t, "Blessings, version 1.2.3", GetVersionString())
	require.Equal(t, "1.2.3", GetVersion())
}
