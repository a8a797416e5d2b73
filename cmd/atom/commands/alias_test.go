package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekforge/atom/uri"
)

func TestAliasTableData_Sorted(t *testing.T) {
	data := aliasTableData(uri.Aliases{
		"org":  "gh:work-org",
		"bb":   "bitbucket.org",
		"pkgs": "gh:my-org/pkgs",
	})

	require.Len(t, data, 4)
	assert.Equal(t, []string{"Alias", "Expansion"}, data[0])
	assert.Equal(t, []string{"bb", "bitbucket.org"}, data[1])
	assert.Equal(t, []string{"org", "gh:work-org"}, data[2])
	assert.Equal(t, []string{"pkgs", "gh:my-org/pkgs"}, data[3])
}

func TestAliasList_WatchFlag(t *testing.T) {
	assert.NotNil(t, aliasListCmd.Flags().Lookup("watch"))
}
