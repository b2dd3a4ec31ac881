package tiger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTracts_RequiresStates(t *testing.T) {
	_, err := LoadTracts(context.Background(), LoadOptions{Year: 2024})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state FIPS")
}

func TestLoadTracts_RejectsBadFIPS(t *testing.T) {
	for _, fips := range []string{"2", "245", "MD", ""} {
		_, err := LoadTracts(context.Background(), LoadOptions{StateFIPS: []string{fips}})
		assert.Error(t, err, "fips %q", fips)
	}
}
