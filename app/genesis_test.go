package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenesisSections(t *testing.T) {
	sections, err := genesisSections(nil)
	require.NoError(t, err)
	require.Nil(t, sections("bank"))

	sections, err = genesisSections([]byte(`{"bank":{"accounts":[]},"counter":null}`))
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`{"accounts":[]}`), sections("bank"))
	require.Nil(t, sections("counter"))
	require.Nil(t, sections("missing"))

	_, err = genesisSections([]byte(`{"bank":`))
	require.Error(t, err)
	_, err = genesisSections([]byte(`[1,2]`))
	require.Error(t, err)
}
