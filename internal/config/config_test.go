package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("100, 200,300")
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 300}, ids)

	ids, err = parseIDList(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids)

	_, err = parseIDList("100,abc")
	assert.Error(t, err)
}

func TestIsOperator(t *testing.T) {
	cfg := &Config{OperatorIDs: []int64{100, 200}}
	assert.True(t, cfg.IsOperator(100))
	assert.True(t, cfg.IsOperator(200))
	assert.False(t, cfg.IsOperator(300))
}
