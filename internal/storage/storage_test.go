package storage

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, InitRedis(mr.Addr(), "", 0))
	assert.NotNil(t, Rdb)
	assert.NoError(t, CloseRedis())
}

func TestInitRedis_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	assert.Error(t, InitRedis(addr, "", 0))
	_ = CloseRedis()
}

func TestClose_Uninitialised(t *testing.T) {
	DB = nil
	assert.NoError(t, ClosePostgres())
}
