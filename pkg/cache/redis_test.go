package cache

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notarypros/booking-service/pkg/logging"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedisClient(t.Context(), mr.Addr(), "", 0, logging.Discard())

	require.NotNil(t, client)
	defer client.Close()
	assert.NoError(t, client.Set(t.Context(), "k", "v", 0).Err())
}

func TestNewRedisClient_EmptyAddr(t *testing.T) {
	assert.Nil(t, NewRedisClient(t.Context(), "  ", "", 0, logging.Discard()))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	assert.Nil(t, NewRedisClient(t.Context(), addr, "", 0, logging.Discard()))
}
