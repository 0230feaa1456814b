package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundError(t *testing.T) {
	assert.Equal(t, "device not found", (&NotFoundError{Resource: "device"}).Error())
	assert.Equal(t, `service "180f" not found`, (&NotFoundError{Resource: "service", UUIDs: []string{"180f"}}).Error())
	assert.Equal(t, `characteristic "2a19" not found in service "180f"`,
		(&NotFoundError{Resource: "characteristic", UUIDs: []string{"180f", "2a19"}}).Error())
}

func TestConnectionErrorMatchesByState(t *testing.T) {
	err := fmt.Errorf("read failed: %w", &ConnectionError{State: NotConnected, Msg: "link lost"})

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NotErrorIs(t, err, ErrAlreadyConnected)
	assert.True(t, IsConnectionState(err, NotConnected))
	assert.False(t, IsConnectionState(errors.New("other"), NotConnected))
	assert.Equal(t, "not_connected: link lost", errors.Unwrap(err).Error())
}

func TestParseProperties(t *testing.T) {
	p, err := ParseProperties("read, Write,writeWithoutResponse,notify")
	require.NoError(t, err)

	assert.True(t, p.Has(PropRead|PropWrite|PropWriteWithoutResponse|PropNotify))
	assert.False(t, p.Has(PropIndicate))
	assert.True(t, p.CanNotify())
	assert.Equal(t, "read,writeWithoutResponse,write,notify", p.String())

	indicate, err := ParseProperties("indicate")
	require.NoError(t, err)
	assert.True(t, indicate.CanNotify())

	empty, err := ParseProperties("")
	require.NoError(t, err)
	assert.Equal(t, Property(0), empty)
	assert.False(t, empty.CanNotify())

	_, err = ParseProperties("read,teleport")
	assert.ErrorContains(t, err, "teleport")
}
