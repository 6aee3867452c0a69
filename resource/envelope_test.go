package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hirepanel/errors"
)

func TestDecodeEnvelope_DerivesLastPage(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"data":[],"meta":{"current_page":2,"per_page":25,"total":60}}`), 2, 25)
	require.NoError(t, err)
	assert.Equal(t, 3, env.Meta.LastPage)
}

func TestDecodeEnvelope_NonArrayData(t *testing.T) {
	for _, body := range []string{
		`{"data":{"id":1}}`,
		`{"data":null}`,
		`{"data":"nope"}`,
		`{}`,
	} {
		env, err := DecodeEnvelope([]byte(body), 1, 10)
		require.NoError(t, err, body)
		assert.NotNil(t, env.Data, body)
		assert.Empty(t, env.Data, body)
		assert.Equal(t, 1, env.Meta.CurrentPage)
		assert.Equal(t, 1, env.Meta.LastPage)
	}
}

func TestDecodeEnvelope_StringNumbers(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"data":[{"id":"a"}],"meta":{"current_page":"3","per_page":"10","total":"95","last_page":"10"},"links":{"next":"?page=4"}}`), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, env.Meta.CurrentPage)
	assert.Equal(t, 10, env.Meta.LastPage)
	assert.Equal(t, 95, env.Meta.Total)
	assert.Equal(t, "?page=4", env.Links["next"])
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`not json`), 1, 10)
	assert.True(t, errors.Is(err, errors.ErrInvalidResponse))
}

func TestDecodeEnvelope_KeepsNumbersExact(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"data":[{"id":12345678901234567,"salary":85000.5}]}`), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567", env.Data[0].ID())
	assert.Equal(t, json.Number("85000.5"), env.Data[0]["salary"])
}

func TestLastPage(t *testing.T) {
	assert.Equal(t, 3, LastPage(60, 25))
	assert.Equal(t, 2, LastPage(50, 25))
	assert.Equal(t, 1, LastPage(0, 25))
	assert.Equal(t, 1, LastPage(10, 0))
}
