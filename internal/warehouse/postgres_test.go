package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/dataforge/pkg/models"
)

func TestPgType(t *testing.T) {
	assert.Equal(t, "BIGINT", pgType(models.TypeInteger))
	assert.Equal(t, "NUMERIC(18,2)", pgType(models.TypeFloat))
	assert.Equal(t, "BOOLEAN", pgType(models.TypeBoolean))
	assert.Equal(t, "DATE", pgType(models.TypeDate))
	assert.Equal(t, "TIMESTAMPTZ", pgType(models.TypeTimestamp))
	assert.Equal(t, "TEXT", pgType(models.TypeString))
	assert.Equal(t, "TEXT", pgType(models.TypeEmail))
}

func TestNewPostgresSinkValidation(t *testing.T) {
	_, err := NewPostgresSink(nil, nil)
	require.Error(t, err)

	_, err = NewPostgresSink(&PostgresConfig{}, nil)
	require.Error(t, err)

	sink, err := NewPostgresSink(&PostgresConfig{DSN: "postgres://localhost/dw"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, sink)
}
