package principal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPGDirectory_ValidatesTable(t *testing.T) {
	_, err := NewPGDirectory(nil, "users; DROP TABLE x")
	assert.Error(t, err)

	d, err := NewPGDirectory(nil, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, d.table)
}

func TestPGDirectory_FindSQL(t *testing.T) {
	d, err := NewPGDirectory(nil, "members")
	require.NoError(t, err)

	sql, err := d.findSQL(Query{Field: "auth0Id", Value: "x", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, `SELECT id, subject, current_token FROM "members" WHERE "auth0Id" = $1 ORDER BY id LIMIT 1`, sql)

	sql, err = d.findSQL(Query{Field: "subject"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT id, subject, current_token FROM "members" WHERE "subject" = $1 ORDER BY id`, sql)

	_, err = d.findSQL(Query{Field: `subject" OR 1=1 --`})
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = d.findSQL(Query{Field: "subject", Limit: -2})
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	if p := nullIfEmpty("t"); assert.NotNil(t, p) {
		assert.Equal(t, "t", *p)
	}
}

func TestPGDirectory_PingSQL(t *testing.T) {
	d, err := NewPGDirectory(nil, "members")
	require.NoError(t, err)
	assert.Equal(t, `SELECT 1 FROM "members" LIMIT 0`, d.pingSQL())
}
