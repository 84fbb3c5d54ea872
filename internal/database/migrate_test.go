package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminURL(t *testing.T) {
	admin, name, err := adminURL("postgres://u:p@db:5432/apihub_support?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "apihub_support", name)
	assert.Equal(t, "postgres://u:p@db:5432/postgres?sslmode=disable", admin)

	_, _, err = adminURL("postgres://u:p@db:5432/")
	assert.Error(t, err)
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
