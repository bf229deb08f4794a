package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMigrationFilesOnlyMatchesSQLAndSortsByName(t *testing.T) {
	files, err := getMigrationFiles("migrations")
	assert.NoError(t, err)
	assert.Contains(t, files, "0001_init.up.sql")
	assert.Contains(t, files, "0001_init.down.sql")
	for i := 1; i < len(files); i++ {
		assert.LessOrEqual(t, files[i-1], files[i], "migration files must be returned sorted")
	}
}
