package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_PairsUpAndDown(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups := 0
	for _, f := range files {
		if strings.HasSuffix(f, ".up.sql") {
			ups++
			_, err := fs.Stat(FS, strings.TrimSuffix(f, ".up.sql")+".down.sql")
			assert.NoError(t, err, f)
		}
	}
	assert.Equal(t, len(files), ups*2)
}

func TestFS_CreatesVerdictTable(t *testing.T) {
	src, err := iofs.New(FS, ".")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	body, err := fs.ReadFile(FS, "000001_create_risk_verdicts.up.sql")
	require.NoError(t, err)
	sql := string(body)
	for _, col := range []string{
		"transaction_id", "user_id", "overall_score", "risk_level", "decision",
		"confidence", "recommendations", "flags", "signals", "escalated", "created_at",
	} {
		assert.Contains(t, sql, col)
	}
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS risk_verdicts")
}
