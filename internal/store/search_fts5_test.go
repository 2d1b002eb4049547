//go:build sqlite_fts5

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/helix/internal/testutil"
)

func TestFTS5_SearchWords(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	create(t, db, "Renew passport before trip", 2, t0)
	create(t, db, "Call the café about catering", 2, t0)

	got, err := db.Search(ctx, "passport", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// remove_diacritics folds the accent.
	got, err = db.Search(ctx, "cafe", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// FTS5 operators are matched literally.
	got, err = db.Search(ctx, `passport" OR "cafe`, 10)
	require.NoError(t, err)
	require.Empty(t, got)
}
