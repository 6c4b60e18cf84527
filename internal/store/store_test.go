package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/symbols"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "gogrok.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPathUID(t *testing.T) {
	mtime := time.Date(2019, 3, 7, 15, 4, 5, 678_000_000, time.FixedZone("X", 3600))
	uid := PathUID("/proj/a.c", mtime)
	assert.Equal(t, "\x00proj\x00a.c\x0020190307140405678", uid)
}

func TestCreateSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CreateSchema(ctx, db))
	require.NoError(t, CreateSchema(ctx, db))

	var version int
	require.NoError(t, db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	for _, table := range []string{"documents", "dirs"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestCreateSchema_RejectsOtherVersion(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CreateSchema(ctx, db))
	_, err = db.Exec("UPDATE schema_version SET version = ?", SchemaVersion+1)
	require.NoError(t, err)
	assert.Error(t, CreateSchema(ctx, db))
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	content := "int main() {}\n"
	doc := Document{
		Path:        "/proj/src/main.c",
		UID:         PathUID("/proj/src/main.c", time.Unix(100, 0)),
		Type:        "c",
		Fingerprint: Fingerprint([]byte(content)),
		Content:     content,
		Tags:        []symbols.Tag{{Line: 1, Symbol: "main", Type: "function", Text: "int main() {}"}},
	}
	require.NoError(t, s.Put(ctx, doc))

	got, err := s.Get(ctx, doc.Path)
	require.NoError(t, err)
	assert.Equal(t, doc, *got)
	assert.True(t, got.Definitions().HasSymbol("main"))

	_, err = s.Get(ctx, "/proj/missing.c")
	assert.ErrorIs(t, err, ErrNotFound)

	doc.Content = "int main(void) {}\n"
	doc.Tags = nil
	require.NoError(t, s.Put(ctx, doc))
	got, err = s.Get(ctx, doc.Path)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)
	assert.Empty(t, got.Tags)
}

func TestStore_Fresh(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	uid := PathUID("/a.txt", time.Unix(100, 0))
	require.NoError(t, s.Put(ctx, Document{Path: "/a.txt", UID: uid, Content: "x"}))

	_, err := s.Fresh(ctx, "/a.txt", uid)
	require.NoError(t, err)

	stale, err := s.Fresh(ctx, "/a.txt", PathUID("/a.txt", time.Unix(200, 0)))
	assert.ErrorIs(t, err, ErrStale)
	require.NotNil(t, stale)
	assert.Equal(t, uid, stale.UID)

	_, err = s.Fresh(ctx, "/b.txt", uid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Paths(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	for _, d := range []Document{
		{Path: "/proj/src/main.c", Type: "c"},
		{Path: "/proj/src/util/str.c", Type: "c"},
		{Path: "/proj/README", Type: "plain"},
		{Path: "/other/x.go", Type: "go"},
	} {
		require.NoError(t, s.Put(ctx, d))
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"/other/x.go", "/proj/README", "/proj/src/main.c", "/proj/src/util/str.c"}},
		{"subtree", Filter{DirKey: query.DirPathKey("/proj/src")}, []string{"/proj/src/main.c", "/proj/src/util/str.c"}},
		{"root", Filter{DirKey: query.DirPathKey("/")}, []string{"/other/x.go", "/proj/README", "/proj/src/main.c", "/proj/src/util/str.c"}},
		{"type", Filter{Type: "c"}, []string{"/proj/src/main.c", "/proj/src/util/str.c"}},
		{"dir and type", Filter{DirKey: query.DirPathKey("/proj"), Type: "plain"}, []string{"/proj/README"}},
		{"nothing", Filter{DirKey: query.DirPathKey("/nope")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Paths(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	require.NoError(t, s.Delete(ctx, "/proj/src/main.c"))
	got, err := s.Paths(ctx, Filter{DirKey: query.DirPathKey("/proj/src")})
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/src/util/str.c"}, got)
	require.NoError(t, s.Delete(ctx, "/never/there"))
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"/a/b", "/a", "/"}, ancestors("/a/b/c.go"))
	assert.Equal(t, []string{"/"}, ancestors("/c.go"))
	assert.Equal(t, []string{"a", "."}, ancestors("a/c.go"))
}
