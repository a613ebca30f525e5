package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionAndName(t *testing.T) {
	tests := []struct {
		file     string
		wantVer  int
		wantName string
		wantErr  bool
	}{
		{file: "001_initial_schema.up.sql", wantVer: 1, wantName: "initial_schema"},
		{file: "012_add_index.down.sql", wantVer: 12, wantName: "add_index"},
		{file: "003_plain.sql", wantVer: 3, wantName: "plain"},
		{file: "initial.sql", wantErr: true},
		{file: "v1_initial.sql", wantErr: true},
		{file: "_initial.sql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			ver, name, err := parseVersionAndName(tt.file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVer, ver)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestLoadMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"002_second.up.sql",
		"002_second.down.sql",
		"001_first.up.sql",
		"001_first.down.sql",
		"README.md",
		"notes.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.up.sql"), 0o755))

	files, err := loadMigrationFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Equal(t, 1, files[0].version)
	assert.Equal(t, 1, files[1].version)
	assert.Equal(t, 2, files[3].version)

	kinds := map[string]int{}
	for _, f := range files {
		kinds[f.kind]++
	}
	assert.Equal(t, map[string]int{"up": 2, "down": 2}, kinds)
}

func TestLoadMigrationFiles_MissingDir(t *testing.T) {
	_, err := loadMigrationFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
