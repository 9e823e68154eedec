package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hussainwajda/menux-go/internal/domain/venue"
)

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "12", fileSafe("12"))
	assert.Equal(t, "A-1_b.2", fileSafe("A-1_b.2"))

	// Separators and other hostile runes never reach the joined path.
	assert.Equal(t, ".._5", fileSafe("../5"))
	assert.Equal(t, "a_b_c", fileSafe(`a/b\c`))
	assert.Equal(t, "room_7", fileSafe("room 7"))
}

func TestExportPNGs_FilenamesStayInOutDir(t *testing.T) {
	dir := t.TempDir()
	entities := []venue.Entity{
		{ID: "t-1", Number: "../5", Active: true, QRURL: "https://menu.example.com/s/menu/table/t-1"},
		{ID: "t-2", Number: "6", Active: false, QRURL: "https://menu.example.com/s/menu/table/t-2"},
	}

	require.NoError(t, exportPNGs(context.Background(), entities, "table", dir, 128))

	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, names, 1, "inactive entities are not exported")
	assert.Equal(t, "table-.._5.png", names[0].Name())
}
