package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultgraph/application/ports"
	pkgerrors "vaultgraph/pkg/errors"
)

var _ ports.MetadataProvider = (*FileProvider)(nil)

const jsonExport = `{
  "vault": "notes",
  "documents": [
    {"path": "A.md", "tags": ["x"], "links": [{"path": "B.md"}]},
    {"path": "B.md", "backlinks": [{"path": "A.md"}]}
  ]
}`

const yamlExport = `
- path: Projects/Plan.md
  name: The Plan
  tags: [work]
- path: Inbox.md
  links:
    - path: Projects/Plan.md
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestFileProvider_GetMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.json", jsonExport)
	writeFile(t, dir, "work.yaml", yamlExport)
	p := NewFileProvider(dir, nil)
	ctx := context.Background()

	records, err := p.GetMetadata(ctx, "notes")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A.md", records[0].Path)
	assert.Equal(t, []string{"x"}, records[0].Tags)
	require.Len(t, records[0].Links, 1)
	assert.Equal(t, "B.md", records[0].Links[0].Path)
	require.Len(t, records[1].Backlinks, 1)

	records, err = p.GetMetadata(ctx, "work")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "The Plan", records[0].Name)
	assert.Equal(t, "Projects/Plan.md", records[1].Links[0].Path)
}

func TestFileProvider_UnknownVault(t *testing.T) {
	p := NewFileProvider(t.TempDir(), nil)

	records, err := p.GetMetadata(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileProvider_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"documents": [`)
	p := NewFileProvider(dir, nil)

	_, err := p.GetMetadata(context.Background(), "broken")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))

	for _, id := range []string{"", "..", "../etc", `a\b`, ".hidden", "a:b"} {
		_, err := p.GetMetadata(context.Background(), id)
		assert.True(t, pkgerrors.IsValidation(err), "vault id %q", id)
	}
}

func TestParseExport(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "empty document", input: "", want: 0},
		{name: "object without documents", input: `{"vault": "x"}`, want: 0},
		{name: "json list", input: `[{"path": "a.md"}]`, want: 1},
		{name: "scalar root", input: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseExport([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestVaultIDFromFile(t *testing.T) {
	tests := []struct {
		path string
		id   string
		ok   bool
	}{
		{path: "/data/notes.json", id: "notes", ok: true},
		{path: "work.YAML", id: "work", ok: true},
		{path: "work.yml", id: "work", ok: true},
		{path: "notes.json.swp", ok: false},
		{path: ".notes.json", id: ".notes", ok: false},
		{path: "/data/work:old.json", id: "work:old", ok: false},
		{path: "README.md", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, ok := VaultIDFromFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.id, id)
			}
		})
	}
}
