package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A.md", "A"},
		{"folder/Note.md", "folder/Note"},
		{"v1.2/Note", "v1.2/Note"},
		{"v1.2/Note.canvas", "v1.2/Note"},
		{"NoExt", "NoExt"},
		{".hidden", ".hidden"},
		{"dir/.hidden", "dir/.hidden"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripExtension(tt.in))
		})
	}
}

func TestBareName(t *testing.T) {
	assert.Equal(t, "Note", BareName("a/b/Note.md"))
	assert.Equal(t, "Note", BareName("Note.md"))
	assert.Equal(t, "Note", BareName("Note"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "md", Extension("a/Note.MD"))
	assert.Equal(t, "", Extension("a/Note"))
	assert.Equal(t, "md", NormalizeExtension(".md"))
	assert.Equal(t, "md", NormalizeExtension(" MD "))
}

func TestDecode(t *testing.T) {
	assert.Equal(t, "My Note", Decode("My%20Note"))
	assert.Equal(t, "100%", Decode("100%"))
}

func TestIsAttachmentPath(t *testing.T) {
	assert.True(t, IsAttachmentPath("Attachments/img.png"))
	assert.True(t, IsAttachmentPath("projects/Attachments/img.png"))
	assert.False(t, IsAttachmentPath("MyAttachments/img.png"))
	assert.False(t, IsAttachmentPath("notes/Attachments.md"))
}

func TestTagLabel(t *testing.T) {
	assert.Equal(t, "#x", TagLabel("x"))
	assert.Equal(t, "#x", TagLabel("#x"))
	assert.Equal(t, "", TagLabel("  "))
	assert.Equal(t, "x", NormalizeTag("#x"))
}
