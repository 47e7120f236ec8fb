package cloudinary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFolderJoinsBaseAndOwner(t *testing.T) {
	require.Equal(t, "syncmind/resources/teacher-4", Folder("/syncmind/resources/", "teacher-4"))
	require.Equal(t, "teacher-4", Folder("", "/teacher-4/"))
	require.Equal(t, "syncmind", Folder("syncmind", ""))
}

func TestPublicIDIsSanitisedAndUnique(t *testing.T) {
	first := PublicID("Kitap Listesi (2024).pdf")
	second := PublicID("Kitap Listesi (2024).pdf")

	require.Regexp(t, `^Kitap-Listesi--2024-[0-9a-f]{12}$`, first)
	require.NotEqual(t, first, second)
	require.Regexp(t, `^resource-[0-9a-f]{12}$`, PublicID("***.txt"))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
	require.False(t, Config{CloudName: "demo", APIKey: "key"}.Configured())
}
