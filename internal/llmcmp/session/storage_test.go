package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranscript(id string, updated time.Time) *Transcript {
	t := NewTranscript([]llmcmp.ModelIdentity{openaiGPT4o})
	t.ID = id
	t.UpdatedAt = updated
	return t
}

func TestStorage_SaveLoadDelete(t *testing.T) {
	s := NewStorage(filepath.Join(t.TempDir(), "sessions"))

	tr := NewTranscript([]llmcmp.ModelIdentity{openaiGPT4o, azureGPT4o})
	tr.Record("sess-123", []llmcmp.ModelIdentity{openaiGPT4o, azureGPT4o}, []llmcmp.Turn{
		llmcmp.NewUserTurn("hello", fixedNow),
		llmcmp.NewAssistantTurn(openaiGPT4o, "Hi!", fixedNow),
		llmcmp.NewAssistantTurn(azureGPT4o, "Hello!", fixedNow),
	})
	require.NoError(t, s.Save(tr))

	got, err := s.Load(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-123", got.RemoteID)
	assert.Equal(t, 1, got.TurnCount())
	assert.Equal(t, "hello", got.FirstPrompt())
	assert.Equal(t, "openai:GPT-4o, azure:GPT-4o", got.ModelsString())
	require.Len(t, got.Turns, 3)
	assert.Equal(t, azureGPT4o, *got.Turns[2].Model)

	info, err := os.Stat(filepath.Join(s.Dir(), tr.ID+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, s.Delete(tr.ID))
	_, err = s.Load(tr.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, s.Delete(tr.ID), ErrNotFound)
}

func TestStorage_ListSkipsCorruptAndSorts(t *testing.T) {
	s := NewStorage(t.TempDir())
	require.NoError(t, s.Save(newTranscript("aaaa-old", fixedNow.Add(-time.Hour))))
	require.NoError(t, s.Save(newTranscript("bbbb-new", fixedNow)))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0600))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bbbb-new", list[0].ID)
	assert.Equal(t, "aaaa-old", list[1].ID)
}

func TestStorage_ListMissingDir(t *testing.T) {
	list, err := NewStorage(filepath.Join(t.TempDir(), "absent")).List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStorage_FindByPrefix(t *testing.T) {
	s := NewStorage(t.TempDir())
	require.NoError(t, s.Save(newTranscript("abcd1111", fixedNow.Add(-time.Hour))))
	require.NoError(t, s.Save(newTranscript("abcd2222", fixedNow)))
	require.NoError(t, s.Save(newTranscript("ffff0000", fixedNow.Add(-2*time.Hour))))

	got, err := s.FindByPrefix("ffff")
	require.NoError(t, err)
	assert.Equal(t, "ffff0000", got.ID)

	got, err = s.FindByPrefix("latest")
	require.NoError(t, err)
	assert.Equal(t, "abcd2222", got.ID)

	_, err = s.FindByPrefix("abcd")
	var ambiguous *AmbiguousIDError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)
	assert.Contains(t, err.Error(), "llmcmp sessions list")

	_, err = s.FindByPrefix("abc")
	assert.Error(t, err)

	_, err = s.FindByPrefix("9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_LatestEmpty(t *testing.T) {
	_, err := NewStorage(t.TempDir()).Latest()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_PruneAndClear(t *testing.T) {
	s := NewStorage(t.TempDir())
	require.NoError(t, s.Save(newTranscript("old1", fixedNow.Add(-48*time.Hour))))
	require.NoError(t, s.Save(newTranscript("old2", fixedNow.Add(-25*time.Hour))))
	require.NoError(t, s.Save(newTranscript("new1", fixedNow)))

	removed, err := s.Prune(fixedNow.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new1", list[0].ID)

	removed, err = s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestTranscript_DisplayName(t *testing.T) {
	tr := newTranscript("0123456789abcdef", fixedNow)
	assert.Equal(t, "01234567", tr.GetShortID())
	assert.Equal(t, "01234567", tr.GetDisplayName())
	tr.Name = "pricing"
	assert.Equal(t, "pricing", tr.GetDisplayName())
	assert.Zero(t, tr.TurnCount())
	assert.Empty(t, tr.FirstPrompt())
}
