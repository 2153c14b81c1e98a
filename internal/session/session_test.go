package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/council"
)

// useTempDir points session storage at a fresh directory.
func useTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	viper.SetConfigFile(filepath.Join(dir, "config.toml"))
	t.Cleanup(viper.Reset)
	return filepath.Join(dir, "sessions")
}

func testCouncil() *council.Council {
	return council.New([]council.AdvisorConfig{{Name: "A", Model: "m1", Role: "r"}}, "chair")
}

func TestNewSession(t *testing.T) {
	sess := NewSession(testCouncil())
	assert.Len(t, sess.ID, 36)
	assert.Equal(t, "chair", sess.ChairmanModel)
	assert.Equal(t, sess.ID[:8], sess.GetShortID())
	assert.Equal(t, sess.GetShortID(), sess.GetDisplayName())

	sess.Name = "maths"
	assert.Equal(t, "maths", sess.GetDisplayName())

	c := sess.Council()
	assert.Equal(t, "chair", c.Chairman.Model)
	assert.Equal(t, "A", c.Advisors[0].Name)
}

func TestAddTurnAndHistory(t *testing.T) {
	sess := NewSession(testCouncil())
	turn := &council.Turn{
		ID:         "t1",
		Prompt:     "What is 2+2?",
		Results:    []council.AdvisorResult{{Name: "A", Model: "m1", Content: "4", Status: council.StatusSuccess}},
		CritiqueOK: true,
	}
	sess.AddTurn(turn, "The answer is 4.")

	assert.Equal(t, 2, sess.MessageCount())
	assert.Equal(t, []backend.Message{
		{Role: backend.RoleUser, Content: "What is 2+2?"},
		{Role: backend.RoleAssistant, Content: "The answer is 4."},
	}, sess.History())
	require.Len(t, sess.Turns, 1)
	assert.Equal(t, "t1", sess.Turns[0].ID)
	assert.Equal(t, "4", sess.Turns[0].Results[0].Content)
}

func TestSaveLoadDelete(t *testing.T) {
	dir := useTempDir(t)

	got, err := GetSessionDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	sess := NewSession(testCouncil())
	sess.AddMessage(backend.RoleUser, "hi")
	require.NoError(t, SaveSession(sess))

	loaded, err := LoadSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "hi", loaded.Messages[0].Content)
	assert.Equal(t, sess.Advisors, loaded.Advisors)

	require.NoError(t, DeleteSession(sess.ID))
	_, err = LoadSession(sess.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, DeleteSession(sess.ID), ErrNotFound)
}

func TestFindSessionByPrefix(t *testing.T) {
	useTempDir(t)

	older := NewSession(testCouncil())
	older.ID = "aaaa1111-0000-0000-0000-000000000000"
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := NewSession(testCouncil())
	newer.ID = "aaaa2222-0000-0000-0000-000000000000"
	require.NoError(t, SaveSession(older))
	require.NoError(t, SaveSession(newer))

	got, err := FindSessionByPrefix("aaaa1")
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	got, err = FindSessionByPrefix(newer.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	got, err = FindSessionByPrefix("latest")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	_, err = FindSessionByPrefix("aaaa")
	var ambiguous *AmbiguousIDError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)

	_, err = FindSessionByPrefix("abc")
	assert.ErrorContains(t, err, "at least 4 characters")

	_, err = FindSessionByPrefix("ffff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLatestSessionEmpty(t *testing.T) {
	useTempDir(t)
	_, err := GetLatestSession()
	assert.ErrorContains(t, err, "no sessions found")
}

func TestSelectForDeletion(t *testing.T) {
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	old := func(id, parent string) Session {
		return Session{ID: id, ParentID: parent, CreatedAt: cutoff.AddDate(0, -1, 0)}
	}
	fresh := func(id, parent string) Session {
		return Session{ID: id, ParentID: parent, CreatedAt: cutoff.AddDate(0, 1, 0)}
	}

	sessions := []Session{
		old("p1", ""),
		fresh("c1", "p1"),
		old("p2", ""),
		old("c2", "p2"),
		fresh("x", ""),
	}

	toDelete, protected := SelectForDeletion(sessions, cutoff, false)
	assert.Equal(t, []string{"p2", "c2"}, ids(toDelete))
	assert.Equal(t, []string{"p1"}, ids(protected))

	toDelete, protected = SelectForDeletion(sessions, cutoff, true)
	assert.Len(t, toDelete, 5)
	assert.Empty(t, protected)
}

func ids(sessions []Session) []string {
	var out []string
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}

func TestAncestors(t *testing.T) {
	useTempDir(t)

	root := NewSession(testCouncil())
	mid := NewSession(testCouncil())
	mid.ParentID = root.ID
	leaf := NewSession(testCouncil())
	leaf.ParentID = mid.ID
	require.NoError(t, SaveSession(root))
	require.NoError(t, SaveSession(mid))

	chain, err := Ancestors(leaf)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, mid.ID, chain[0].ID)
	assert.Equal(t, root.ID, chain[1].ID)

	orphan := NewSession(testCouncil())
	orphan.ParentID = "missing-parent"
	chain, err = Ancestors(orphan)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "2024-03-15", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{input: "2024-03", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{input: "2024", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{input: "15/03/2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}
}
