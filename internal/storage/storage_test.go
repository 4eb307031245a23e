package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highnoon/pkg/logx"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	users := openTestDB(t).Users()

	require.NoError(t, users.Create(ctx, "U1"))
	// Creating twice is a no-op.
	require.NoError(t, users.Create(ctx, "U1"))

	// New users start opted out with the default language.
	lang, err := users.Lang(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	enabled, err := users.ToggleEnabled(ctx, "U1")
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = users.ToggleEnabled(ctx, "U1")
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = users.ToggleEnabled(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, users.SetLang(ctx, "U1", "zh_tw"))
	lang, err = users.Lang(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "zh_tw", lang)

	// Unknown user reads as empty, not an error.
	lang, err = users.Lang(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, lang)

	require.NoError(t, users.Remove(ctx, "U1"))
	lang, err = users.Lang(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, lang)
}

func TestEnabledGroupedByLanguage(t *testing.T) {
	ctx := context.Background()
	users := openTestDB(t).Users()

	seed := []struct {
		id      string
		lang    string
		enabled bool
	}{
		{"U1", "en", true},
		{"U2", "en", true},
		{"U3", "zh_tw", true},
		{"U4", "zh_tw", false},
	}
	for _, u := range seed {
		require.NoError(t, users.Create(ctx, u.id))
		require.NoError(t, users.SetLang(ctx, u.id, u.lang))
		if u.enabled {
			_, err := users.ToggleEnabled(ctx, u.id)
			require.NoError(t, err)
		}
	}

	grouped, err := users.EnabledByLang(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"U1", "U2"}, grouped["en"])
	assert.ElementsMatch(t, []string{"U3"}, grouped["zh_tw"])

	all, err := users.AllByLang(ctx)
	require.NoError(t, err)
	assert.Len(t, all["zh_tw"], 2)
}

func TestQuestionCRUDAndRendering(t *testing.T) {
	ctx := context.Background()
	questions := openTestDB(t).Questions()

	id, err := questions.Create(ctx, Question{
		Subject:     "math",
		Description: "1+1=?",
		Opts:        "a) 1\nb) 2",
		Ans:         "b",
		Explanation: "basic addition",
		Details:     "see any textbook",
	})
	require.NoError(t, err)

	q, err := questions.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.Equal(t, "1+1=?\n\na) 1\nb) 2", q.Prompt())
	assert.Equal(t, "Ans:b\n\nbasic addition", q.Answer())
	assert.Contains(t, q.Full(), "see any textbook")
	assert.True(t, q.VerifyAnswer(" B "))
	assert.False(t, q.VerifyAnswer("a"))

	_, err = questions.Create(ctx, Question{Subject: "math"})
	assert.Error(t, err, "incomplete question must be rejected")

	subjects, err := questions.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"math"}, subjects)

	require.NoError(t, questions.Delete(ctx, id))
	q, err = questions.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestQuestionsBySubject(t *testing.T) {
	ctx := context.Background()
	questions := openTestDB(t).Questions()

	for subject, desc := range map[string]string{"math": "1+1=?", "logic": "p or not p?"} {
		_, err := questions.Create(ctx, Question{
			Subject: subject, Description: desc, Opts: "a) yes", Ans: "a",
		})
		require.NoError(t, err)
	}

	math, err := questions.BySubject(ctx, "math")
	require.NoError(t, err)
	require.Len(t, math, 1)
	assert.Equal(t, "1+1=?", math[0].Description)

	none, err := questions.BySubject(ctx, "botany")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRandomUnseenRotation(t *testing.T) {
	ctx := context.Background()
	questions := openTestDB(t).Questions()

	ids := map[int64]bool{}
	for i, desc := range []string{"q1", "q2", "q3"} {
		id, err := questions.Create(ctx, Question{
			Subject:     "misc",
			Description: desc,
			Opts:        "a/b",
			Ans:         "a",
		})
		require.NoError(t, err, "question %d", i)
		ids[id] = false
	}

	// Each draw returns a distinct question until the pool is exhausted.
	for i := 0; i < 3; i++ {
		q, err := questions.RandomUnseen(ctx, false)
		require.NoError(t, err)
		require.NotNil(t, q)
		assert.False(t, ids[q.ID], "question %d served twice", q.ID)
		ids[q.ID] = true
	}

	// Exhausted without reset: nothing left.
	q, err := questions.RandomUnseen(ctx, false)
	require.NoError(t, err)
	assert.Nil(t, q)

	// Exhausted with reset: rotation starts over.
	q, err = questions.RandomUnseen(ctx, true)
	require.NoError(t, err)
	assert.NotNil(t, q)

	questions.ResetSeen()
	q, err = questions.RandomUnseen(ctx, false)
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestRandomUnseenEmptyTable(t *testing.T) {
	ctx := context.Background()
	questions := openTestDB(t).Questions()

	q, err := questions.RandomUnseen(ctx, true)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{}, logx.Nop())
	assert.Error(t, err)
}
