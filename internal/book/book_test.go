package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTitleQuery(t *testing.T) {
	q, err := NewTitleQuery("Atomic Habits", []string{"kennys"})
	require.NoError(t, err)
	assert.Equal(t, ByTitle, q.Mode)
	assert.Equal(t, "Atomic Habits", q.Text)
	assert.Equal(t, []string{"kennys"}, q.Stores)
}

func TestNewTitleQueryTrimsWhitespace(t *testing.T) {
	q, err := NewTitleQuery("  Atomic Habits  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Atomic Habits", q.Text)
}

func TestNewTitleQueryRejectsEmpty(t *testing.T) {
	_, err := NewTitleQuery("   ", nil)
	require.Error(t, err)
}

func TestNewISBNQueryNormalizes(t *testing.T) {
	q, err := NewISBNQuery("978-1-84794-183-1", nil)
	require.NoError(t, err)
	assert.Equal(t, ByISBN, q.Mode)
	assert.Equal(t, "9781847941831", q.Text)
}

func TestNewISBNQueryRejectsInvalid(t *testing.T) {
	_, err := NewISBNQuery("12345", nil)
	require.Error(t, err)
}

func TestCandidateWellFormed(t *testing.T) {
	assert.True(t, Candidate{Title: "A Book", Link: "/book/1"}.WellFormed())
	assert.True(t, Candidate{ISBN: "9781449373320", Link: "/book/1"}.WellFormed())
	assert.False(t, Candidate{Title: "A Book"}.WellFormed())
	assert.False(t, Candidate{Link: "/book/1"}.WellFormed())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "title", ByTitle.String())
	assert.Equal(t, "isbn", ByISBN.String())
}
