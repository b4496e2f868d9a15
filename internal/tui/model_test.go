package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAsker struct {
	AskFunc func(ctx context.Context, documents string, questions []string) ([]string, error)
}

func (m *mockAsker) Ask(ctx context.Context, documents string, questions []string) ([]string, error) {
	return m.AskFunc(ctx, documents, questions)
}

func submit(t *testing.T, m Model, question string) Model {
	t.Helper()
	m.input.SetValue(question)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.True(t, m.pending)
	assert.Empty(t, m.input.Value())

	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestModel_AsksAndRecordsHistory(t *testing.T) {
	asker := &mockAsker{AskFunc: func(_ context.Context, documents string, questions []string) ([]string, error) {
		assert.Equal(t, "policy.pdf", documents)
		require.Len(t, questions, 1)
		return []string{"answer to " + questions[0]}, nil
	}}
	m := New(asker, "policy.pdf")

	m = submit(t, m, "first?")
	m = submit(t, m, "second?")

	assert.False(t, m.pending)
	assert.Equal(t, []Exchange{
		{Question: "first?", Answer: "answer to first?"},
		{Question: "second?", Answer: "answer to second?"},
	}, m.History())
	assert.Equal(t, 1, m.cursor)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, next.(Model).cursor)
}

func TestModel_ErrorKeepsHistory(t *testing.T) {
	asker := &mockAsker{AskFunc: func(context.Context, string, []string) ([]string, error) {
		return nil, errors.New("server returned 403")
	}}
	m := submit(t, New(asker, "policy.pdf"), "q?")

	assert.Empty(t, m.History())
	assert.Contains(t, m.status, "server returned 403")
	assert.False(t, m.pending)
}

func TestModel_BlankQuestionIgnored(t *testing.T) {
	m := New(&mockAsker{}, "policy.pdf")
	m.input.SetValue("   ")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, next.(Model).pending)
}

func TestModel_ViewBeforeSize(t *testing.T) {
	assert.Equal(t, "Loading...", New(&mockAsker{}, "doc").View())
}

func TestModel_ViewShowsDocument(t *testing.T) {
	next, _ := New(&mockAsker{}, "policy.pdf").Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	view := next.(Model).View()
	assert.Contains(t, view, "Document Q&A")
	assert.Contains(t, view, "policy.pdf")
	assert.Contains(t, view, "No answers yet.")
}

func TestHighlightBestSentence_SingleSentenceUnstyled(t *testing.T) {
	assert.Equal(t, "The grace period is 30 days.", highlightBestSentence("The grace period is 30 days.", "grace period?"))
}
