package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docassist/internal/chat"
	"docassist/internal/service"
)

type MockChat struct {
	mock.Mock
}

func (m *MockChat) Handle(ctx context.Context, st *chat.State, msg string) (chat.Reply, error) {
	args := m.Called(ctx, st, msg)
	return args.Get(0).(chat.Reply), args.Error(1)
}

type MockDocuments struct {
	mock.Mock
}

func (m *MockDocuments) IngestFile(ctx context.Context, name string, data []byte) (service.IngestReport, error) {
	args := m.Called(ctx, name, data)
	return args.Get(0).(service.IngestReport), args.Error(1)
}

func (m *MockDocuments) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDocuments) Stats(ctx context.Context) (service.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.Status), args.Error(1)
}

func newTestModel(ch *MockChat, docs *MockDocuments) Model {
	m := New(context.Background(), ch, docs, chat.NewState("tui"))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// send types text, presses enter and runs any resulting command to completion.
func send(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		return m
	}
	next, _ = m.Update(cmd())
	return next.(Model)
}

func lastEntry(m Model) entry { return m.entries[len(m.entries)-1] }

func TestChatTurn(t *testing.T) {
	ch := new(MockChat)
	ch.On("Handle", mock.Anything, mock.Anything, "What is covered?").
		Return(chat.Reply{Text: "Refunds are covered.", Route: chat.RouteQA, Sources: []string{"policy.pdf"}}, nil)
	m := newTestModel(ch, new(MockDocuments))

	m = send(t, m, "What is covered?")

	assert.False(t, m.busy)
	require.GreaterOrEqual(t, len(m.entries), 2)
	assert.Equal(t, roleUser, m.entries[len(m.entries)-2].role)
	assert.Equal(t, roleAssistant, lastEntry(m).role)
	assert.Contains(t, lastEntry(m).text, "Refunds are covered.")
	assert.Contains(t, lastEntry(m).text, "policy.pdf")
	assert.Contains(t, m.View(), "Refunds are covered.")
	ch.AssertExpectations(t)
}

func TestUploadCommand(t *testing.T) {
	docs := new(MockDocuments)
	docs.On("IngestFile", mock.Anything, "notes.txt", []byte("some notes")).
		Return(service.IngestReport{Source: "notes.txt", Chunks: 2, Upserted: 2, Summary: "Some notes."}, nil)
	m := newTestModel(new(MockChat), docs)
	m.readFile = func(path string) ([]byte, error) {
		if path == "/tmp/notes.txt" {
			return []byte("some notes"), nil
		}
		return nil, errors.New("no such file")
	}

	m = send(t, m, "/upload /tmp/notes.txt")
	assert.Contains(t, lastEntry(m).text, "Processed notes.txt")
	assert.Contains(t, lastEntry(m).text, "Some notes.")
	assert.False(t, m.busy)

	m = send(t, m, "/upload /missing.pdf")
	assert.Contains(t, lastEntry(m).text, "Could not process missing.pdf")
	docs.AssertExpectations(t)
}

func TestClearDataNeedsConfirmation(t *testing.T) {
	docs := new(MockDocuments)
	docs.On("Clear", mock.Anything).Return(nil).Once()
	m := newTestModel(new(MockChat), docs)

	m = send(t, m, "/clear-data")
	assert.True(t, m.confirmClear)
	assert.Contains(t, lastEntry(m).text, "again to confirm")
	docs.AssertNotCalled(t, "Clear", mock.Anything)

	m = send(t, m, "/help")
	assert.False(t, m.confirmClear, "any other input resets the confirmation")

	m = send(t, m, "/clear-data")
	m = send(t, m, "/clear-data")
	assert.Contains(t, lastEntry(m).text, "All data cleared")
	docs.AssertExpectations(t)
}

func TestClearChat(t *testing.T) {
	m := newTestModel(new(MockChat), new(MockDocuments))
	m.state.History = chat.AddMessage(nil, chat.RoleUser, "hi", m.state.CreatedAt)

	m = send(t, m, "/clear-chat")
	assert.Empty(t, m.state.History)
	assert.Len(t, m.entries, 1)
}

func TestQuit(t *testing.T) {
	m := newTestModel(new(MockChat), new(MockDocuments))
	m.input.SetValue("/quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSplitCommand(t *testing.T) {
	cmd, args := splitCommand("/Upload a.pdf b.txt")
	assert.Equal(t, "/upload", cmd)
	assert.Equal(t, []string{"a.pdf", "b.txt"}, args)

	cmd, args = splitCommand("hello /upload")
	assert.Empty(t, cmd)
	assert.Nil(t, args)
}
