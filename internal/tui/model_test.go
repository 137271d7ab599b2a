package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacciassist/internal/answer"
	"vacciassist/internal/chunker"
	"vacciassist/internal/extract"
	"vacciassist/internal/mock"
	"vacciassist/internal/session"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	s := session.New(session.Deps{
		Extractor: extract.DefaultRegistry(),
		Chunker:   chunker.NewWindowChunker(chunker.DefaultSize, chunker.DefaultOverlap),
		Embedder:  mock.NewEmbedder(),
		Answerer:  answer.NewComposer(mock.NewCompleter("Two **doses**."), answer.Config{}),
	}, session.Config{Greeting: "Hi"})
	now := func() time.Time { return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC) }
	m := New(context.Background(), s, Options{Style: "ascii", Now: now})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

// submit types line and presses enter.
func submit(m Model, line string) (Model, tea.Cmd) {
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

// settle runs cmd and feeds its results back until nothing is left.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		var next []tea.Cmd
		for _, msg := range collect(cmd) {
			var out tea.Model
			var c tea.Cmd
			out, c = m.Update(msg)
			m = out.(Model)
			if c != nil {
				next = append(next, c)
			}
		}
		cmd = tea.Batch(next...)
	}
	return m
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if _, ok := msg.(spinner.TickMsg); ok {
		return nil
	}
	return []tea.Msg{msg}
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leaflet.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAskWithoutDocument(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submit(m, "What is a vaccine?")
	assert.True(t, m.busy)
	require.NotNil(t, cmd)

	m = settle(t, m, cmd)
	assert.False(t, m.busy)
	require.Len(t, m.messages, 3)
	assert.Equal(t, "What is a vaccine?", m.messages[1].Content)
	assert.Equal(t, "Answered from general knowledge.", m.status)
	assert.Contains(t, m.View(), "Vacci-Assist")
}

func TestInputRefusedWhileBusy(t *testing.T) {
	m := newTestModel(t)
	m, _ = submit(m, "first")
	m, cmd := submit(m, "second")
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "Still working")
}

func TestUploadThenGroundedAnswer(t *testing.T) {
	m := newTestModel(t)
	path := writeDoc(t, "Vaccine X requires two doses 30 days apart.")

	m, cmd := submit(m, "/upload "+path)
	m = settle(t, m, cmd)
	assert.Equal(t, "leaflet.txt", m.document)
	assert.Contains(t, m.status, "Indexed leaflet.txt (1 segments)")

	m, cmd = submit(m, "How many doses of Vaccine X?")
	m = settle(t, m, cmd)
	assert.Contains(t, m.status, "Answered from leaflet.txt")
	require.Len(t, m.sources, 1)
	assert.Contains(t, m.View(), "leaflet.txt")

	m, cmd = submit(m, "/upload "+path)
	m = settle(t, m, cmd)
	assert.Contains(t, m.status, "already indexed")
}

func TestUploadMissingFile(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submit(m, "/upload "+filepath.Join(t.TempDir(), "missing.pdf"))
	m = settle(t, m, cmd)
	assert.Contains(t, m.status, "Upload failed")
	assert.Empty(t, m.document)
}

func TestClearCommand(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submit(m, "hello")
	m = settle(t, m, cmd)
	require.Len(t, m.messages, 3)

	m, cmd = submit(m, "/clear")
	assert.Nil(t, cmd)
	require.Len(t, m.messages, 1)
	assert.Equal(t, "Hi", m.messages[0].Content)
}

func TestExportCommand(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submit(m, "hello")
	m = settle(t, m, cmd)

	out := filepath.Join(t.TempDir(), "chat.md")
	m, cmd = submit(m, "/export "+out)
	m = settle(t, m, cmd)
	assert.Equal(t, "Transcript written to "+out, m.status)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "**Patient/User:**\n\nhello")
}

func TestScheduleCommand(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submit(m, "/schedule 2025-01-15")
	assert.Nil(t, cmd)
	assert.Contains(t, m.notice, "Age: 2 months")
	assert.Contains(t, m.notice, "Penta (1ª)")

	m, _ = submit(m, "/schedule 2025-12-01")
	assert.Contains(t, m.status, "invalid birth date")
}

func TestUnknownCommand(t *testing.T) {
	m := newTestModel(t)
	m, _ = submit(m, "/frobnicate")
	assert.Contains(t, m.status, "Unknown command /frobnicate")
}

func TestFileChangeWhileBusyIsReplayed(t *testing.T) {
	m := newTestModel(t)
	path := writeDoc(t, "Two doses.")

	m, cmd := submit(m, "question")
	next, none := m.Update(FileChangedMsg{Path: path})
	m = next.(Model)
	assert.Nil(t, none)
	assert.Equal(t, path, m.pending)

	m = settle(t, m, cmd)
	assert.Empty(t, m.pending)
	assert.Equal(t, "leaflet.txt", m.document)
}

func TestHighlightBestSentence(t *testing.T) {
	sentences := []string{"Store cold.", "Two doses are required.", "See a doctor."}
	assert.Equal(t, 1, bestSentenceIndex(sentences, "how many doses required"))
	assert.Equal(t, "", highlightBestSentence("", "q"))
	assert.Equal(t, "Store cold. Two doses.", highlightBestSentence("Store cold. Two doses.", ""))

	text := "Store cold. Two doses 30 days apart"
	assert.Equal(t, []string{"Store cold.", "Two doses 30 days apart"}, splitSentences(text))
	assert.Equal(t, 1, bestSentenceIndex(splitSentences(text), "doses"))
	assert.Contains(t, highlightBestSentence(text, "doses"), "Two doses 30 days apart")
}
