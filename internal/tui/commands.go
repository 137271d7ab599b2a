package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vacciassist/internal/domain"
	"vacciassist/internal/schedule"
	"vacciassist/internal/session"
	"vacciassist/internal/transcript"
)

type answerMsg struct {
	answer   domain.Answer
	messages []domain.Message
	err      error
}

type uploadMsg struct {
	result session.UploadResult
	err    error
}

type exportMsg struct {
	path string
	err  error
}

func askCmd(ctx context.Context, port ChatPort, question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := port.Ask(ctx, question)
		return answerMsg{answer: ans, messages: port.Messages(), err: err}
	}
}

func uploadCmd(ctx context.Context, port ChatPort, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return uploadMsg{err: err}
		}
		res, err := port.Upload(ctx, filepath.Base(path), data)
		return uploadMsg{result: res, err: err}
	}
}

func exportCmd(path string, messages []domain.Message) tea.Cmd {
	return func() tea.Msg {
		return exportMsg{path: path, err: exportTranscript(path, messages)}
	}
}

func exportTranscript(path string, messages []domain.Message) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".md") {
		err = transcript.WriteMarkdown(f, messages)
	} else {
		err = transcript.WritePDF(f, messages, transcript.Options{})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// scheduleNotice returns the notice text and status line for /schedule.
func scheduleNotice(arg string, now time.Time) (string, string) {
	if arg == "" {
		return "", "Usage: /schedule YYYY-MM-DD"
	}
	birth, err := schedule.ParseDate(arg)
	if err != nil {
		return "", err.Error()
	}
	rec, err := schedule.PNI().Recommend(birth, now)
	if err != nil {
		return "", err.Error()
	}
	notice := fmt.Sprintf("Age: %d months\nRecommended:\n  - %s", rec.Months, strings.Join(rec.Vaccines, "\n  - "))
	return notice, "Schedule lookup done."
}
