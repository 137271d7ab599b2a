package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"vacciassist/internal/domain"
	"vacciassist/internal/schedule"
	"vacciassist/internal/session"
	"vacciassist/internal/transcript"
)

type CheckHandler struct{}

func NewCheckHandler() *CheckHandler {
	return &CheckHandler{}
}

func (h CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

type SessionHandler struct {
	store *session.Store
}

func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

func (h *SessionHandler) HandleCreate(c *fiber.Ctx) error {
	id := h.store.Create()
	return c.Status(fiber.StatusCreated).JSON(CreateSessionResponse{ID: id})
}

func (h *SessionHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.Delete(id); err != nil {
		return h.notFound(id, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	id := c.Params("id")
	var res session.UploadResult
	err = h.store.With(id, func(s *session.Session) error {
		res, err = s.Upload(c.UserContext(), filepath.Base(fileHeader.Filename), data)
		return err
	})
	if err != nil {
		return h.notFound(id, err)
	}
	return c.JSON(UploadResponse{
		Document: res.Document,
		Segments: res.Document.Segments,
		Summary:  res.Document.Summary,
		Reused:   res.Reused,
	})
}

func (h *SessionHandler) HandleAsk(c *fiber.Ctx) error {
	var params AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := params.Validate(); len(errors) > 0 {
		return NewValidationError(errors)
	}

	id := c.Params("id")
	var ans domain.Answer
	err := h.store.With(id, func(s *session.Session) error {
		var err error
		ans, err = s.Ask(c.UserContext(), params.Question)
		return err
	})
	if err != nil {
		return h.notFound(id, err)
	}

	sources := make([]Source, len(ans.Sources))
	for i, seg := range ans.Sources {
		sources[i] = Source{DocumentID: seg.DocumentID, Index: seg.Index, Text: seg.Text}
	}
	return c.JSON(AskResponse{Answer: ans.Text, Grounded: ans.Grounded, Sources: sources})
}

func (h *SessionHandler) HandleMessages(c *fiber.Ctx) error {
	id := c.Params("id")
	var resp MessagesResponse
	err := h.store.With(id, func(s *session.Session) error {
		resp.Messages = s.Messages()
		if doc, ok := s.Document(); ok {
			resp.Indexed = true
			resp.Document = &doc
		}
		return nil
	})
	if err != nil {
		return h.notFound(id, err)
	}
	return c.JSON(resp)
}

func (h *SessionHandler) HandleClear(c *fiber.Ctx) error {
	id := c.Params("id")
	err := h.store.With(id, func(s *session.Session) error {
		s.ClearHistory()
		return nil
	})
	if err != nil {
		return h.notFound(id, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) HandleTranscript(c *fiber.Ctx) error {
	var params TranscriptParams
	if c.QueryParser(&params) != nil {
		return NewError(fiber.StatusBadRequest, "invalid query")
	}
	if errors := params.Validate(); len(errors) > 0 {
		return NewValidationError(errors)
	}

	id := c.Params("id")
	var messages []domain.Message
	err := h.store.With(id, func(s *session.Session) error {
		messages = s.Messages()
		return nil
	})
	if err != nil {
		return h.notFound(id, err)
	}

	var buf bytes.Buffer
	filename := "vacciassist-transcript"
	if params.Format == "md" {
		if err := transcript.WriteMarkdown(&buf, messages); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
		filename += ".md"
	} else {
		if err := transcript.WritePDF(&buf, messages, transcript.Options{}); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		filename += ".pdf"
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

func (h *SessionHandler) notFound(id string, err error) error {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return ErrNotFound(id, "session")
	}
	return err
}

type ScheduleHandler struct {
	table *schedule.Table
	now   func() time.Time
}

func NewScheduleHandler(table *schedule.Table) *ScheduleHandler {
	return &ScheduleHandler{table: table, now: time.Now}
}

func (h *ScheduleHandler) HandleLookup(c *fiber.Ctx) error {
	var params ScheduleParams
	if c.QueryParser(&params) != nil {
		return NewError(fiber.StatusBadRequest, "invalid query")
	}
	if errors := params.Validate(); len(errors) > 0 {
		return NewValidationError(errors)
	}

	birth, err := schedule.ParseDate(params.BirthDate)
	if err != nil {
		return err
	}
	ref := h.now()
	if params.On != "" {
		if ref, err = schedule.ParseDate(params.On); err != nil {
			return err
		}
	}
	rec, err := h.table.Recommend(birth, ref)
	if err != nil {
		return err
	}
	return c.JSON(rec)
}
