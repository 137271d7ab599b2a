package server

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"vacciassist/internal/domain"
	"vacciassist/internal/session"
)

type Validater interface {
	Validate() map[string]string
}

var validate = validator.New()

func validateStruct(v any) map[string]string {
	if err := validate.Struct(v); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"request": err.Error()}
		}
		out := make(map[string]string, len(errs))
		for _, e := range errs {
			out[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return out
	}
	return nil
}

type AskParams struct {
	Question string `json:"question" validate:"required,max=4000"`
}

func (p *AskParams) Validate() map[string]string { return validateStruct(p) }

type ScheduleParams struct {
	BirthDate string `query:"birth_date" validate:"required,datetime=2006-01-02"`
	On        string `query:"on" validate:"omitempty,datetime=2006-01-02"`
}

func (p *ScheduleParams) Validate() map[string]string { return validateStruct(p) }

type TranscriptParams struct {
	Format string `query:"format" validate:"omitempty,oneof=pdf md"`
}

func (p *TranscriptParams) Validate() map[string]string { return validateStruct(p) }

type CreateSessionResponse struct {
	ID string `json:"id"`
}

type UploadResponse struct {
	Document session.DocumentInfo `json:"document"`
	Segments int                  `json:"segments"`
	Summary  string               `json:"summary,omitempty"`
	Reused   bool                 `json:"reused"`
}

type Source struct {
	DocumentID string `json:"doc_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

type AskResponse struct {
	Answer   string   `json:"answer"`
	Grounded bool     `json:"grounded"`
	Sources  []Source `json:"sources"`
}

type MessagesResponse struct {
	Messages []domain.Message     `json:"messages"`
	Indexed  bool                 `json:"indexed"`
	Document *session.DocumentInfo `json:"document,omitempty"`
}
