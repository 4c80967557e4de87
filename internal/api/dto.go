package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/photoboard/internal/index"
	"github.com/starford/photoboard/internal/models"
)

// MoveRequest is the request body for POST /api/move.
type MoveRequest struct {
	PhotoID  string `json:"photoId" example:"3f2a9c0e4b5d4e6f8a7b1c2d3e4f5a6b"`
	Category string `json:"category" example:"doing"`
}

// Validate checks that both fields are present. Category membership is
// checked separately so it can be reported as its own error.
func (m MoveRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.PhotoID, validation.Required),
		validation.Field(&m.Category, validation.Required),
	)
}

// MoveResponse wraps the catalog returned after a move.
type MoveResponse struct {
	Success bool           `json:"success"`
	Data    models.Catalog `json:"data"`
}

// UploadResponse lists the photos admitted by an upload.
type UploadResponse struct {
	Success bool           `json:"success"`
	Photos  []models.Photo `json:"photos"`
	Count   int            `json:"count"`
}

// ArchiveResponse acknowledges an archive request.
type ArchiveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message" example:"Photo archived"`
}

// HistoryResponse lists the journal rows of one photo, oldest first.
type HistoryResponse struct {
	ID          string             `json:"id"`
	Transitions []index.Transition `json:"transitions"`
}

// GapsResponse lists transitions that found no file to relocate.
type GapsResponse struct {
	Gaps []index.Transition `json:"gaps"`
}
