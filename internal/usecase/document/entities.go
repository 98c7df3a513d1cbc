package document

import (
	"errors"

	domain "doctrack/internal/domain/document"
)

var ErrInvalidPatch = errors.New("invalid patch")

type ReplaceInput struct {
	Docs []domain.Document `json:"docs"`
}

type ListDTO struct {
	Docs []domain.Document `json:"docs"`
}

type DocDTO struct {
	OK  bool             `json:"ok,omitempty"`
	Doc *domain.Document `json:"doc"`
}
