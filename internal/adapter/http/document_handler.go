package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"doctrack/internal/domain/document"
	"doctrack/internal/infrastructure/metrics"
	docuc "doctrack/internal/usecase/document"
)

type DocumentHandler struct{ uc *docuc.Usecase }

func NewDocumentHandler(uc *docuc.Usecase) *DocumentHandler { return &DocumentHandler{uc: uc} }

type replaceDocsReq struct {
	Docs []document.Document `json:"docs" validate:"required"`
}

type docKeyReq struct {
	Control string `param:"control" json:"control" validate:"required,ctrlno"`
}

// bindDocKey reads and checks the :control path parameter. When ok is false
// the 400 response has already been written.
func bindDocKey(c echo.Context) (cn string, ok bool, err error) {
	var req docKeyReq
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &req); err != nil {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid path"})
	}
	if err := c.Validate(&req); err != nil {
		return "", false, writeError(c, err)
	}
	return req.Control, true, nil
}

func (h *DocumentHandler) List(c echo.Context) error {
	dto, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Replace overwrites the whole collection; the last push wins.
func (h *DocumentHandler) Replace(c echo.Context) error {
	var req replaceDocsReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if err := h.uc.ReplaceAll(c.Request().Context(), docuc.ReplaceInput{Docs: req.Docs}); err != nil {
		return writeError(c, err)
	}
	metrics.CollectionPushes.Inc()
	metrics.Documents.Set(float64(len(req.Docs)))
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *DocumentHandler) Get(c echo.Context) error {
	cn, ok, err := bindDocKey(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Get(c.Request().Context(), cn)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Patch shallow-merges the body onto the stored document.
func (h *DocumentHandler) Patch(c echo.Context) error {
	cn, ok, err := bindDocKey(c)
	if !ok {
		return err
	}
	var patch map[string]json.RawMessage
	if err := c.Bind(&patch); err != nil || patch == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	dto, err := h.uc.Patch(c.Request().Context(), cn, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
