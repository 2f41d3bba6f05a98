package debt

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

func (h *Handler) mountFiles(r chi.Router) {
	r.Get("/", h.listFiles)
	r.Post("/", h.uploadFile)
	r.Get("/{fileID}", h.downloadFile)
	r.Delete("/{fileID}", h.deleteFile)
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.IDParam(r, "customerID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var year *int
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("year must be a number"))
			return
		}
		year = &y
	}
	files, err := h.files.List(r.Context(), customerID, year)
	if err != nil {
		h.fail(w, "list debt files failed", err, slog.Int64("customer_id", customerID))
		return
	}
	if files == nil {
		files = []File{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"files": files})
}

// uploadFile takes multipart fields file, year and notes.
func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.IDParam(r, "customerID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "File too large", ErrFileTooLarge.Error())
			return
		}
		httpx.RespondError(w, shared.Invalid("multipart form with a file field is required"))
		return
	}
	year, err := strconv.Atoi(r.FormValue("year"))
	if err != nil {
		httpx.RespondError(w, shared.Invalid("year must be a number"))
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, shared.Invalid("file is required"))
		return
	}
	defer part.Close()
	content, err := io.ReadAll(io.LimitReader(part, MaxFileSize+1))
	if err != nil {
		h.fail(w, "read debt file failed", err)
		return
	}

	created, err := h.files.Upload(r.Context(), FileUpload{
		CustomerID: customerID,
		Year:       year,
		FileName:   header.Filename,
		Notes:      r.FormValue("notes"),
		Content:    content,
	})
	if errors.Is(err, ErrFileTooLarge) {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "File too large", err.Error())
		return
	}
	if err != nil {
		h.fail(w, "upload debt file failed", err, slog.Int64("customer_id", customerID))
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) fileParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	customerID, err := httpx.IDParam(r, "customerID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	fileID, err := httpx.IDParam(r, "fileID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	return customerID, fileID, true
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	customerID, fileID, ok := h.fileParams(w, r)
	if !ok {
		return
	}
	f, content, err := h.files.Open(r.Context(), customerID, fileID)
	if err != nil {
		h.fail(w, "open debt file failed", err, slog.Int64("file_id", fileID))
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil && h.logger != nil {
		h.logger.Error("write debt file failed", slog.Any("error", err))
	}
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	customerID, fileID, ok := h.fileParams(w, r)
	if !ok {
		return
	}
	if err := h.files.Delete(r.Context(), customerID, fileID); err != nil {
		h.fail(w, "delete debt file failed", err, slog.Int64("file_id", fileID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
