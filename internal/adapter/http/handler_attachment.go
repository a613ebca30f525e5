package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/contractflow/contractflow/internal/adapter/http/middleware"
	"github.com/contractflow/contractflow/internal/adapter/http/response"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/infra/metrics"
	"github.com/contractflow/contractflow/internal/usecase"
	"github.com/gorilla/mux"
)

// multipartOverhead allows for form boundaries and headers around the file
const multipartOverhead = 1 << 20

// AttachmentHandler handles attachment upload and download
type AttachmentHandler struct {
	attachments *usecase.AttachmentUseCase
	authMW      *middleware.AuthMiddleware
	maxBytes    int64
	logger      logger.Logger
}

func NewAttachmentHandler(attachments *usecase.AttachmentUseCase, authMW *middleware.AuthMiddleware, maxBytes int64, log logger.Logger) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments, authMW: authMW, maxBytes: maxBytes, logger: log}
}

// RegisterRoutes registers attachment routes
func (h *AttachmentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/contracts/{id}/attachments", h.authMW.RequireAuth(h.Upload)).Methods(http.MethodPost)
	router.HandleFunc("/contracts/{id}/attachments/{attachment_id}", h.authMW.RequireAuth(h.Download)).Methods(http.MethodGet)
}

func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds the %d byte limit", h.maxBytes))
			return
		}
		response.UnprocessableEntity(w, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	attachment, err := h.attachments.Upload(r.Context(), middleware.ActorFromContext(r.Context()), usecase.UploadAttachmentRequest{
		ContractID: mux.Vars(r)["id"],
		FileName:   header.Filename,
		Content:    content,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	metrics.AttachmentBytesStored.Add(float64(attachment.FileSize))
	response.Success(w, http.StatusCreated, "Attachment uploaded successfully", toAttachmentResponse(*attachment))
}

func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	attachment, data, err := h.attachments.Download(r.Context(), middleware.ActorFromContext(r.Context()), vars["id"], vars["attachment_id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", contentDisposition(attachment.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// contentDisposition builds an attachment header that survives non-latin
// file names: a plain ASCII fallback plus the RFC 5987 encoded original.
func contentDisposition(name string) string {
	fallback := "download"
	if isPlainASCII(name) {
		fallback = name
	}
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, percentEncode(name))
}

func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= 0x7f || s[i] == '"' || s[i] == '\\' {
			return false
		}
	}
	return s != ""
}

// percentEncode escapes every byte outside the RFC 3986 unreserved set.
func percentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}
