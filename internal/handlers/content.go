package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teachbridge/backend/internal/requestdata"
	"github.com/teachbridge/backend/internal/services"
)

type ContentHandler struct {
	fileService     services.FileService
	progressService services.ProgressService
}

func NewContentHandler(fileService services.FileService, progressService services.ProgressService) *ContentHandler {
	return &ContentHandler{fileService: fileService, progressService: progressService}
}

// UploadDeck accepts a multipart form with a single "file" part.
func (ch *ContentHandler) UploadDeck(c *gin.Context) {
	weekID, err := uuid.Parse(c.Param("weekId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	src, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, services.MaxDeckSizeBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	file, err := ch.fileService.UploadDeck(c.Request.Context(), weekID, fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, file)
}

func (ch *ContentHandler) ListWeekFiles(c *gin.Context) {
	weekID, err := uuid.Parse(c.Param("weekId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	files, err := ch.fileService.ListWeekFiles(c.Request.Context(), weekID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"files": files})
}

func (ch *ContentHandler) DeleteFile(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := ch.fileService.DeleteFile(c.Request.Context(), fileID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": fileID})
}

// WeekContentStatus reports each file of the week with its effective
// status for the calling teacher.
func (ch *ContentHandler) WeekContentStatus(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no identity on request"))
		return
	}
	weekID, err := uuid.Parse(c.Param("weekId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	statuses, err := ch.progressService.GetWeekContentStatus(c.Request.Context(), rd.UserID, weekID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"content": statuses})
}

func (ch *ContentHandler) MarkViewed(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no identity on request"))
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := ch.progressService.MarkViewed(c.Request.Context(), rd.UserID, fileID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"viewed": fileID})
}
