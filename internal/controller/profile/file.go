package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/filecodec"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/storage"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

var objectPrefixes = map[string]string{
	model.FileKindPhoto:  "photos",
	model.FileKindResume: "resumes",
}

// acceptUpload reads, checks and stores the form file named kind. ok is false when the
// request carries no such file.
func (pc *ProfileController) acceptUpload(c *gin.Context, kind string) (model.StoredFile, bool, error) {
	rawFile, err := c.FormFile(kind)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return model.StoredFile{}, false, nil
	}
	if err != nil {
		return model.StoredFile{}, false, err
	}
	if rawFile.Size > filecodec.MaxRawBytes {
		return model.StoredFile{}, false, filecodec.ErrTooLarge
	}

	f, err := rawFile.Open()
	if err != nil {
		return model.StoredFile{}, false, fmt.Errorf("cannot open file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close uploaded file")
		}
	}()

	fileBytes, err := io.ReadAll(io.LimitReader(f, filecodec.MaxRawBytes+1))
	if err != nil {
		return model.StoredFile{}, false, fmt.Errorf("cannot read file: %w", err)
	}

	contentType, err := filecodec.Check(kind, fileBytes, rawFile.Header.Get("Content-Type"))
	if err != nil {
		return model.StoredFile{}, false, err
	}

	stored, err := pc.persistFileData(c, kind, rawFile.Filename, fileBytes, contentType)
	return stored, err == nil, err
}

// persistFileData keeps the file inline, or uploads it when a blob store is configured.
func (pc *ProfileController) persistFileData(c *gin.Context, kind, filename string, fileBytes []byte, contentType string) (model.StoredFile, error) {
	if pc.Storage == nil {
		enc, err := filecodec.EncodeInline(kind, fileBytes, contentType)
		if err != nil {
			return model.StoredFile{}, err
		}
		return model.StoredFile{Name: filename, Type: enc.Type, Base64: enc.Base64}, nil
	}

	objectName := fmt.Sprintf("%s/%s%s", objectPrefixes[kind], uuid.NewString(), filecodec.Extension(contentType))
	if err := pc.Storage.UploadFile(c.Request.Context(), objectName, bytes.NewReader(fileBytes), contentType); err != nil {
		return model.StoredFile{}, fmt.Errorf("failed to upload file: %w", err)
	}
	return model.StoredFile{Name: filename, Type: contentType, Object: &objectName}, nil
}

// GetOwnFile sends the caller's photo or resume as an attachment.
// @Summary Download own file
// @Tags File
// @Produce octet-stream
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param kind path string true "photo or resume"
// @Success 200 {string} binary "Successfully retrieve file"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 404 {object} utilities.ErrorResponse "File not found"
// @Failure 500 {object} utilities.ErrorResponse "Fail to send file content"
// @Router /seeker/files/{kind} [get]
func (pc *ProfileController) GetOwnFile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	pc.sendFile(c, user.ID, c.Param("kind"))
}

// GetUserFile sends a seeker's photo or resume to an employer they applied to, or to an admin.
// @Summary Download a seeker's file
// @Tags File
// @Produce octet-stream
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param userId path string true "Seeker ID"
// @Param kind path string true "photo or resume"
// @Success 200 {string} binary "Successfully retrieve file"
// @Failure 400 {object} utilities.ErrorResponse "Invalid user id"
// @Failure 403 {object} utilities.ErrorResponse "Seeker never applied to the caller's jobs"
// @Failure 404 {object} utilities.ErrorResponse "File not found"
// @Failure 500 {object} utilities.ErrorResponse "Fail to send file content"
// @Router /files/{userId}/{kind} [get]
func (pc *ProfileController) GetUserFile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	seekerID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid user id"})
		return
	}

	if user.Role != model.RoleAdmin {
		var applied int64
		if err := pc.DB.Model(&model.Application{}).
			Joins("JOIN jobs ON jobs.id = applications.job_id").
			Where("applications.seeker_id = ? AND jobs.employer_id = ?", seekerID, user.ID).
			Count(&applied).Error; err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to check applications: %s", err.Error()),
			})
			return
		}
		if applied == 0 {
			c.JSON(http.StatusForbidden, utilities.ErrorResponse{Error: "You are not allowed to access this file"})
			return
		}
	}

	pc.sendFile(c, seekerID, c.Param("kind"))
}

func (pc *ProfileController) sendFile(c *gin.Context, userID uuid.UUID, kind string) {
	files := model.UserFiles{}
	if err := pc.DB.Where("user_id = ?", userID).First(&files).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "File not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve file: %s", err.Error()),
		})
		return
	}

	slot, ok := files.Slot(kind)
	if !ok || !slot.Present() {
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "File not found"})
		return
	}
	pc.writeFileResponse(c, kind, slot)
}

func (pc *ProfileController) writeFileResponse(c *gin.Context, kind string, file model.StoredFile) {
	name := file.Name
	if name == "" {
		name = kind + filecodec.Extension(file.Type)
	}
	contentType := file.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if file.Object != nil {
		if pc.Storage == nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: "Cloud storage is disabled while the requested file is stored remotely",
			})
			return
		}
		reader, size, err := pc.Storage.DownloadFile(c.Request.Context(), *file.Object)
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "File not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to download file from storage: %s", err.Error()),
			})
			return
		}
		defer func() {
			if err := reader.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close storage reader")
			}
		}()

		setAttachmentHeaders(c, name, contentType)
		if size > 0 {
			c.Writer.Header().Set("Content-Length", fmt.Sprint(size))
		}
		if _, err := io.Copy(c.Writer, reader); err != nil {
			handleWriterError(c)
		}
		return
	}

	content, err := filecodec.Decode(file.Base64)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	setAttachmentHeaders(c, name, contentType)
	c.Writer.Header().Set("Content-Length", fmt.Sprint(len(content)))
	if _, err := c.Writer.Write(content); err != nil {
		handleWriterError(c)
	}
}

func setAttachmentHeaders(c *gin.Context, name, contentType string) {
	c.Writer.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Writer.Header().Set("Content-Type", contentType)
}

func handleWriterError(c *gin.Context) {
	if !c.Writer.Written() {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: "Failed to send file content",
		})
	} else {
		c.Abort()
	}
}
