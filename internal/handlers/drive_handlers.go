package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/minnesingerthule/VRIL-Storage/internal/drive"
)

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

// StateHandler returns the caller's full folder and file listing.
func (h *Handler) StateHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	state, err := h.Drive.DriveState(c.Request().Context(), user)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *uint  `json:"parentId"`
}

// CreateFolderHandler creates a folder, defaulting to the root.
func (h *Handler) CreateFolderHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	var req createFolderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	folder, err := h.Drive.CreateFolder(c.Request().Context(), user, req.Name, req.ParentID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, drive.NewFolderView(*folder))
}

// UpdateFolderHandler applies a partial update (trash/move/restore/rename).
func (h *Handler) UpdateFolderHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var patch drive.FolderPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	folder, err := h.Drive.UpdateFolder(c.Request().Context(), user, id, patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, drive.NewFolderView(*folder))
}

// DeleteFolderHandler deletes a folder and its descendants.
func (h *Handler) DeleteFolderHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.Drive.DeleteFolder(c.Request().Context(), user, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadHandler accepts a multipart upload into an optional folder.
func (h *Handler) UploadHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid file"})
	}

	var folderID *uint
	if raw := c.FormValue("folderId"); raw != "" && raw != "null" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid folderId"})
		}
		fid := uint(id)
		folderID = &fid
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not open file"})
	}
	defer src.Close()

	file, err := h.Drive.UploadFile(
		c.Request().Context(),
		user,
		folderID,
		src,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, drive.NewFileView(*file))
}

// UpdateFileHandler applies a partial update (star/share/trash/move/rename).
func (h *Handler) UpdateFileHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var patch drive.FilePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	file, err := h.Drive.UpdateFile(c.Request().Context(), user, id, patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, drive.NewFileView(*file))
}

// DeleteFileHandler removes the blob and the metadata row.
func (h *Handler) DeleteFileHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.Drive.DeleteFile(c.Request().Context(), user, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DownloadHandler streams a blob to its owner or, for shared files, to
// any authenticated user.
func (h *Handler) DownloadHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	blob, file, err := h.Drive.DownloadFile(c.Request().Context(), user, id)
	if err != nil {
		return h.fail(c, err)
	}
	defer blob.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	return c.Stream(http.StatusOK, contentType, blob)
}

// SharedHandler lists every shared, non-trashed file system-wide.
func (h *Handler) SharedHandler(c echo.Context) error {
	files, err := h.Drive.SharedFiles(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, files)
}

// QuotaHandler reports the caller's storage usage.
func (h *Handler) QuotaHandler(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	quota, err := h.Drive.Quota(c.Request().Context(), user)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, quota)
}
