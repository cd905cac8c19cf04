package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/storage"
	"github.com/yeremiapane/restaurant-ops/utils"
)

var uploadFolders = map[string]bool{"menu": true, "restaurants": true}

type UploadController struct {
	Store storage.BlobStore
}

func NewUploadController(store storage.BlobStore) *UploadController {
	return &UploadController{Store: store}
}

// UploadImage stores the multipart "image" field and returns its public URL.
func (uc *UploadController) UploadImage(c *gin.Context) {
	folder := c.Param("folder")
	if !uploadFolders[folder] {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unknown upload folder"))
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("image file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	url, err := uc.Store.PutImage(c.Request.Context(), folder, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Image uploaded", gin.H{"url": url})
}
