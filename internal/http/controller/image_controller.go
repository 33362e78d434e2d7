package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/apperr"
)

const (
	imageFormField     = "image"
	multipartOverhead  = 1 << 20
	maxMultipartMemory = 1 << 20
)

// UploadImage handles the multipart upload of a product image and returns its reference.
func (pc *ProductController) UploadImage(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)
		if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(c, apperr.NewValidationError(imageFormField, "exceeds the maximum upload size"))
				return
			}
			writeError(c, apperr.NewValidationError(imageFormField, "expected a multipart form"))
			return
		}

		file, header, err := c.Request.FormFile(imageFormField)
		if err != nil {
			writeError(c, apperr.NewValidationError(imageFormField, "is required"))
			return
		}
		defer file.Close()

		// one byte past the ceiling is enough for the size check to fire
		buf, err := io.ReadAll(io.LimitReader(file, maxSize+1))
		if err != nil {
			writeError(c, apperr.NewValidationError(imageFormField, "could not be read"))
			return
		}

		ref, err := pc.productService.UploadImage(c.Request.Context(), buf, header.Filename)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"reference": ref})
	}
}
