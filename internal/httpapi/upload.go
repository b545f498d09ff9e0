package httpapi

import (
	"errors"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"depthd/internal/imageio"
)

// allowedUploadExts mirrors the upload allowlist of the depth service:
// common raster formats the decoders can actually handle.
var allowedUploadExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// uploadError carries the HTTP status for a rejected upload.
type uploadError struct {
	status int
	msg    string
}

func (e uploadError) Error() string   { return e.msg }
func (e uploadError) StatusCode() int { return e.status }

// upload is a decoded multipart image upload.
type upload struct {
	image    image.Image
	filename string
}

// readUpload extracts and decodes the image file from a multipart request.
// The body is capped at the configured upload limit; oversized bodies map to
// 413, unknown extensions to 415, undecodable payloads to 400.
func readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	limit := maxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return upload{}, uploadError{http.StatusRequestEntityTooLarge, "upload exceeds size limit"}
		}
		return upload{}, uploadError{http.StatusBadRequest, "expected a multipart form upload"}
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		// the original service named the field "file"
		file, hdr, err = r.FormFile("file")
	}
	if err != nil {
		return upload{}, uploadError{http.StatusBadRequest, "missing image field in upload"}
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if !allowedUploadExts[ext] {
		return upload{}, uploadError{http.StatusUnsupportedMediaType, "unsupported image type " + ext}
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return upload{}, uploadError{http.StatusBadRequest, "unreadable upload"}
	}
	img, err := imageio.FromBytes(data)
	if err != nil {
		return upload{}, uploadError{http.StatusBadRequest, "invalid image: " + err.Error()}
	}
	return upload{image: img, filename: hdr.Filename}, nil
}
