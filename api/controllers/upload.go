package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/jetfund/jetfund-backend/api/responses"
	"github.com/jetfund/jetfund-backend/internal/upload"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/logger"
)

const (
	uploadField     = "file"
	multipartMemory = 1 << 20
)

// Upload relays a multipart screenshot through the configured hops.
func Upload(svc upload.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("upload"))
			return
		}

		// multipart framing adds a little on top of the file itself
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("File is too large."))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation(upload.MsgNoFile))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation(upload.MsgNoFile))
			return
		}
		defer file.Close()

		if header.Size > maxBytes {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("File is too large."))
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read upload"))
			return
		}

		result, err := svc.Upload(r.Context(), upload.File{Filename: header.Filename, Data: data})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
