package service

import (
	"github.com/dukerupert/binbill/internal/domain"
)

// Upload errors
var (
	ErrUploadNotFound = domain.Errorf(domain.ENOTFOUND, "", "Upload not found or expired")
	ErrReportNotFound = domain.Errorf(domain.ENOTFOUND, "", "This upload has no error report")
	ErrEmptyFile      = domain.Errorf(domain.EINVALID, "", "The uploaded file is empty")
	ErrNoFileName     = domain.Errorf(domain.EINVALID, "", "The uploaded file has no name")

	ErrAlreadySubmitting = domain.Errorf(domain.ECONFLICT, "upload.confirm", "This upload is already being submitted")
)
