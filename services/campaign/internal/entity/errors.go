package entity

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrPermission      = errors.New("permission denied")
	ErrNotFound        = errors.New("not found")
	ErrStorage         = errors.New("file storage failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrCampaignClosed  = errors.New("campaign is not accepting donations")
)
