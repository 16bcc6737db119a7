package domain

import "errors"

var (
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrNotFound       = errors.New("not found")
	ErrNoRowsAffected = errors.New("no rows affected")

	ErrUnknownPartner      = errors.New("unknown delivery partner")
	ErrSyncInProgress      = errors.New("sync already in progress for partner")
	ErrSyncAlreadyRunning  = errors.New("sync lock is held by another worker")
	ErrInvalidTransition   = errors.New("invalid sync status transition")
	ErrEmptyLocationInput  = errors.New("location input is empty")
	ErrMissingPartnerToken = errors.New("partner token is required")
)
