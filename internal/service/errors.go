package service

import (
	"errors"
	"fmt"

	"github.com/godilite/milestone-server/internal/repository"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrMissingStatistics = errors.New("insufficient statistics")
	ErrChildNotFound     = errors.New("child not found")
	ErrSessionNotFound   = errors.New("answer session not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrSessionClosed     = errors.New("answer session closed")
	ErrStorageFailure    = errors.New("storage failure")
)

func errMissing(what string) error {
	return fmt.Errorf("%s must not be nil", what)
}

// storageErr maps a repository not-found to notFound and wraps anything else
// as a storage failure.
func storageErr(err, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	if isDomainErr(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

func isDomainErr(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrMissingStatistics, ErrChildNotFound, ErrSessionNotFound,
		ErrMilestoneNotFound, ErrSessionClosed, ErrStorageFailure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
