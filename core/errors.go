package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	StoreErrorBadInput          = "STORE_BAD_INPUT"
	StoreErrorUnsupportedSchema = "STORE_UNSUPPORTED_SCHEMA"
	StoreErrorMigrationFailed   = "STORE_MIGRATION_FAILED"
	StoreErrorUnknownBackend    = "STORE_UNKNOWN_BACKEND"
	StoreErrorNotReady          = "STORE_NOT_READY"
	StoreErrorInternal          = "STORE_INTERNAL_ERROR"
)

// StoreErrorMapper folds arbitrary errors into the store's go-errors
// envelope. Absence and business no-ops are never errors here; only
// validation, schema, and backend failures flow through this path.
func StoreErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureStoreErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "schema version") && strings.Contains(msg, "newer"):
		return NewStoreError(err.Error(), goerrors.CategoryConflict, StoreErrorUnsupportedSchema)
	case strings.Contains(msg, "migration"):
		return NewStoreError(err.Error(), goerrors.CategoryInternal, StoreErrorMigrationFailed)
	case strings.Contains(msg, "backend") && strings.Contains(msg, "not registered"):
		return NewStoreError(err.Error(), goerrors.CategoryNotFound, StoreErrorUnknownBackend)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return NewStoreError(err.Error(), goerrors.CategoryBadInput, StoreErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureStoreErrorEnvelope(mapped)
}

func NewStoreError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureStoreErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureStoreErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = storeHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultStoreTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultStoreTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return StoreErrorBadInput
	case goerrors.CategoryNotFound:
		return StoreErrorUnknownBackend
	case goerrors.CategoryConflict:
		return StoreErrorUnsupportedSchema
	case goerrors.CategoryOperation:
		return StoreErrorNotReady
	default:
		return StoreErrorInternal
	}
}

func storeHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
