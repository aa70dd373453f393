package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *TrackerError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(field, reason string) *TrackerError {
	return New(CategoryConfig, SeverityFatal, "invalid configuration").
		WithContext("field", field).
		WithContext("reason", reason)
}

func ConfigLoadFailed(path string, cause error) *TrackerError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "failed to load configuration").
		WithContext("path", path)
}

// ValidationError creates a new validation error (400 Bad Request)
func ValidationError(message string) *TrackerError {
	return New(CategoryValidation, SeverityWarning, message)
}

func NotFound(what string) *TrackerError {
	return New(CategoryNotFound, SeverityInfo, what+" not found")
}

// Store errors

func StoreFailed(backend, operation string, cause error) *TrackerError {
	return WrapRetryable(cause, CategoryStore, SeverityError, "counter store operation failed").
		WithContext("backend", backend).
		WithContext("operation", operation)
}

func StoreUnavailable(backend string, cause error) *TrackerError {
	return WrapRetryable(cause, CategoryStore, SeverityFatal, "counter store unavailable").
		WithContext("backend", backend)
}

// History errors

func HistoryFailed(operation string, cause error) *TrackerError {
	return Wrap(cause, CategoryHistory, SeverityWarning, "history operation failed").
		WithContext("operation", operation)
}

// Scheduler errors

func SchedulerFailed(job string, cause error) *TrackerError {
	return Wrap(cause, CategoryScheduler, SeverityError, "scheduler operation failed").
		WithContext("job", job)
}

// Transport errors

func TransportFailed(url string, cause error) *TrackerError {
	return WrapRetryable(cause, CategoryTransport, SeverityWarning, "transport unavailable").
		WithContext("url", url)
}

// DaemonError creates a new daemon error (service unavailable)
func DaemonError(message string) *TrackerError {
	return New(CategoryDaemon, SeverityError, message)
}

// Internal errors

func InternalError(message string, cause error) *TrackerError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
