package errors

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TrackerError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("disk full"), CategoryStore, SeverityError, "write failed"),
			expected: "store (error): write failed: disk full",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.err.Error())
		})
	}
}

func TestTrackerError_WithContext(t *testing.T) {
	err := StoreFailed("sqlite", "set", stdErrors.New("locked"))
	assert.Equal(t, "sqlite", err.Context["backend"])
	assert.Equal(t, "set", err.Context["operation"])
	assert.True(t, err.Retryable)
}

func TestClassificationThroughWrapping(t *testing.T) {
	base := SchedulerFailed("daily_reset_work", stdErrors.New("boom"))
	wrapped := fmt.Errorf("arm reset: %w", base)

	assert.True(t, IsCategory(wrapped, CategoryScheduler))
	assert.False(t, IsCategory(wrapped, CategoryStore))
	assert.Equal(t, CategoryScheduler, GetCategory(wrapped))
	assert.Equal(t, CategoryInternal, GetCategory(stdErrors.New("plain")))
	assert.False(t, IsRetryable(wrapped))
	assert.True(t, IsRetryable(TransportFailed("nats://x", stdErrors.New("refused"))))
	assert.ErrorIs(t, wrapped, base.Cause)
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", stdErrors.New("x"), 1},
		{"validation", ValidationError("bad"), 2},
		{"not found", NotFound("surface"), 3},
		{"config", ConfigInvalid("goal", "must be positive"), 7},
		{"store", StoreFailed("json", "get", nil), 8},
		{"internal", InternalError("oops", nil), 10},
		{"scheduler", SchedulerFailed("job", nil), 12},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.ExitCodeFor(tc.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)

	cfgErr := ConfigInvalid("goal", "must be positive")
	assert.Equal(t, "invalid configuration", quiet.FormatError(cfgErr))
	assert.Equal(t, cfgErr.Error(), verbose.FormatError(cfgErr))
	assert.Equal(t, "store: counter store operation failed", quiet.FormatError(StoreFailed("redis", "set", nil)))
	assert.Equal(t, "Error: plain", quiet.FormatError(stdErrors.New("plain")))
	assert.Empty(t, quiet.FormatError(nil))
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", ValidationError("invalid surface id"), http.StatusBadRequest, "validation"},
		{"not found", NotFound("surface"), http.StatusNotFound, "not_found"},
		{"store", StoreFailed("redis", "get", stdErrors.New("refused")), http.StatusBadGateway, "store"},
		{"scheduler", SchedulerFailed("daily_reset_work", nil), http.StatusServiceUnavailable, "scheduler"},
		{"plain", stdErrors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
			a.WriteErrorResponse(rec, req, tc.err)

			require.Equal(t, tc.status, rec.Code)
			var body HTTPErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}
