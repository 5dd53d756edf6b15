package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatdesk/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusBadRequest, "invalid payload")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "invalid payload", body.Message)
}

func TestBuildPasswordResetHTML(t *testing.T) {
	out := BuildPasswordResetHTML("<alice>", "https://app.example/reset?token=abc", time.Hour)

	assert.Contains(t, out, "https://app.example/reset?token=abc")
	assert.Contains(t, out, "&lt;alice&gt;")
	assert.Contains(t, out, "1 hour")
	assert.Contains(t, BuildPasswordResetHTML("a", "l", 30*time.Minute), "30 minutes")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.KindValidation))
	assert.Equal(t, http.StatusConflict, StatusFor(apperr.KindConflict))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(apperr.KindAuth))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperr.KindNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(apperr.KindInternal))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(""))
}
