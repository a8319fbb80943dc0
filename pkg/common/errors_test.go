package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewNotFoundError("evidence not found", cause)

	assert.Equal(t, http.StatusNotFound, err.Code)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "evidence not found: boom", err.Error())
	assert.Equal(t, "conflict", NewConflictError("conflict").Error())
}

func TestAppErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	AppErrorResponse(c, NewConflictError("service already running"))

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "service already running", resp.Error.Message)
}

func TestSuccessResponseWithMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SuccessResponseWithMeta(c, []string{"a"}, &Meta{Limit: 10, Total: 1})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.Meta.Total)
}
