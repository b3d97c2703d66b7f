package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lk2023060901/llm-gateway-client/internal/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"data":{}}`, w.Body.String())
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{"no eligible", apperrors.New(apperrors.ErrCatalogNoEligible, "task=vision"), http.StatusUnprocessableEntity, apperrors.ErrCatalogNoEligible, "No eligible model: task=vision"},
		{"upstream", apperrors.Wrap(errors.New("401 bad key"), apperrors.ErrGatewayUpstream), http.StatusBadGateway, apperrors.ErrGatewayUpstream, "Upstream request failed: 401 bad key"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrInternalServer, "Internal server error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			r := decode(t, w)
			assert.Equal(t, tt.wantCode, r.Code)
			assert.Equal(t, tt.wantMsg, r.Message)
			assert.True(t, c.IsAborted())
		})
	}
}
