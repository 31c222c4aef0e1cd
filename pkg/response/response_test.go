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

	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestVersionedSetsETag(t *testing.T) {
	c, rec := newContext()
	Versioned(c, http.StatusOK, map[string]string{"theme": "dark"}, 7)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"7"`, rec.Header().Get("ETag"))
	var env struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.EqualValues(t, 7, env.Meta["version"])
}

func TestErrorUsesStatusFromAppError(t *testing.T) {
	c, rec := newContext()
	Error(c, appErrors.Clone(appErrors.ErrConflict, "nis already used"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "nis already used")

	c, rec = newContext()
	Error(c, errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, c.Errors, 1)
}

func TestAttachment(t *testing.T) {
	c, rec := newContext()
	Attachment(c, "siswa.csv", "text/csv; charset=utf-8", []byte("a;b"))
	assert.Equal(t, `attachment; filename="siswa.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "a;b", rec.Body.String())
}
