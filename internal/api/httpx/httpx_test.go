package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordlane/cloudcrm/internal/common"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{common.ErrUnauthenticated, 401, CodeUnauthenticated},
		{common.ErrTokenExpired, 401, CodeTokenExpired},
		{common.ErrTokenMalformed, 401, CodeUnauthenticated},
		{common.ErrInvalidSignature, 401, CodeInvalidSignature},
		{common.ErrForbidden, 403, CodeForbidden},
		{common.ErrNotFound, 404, CodeNotFound},
		{common.ErrUnknownUser, 404, CodeUnknownUser},
		{common.ErrConflict, 400, CodeConflict},
		{common.ErrBadRequest, 400, CodeBadRequest},
		{common.ErrInsufficientFunds, 400, CodeInsufficientFunds},
		{fmt.Errorf("wrapped: %w", common.ErrNotFound), 404, CodeNotFound},
		{errors.New("pq: connection reset"), 500, CodeInternal},
		{fmt.Errorf("credit: %w: %w", common.ErrInternal, common.ErrNotFound), 500, CodeInternal},
	}
	for _, c := range cases {
		status, code := Classify(c.err)
		assert.Equal(t, c.status, status, c.err.Error())
		assert.Equal(t, c.code, code, c.err.Error())
	}
}

func TestWriteErr_LocalizedAndNoInternals(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.5")
	rec := httptest.NewRecorder()

	WriteErr(rec, req, errors.New("password=hunter2 db exploded"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Code)
	assert.Equal(t, "внутренняя ошибка", body.Error)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestLang(t *testing.T) {
	cases := [][2]string{
		{"", "en"},
		{"de-DE", "en"},
		{"ru", "ru"},
		{"en-US,en;q=0.9", "en"},
		{"ru-RU,ru;q=0.9", "ru"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", c[0])
		assert.Equal(t, c[1], Lang(req).String(), c[0])
	}
}

type fieldErr struct{}

func (fieldErr) Error() string { return "email: required" }
func (fieldErr) Unwrap() error { return common.ErrBadRequest }
func (fieldErr) Details() interface{} { return []string{"email"} }

func TestWriteErr_Details(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErr(rec, httptest.NewRequest(http.MethodPost, "/", nil), fieldErr{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request","code":"bad_request","details":["email"]}`, rec.Body.String())
}
