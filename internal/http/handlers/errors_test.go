package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fleetcore/internal/domain"
	"fleetcore/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func TestRespondDomainErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.ValidationError{Field: "seat", Msg: "kursi wajib dipilih"}, http.StatusBadRequest, "validation_error"},
		{"not found", domain.NotFoundError{Resource: "trip"}, http.StatusNotFound, "not_found"},
		{"seat taken", fmt.Errorf("create: %w", domain.ConflictError{Code: domain.CodeSeatTaken}), http.StatusConflict, "seat_taken"},
		{"plain conflict", domain.ConflictError{Resource: "reservation"}, http.StatusConflict, "conflict"},
		{"forbidden", domain.ForbiddenError{Action: "delete reservation"}, http.StatusForbidden, "forbidden"},
		{"internal", domain.InternalError{Err: errors.New("dial tcp: refused")}, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.RequestID())
			r.GET("/", func(c *gin.Context) { RespondDomainError(c, tc.err) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", "rid-42")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, body.Code)
			}
			if body.RequestID != "rid-42" {
				t.Fatalf("expected request_id rid-42, got %q", body.RequestID)
			}
			if tc.status == http.StatusInternalServerError && strings.Contains(w.Body.String(), "refused") {
				t.Fatalf("internal error details leaked: %s", w.Body.String())
			}
		})
	}
}

func TestBindJSONOrError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var dst struct {
			Name string `json:"name"`
		}
		if !BindJSONOrError(c, &dst) {
			return
		}
		c.String(http.StatusOK, dst.Name)
	})

	cases := []struct {
		body   string
		status int
		code   string
	}{
		{"", http.StatusBadRequest, "empty_body"},
		{"{not json", http.StatusBadRequest, "invalid_payload"},
		{`{"name":"ok"}`, http.StatusOK, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Fatalf("body %q: expected %d, got %d", tc.body, tc.status, w.Code)
		}
		if tc.code != "" && !strings.Contains(w.Body.String(), `"code":"`+tc.code+`"`) {
			t.Fatalf("body %q: expected code %s in %s", tc.body, tc.code, w.Body.String())
		}
	}
}
