package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/middleware"
	"github.com/vgnam/Library-Management-System-sub000/services"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

const maxBodyBytes = 1 << 20

// Envelope wraps every successful response.
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorBody is the failure payload.
type ErrorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: "000", Message: "OK", Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Code: "000", Message: "OK", Data: data})
}

// base carries what every handler group needs.
type base struct {
	svc    *services.Services
	logger *zap.Logger
}

// fail writes err as {"detail": ...}. Anything that is not a rule violation
// is logged and reported as a 500.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		writeJSON(w, se.Status, ErrorBody{Detail: se.Detail})
		return
	}
	b.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorBody{Detail: "Internal server error"})
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, ErrorBody{Detail: detail})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func isForm(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

func parseForm(r *http.Request) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

// intQuery parses an optional integer query parameter.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

// claims is only called behind Authenticate.
func claims(r *http.Request) *utils.Claims {
	c, _ := middleware.ClaimsFrom(r.Context())
	return c
}

func userID(r *http.Request) string {
	if c := claims(r); c != nil {
		return c.UserID()
	}
	return ""
}
