package handlers

import (
	"net/http"

	"github.com/vgnam/Library-Management-System-sub000/middleware"
	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/services"
)

type AuthHandler struct {
	base
	secureCookie bool
}

// Login returns a handler bound to role. Both OAuth2 style form posts and
// JSON bodies are accepted.
func (h *AuthHandler) Login(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if isForm(r) {
			if err := parseForm(r); err != nil {
				badRequest(w, "Invalid form data")
				return
			}
			req.Username = r.PostForm.Get("username")
			req.Password = r.PostForm.Get("password")
		} else if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request format")
			return
		}

		res, err := h.svc.Auth.Login(r.Context(), role, req)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.TokenCookie,
			Value:    res.AccessToken,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		ok(w, res)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Auth.Logout(r.Context(), userID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	ok(w, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Auth.Me(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, u)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if isForm(r) {
		if err := parseForm(r); err != nil {
			badRequest(w, "Invalid form data")
			return
		}
		f := r.PostForm
		req = models.RegisterRequest{
			Username:   f.Get("username"),
			Email:      f.Get("email"),
			Password:   f.Get("password"),
			FullName:   f.Get("full_name"),
			DOB:        f.Get("dob"),
			Gender:     f.Get("gender"),
			Phone:      f.Get("phone"),
			Address:    f.Get("address"),
			ReaderType: f.Get("reader_type"),
		}
	} else if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}

	res, err := h.svc.Auth.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, res)
}

func (h *AuthHandler) Options(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("kind") {
	case "gender":
		ok(w, services.GenderOptions())
	case "reader-type":
		ok(w, services.ReaderTypeOptions())
	case "all":
		ok(w, services.RegistrationOptions())
	default:
		writeJSON(w, http.StatusNotFound, ErrorBody{Detail: "Not Found"})
	}
}
