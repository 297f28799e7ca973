package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dan9191/vaccine-booking/internal/forms"
	"github.com/Dan9191/vaccine-booking/internal/models"
	"github.com/Dan9191/vaccine-booking/internal/service"
)

const loginFailed = "Login unsuccessful. Please check email and password"

// SignupForm renders the empty registration form
func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "Register")
	data.Form = &forms.SignupForm{}
	h.render(w, r, http.StatusOK, "signup", data)
}

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	form := forms.ParseSignup(r)
	errs := forms.Validate(form)

	if !errs.Any() {
		_, err := h.svc.Register(r.Context(), form.Username, form.Email, form.Password)
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			errs.Add("username", "That username is taken. Please choose a different one.")
		case errors.Is(err, service.ErrEmailTaken):
			errs.Add("email", "That email is taken. Please choose a different one.")
		case err != nil:
			h.serverError(w, r, err)
			return
		default:
			h.sessions.AddFlash(w, r, models.FlashSuccess, "Your account has been created! You are now able to log in")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
	}

	data := h.page(w, r, "Register")
	data.Form = &forms.SignupForm{Username: form.Username, Email: form.Email}
	data.Errors = errs
	h.render(w, r, http.StatusOK, "signup", data)
}

// LoginForm renders the login form, keeping a pending redirect target
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "Login")
	data.Form = &forms.LoginForm{}
	data.Next = safeNext(r.URL.Query().Get("next"))
	h.render(w, r, http.StatusOK, "login", data)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	form := forms.ParseLogin(r)
	next := safeNext(r.FormValue("next"))
	errs := forms.Validate(form)

	var failed bool
	if !errs.Any() {
		user, err := h.svc.Login(r.Context(), form.Email, form.Password)
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			failed = true
		case err != nil:
			h.serverError(w, r, err)
			return
		default:
			if _, err := h.sessions.Start(r.Context(), w, user.ID, form.Remember); err != nil {
				h.serverError(w, r, err)
				return
			}
			h.sessions.AddFlash(w, r, models.FlashSuccess, fmt.Sprintf("Welcome back, %s!", user.Username))
			if next == "" {
				next = "/"
			}
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
	}

	data := h.page(w, r, "Login")
	if failed {
		data.Flashes = append(data.Flashes, models.Flash{Category: models.FlashDanger, Message: loginFailed})
	}
	data.Form = &forms.LoginForm{Email: form.Email, Remember: form.Remember}
	data.Errors = errs
	data.Next = next
	h.render(w, r, http.StatusOK, "login", data)
}

// Logout ends the session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(w, r); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.sessions.AddFlash(w, r, models.FlashInfo, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// safeNext keeps only local absolute paths; anything else becomes ""
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
