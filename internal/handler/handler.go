package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/vaccine-booking/internal/middleware"
	"github.com/Dan9191/vaccine-booking/internal/models"
	"github.com/Dan9191/vaccine-booking/internal/repository"
	"github.com/Dan9191/vaccine-booking/internal/service"
	"github.com/Dan9191/vaccine-booking/internal/session"
	"github.com/Dan9191/vaccine-booking/internal/views"
)

type contextKey string

const userKey contextKey = "user"

type Handler struct {
	svc      *service.Service
	sessions *session.Manager
	views    *views.Renderer
	limiter  *middleware.RateLimiter
	log      *logrus.Logger
}

func NewHandler(svc *service.Service, sessions *session.Manager, renderer *views.Renderer, limiter *middleware.RateLimiter, log *logrus.Logger) *Handler {
	return &Handler{
		svc:      svc,
		sessions: sessions,
		views:    renderer,
		limiter:  limiter,
		log:      log,
	}
}

// Routes builds the site's router wrapped in request logging and panic recovery
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(h.loadUser)
	r.NotFoundHandler = h.loadUser(http.HandlerFunc(h.NotFound))
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	// Public routes
	for _, page := range views.InfoPages {
		r.Handle(page.Path, h.InfoPage(page)).Methods(http.MethodGet)
	}

	// Guest-only routes
	limited := middleware.RateLimit(h.limiter, h.log)
	r.Handle("/signup", limited(h.requireGuest(http.HandlerFunc(h.SignupForm)))).Methods(http.MethodGet)
	r.Handle("/signup", limited(h.requireGuest(http.HandlerFunc(h.Signup)))).Methods(http.MethodPost)
	r.Handle("/login", limited(h.requireGuest(http.HandlerFunc(h.LoginForm)))).Methods(http.MethodGet)
	r.Handle("/login", limited(h.requireGuest(http.HandlerFunc(h.Login)))).Methods(http.MethodPost)

	// Protected routes
	r.Handle("/logout", h.requireAuth(http.HandlerFunc(h.Logout))).Methods(http.MethodGet)
	r.Handle("/appointment", h.requireAuth(http.HandlerFunc(h.AppointmentForm))).Methods(http.MethodGet)
	r.Handle("/appointment", h.requireAuth(http.HandlerFunc(h.BookAppointment))).Methods(http.MethodPost)

	booking := r.PathPrefix("/booking").Subrouter()
	booking.Use(h.requireAuth)
	booking.HandleFunc("", h.Bookings).Methods(http.MethodGet)
	booking.HandleFunc("/export", h.ExportBookings).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = middleware.Recover(h.log, http.HandlerFunc(h.internalError))(handler)
	handler = middleware.Logging(h.log)(handler)
	return handler
}

// loadUser resolves the session cookie and stores the user in the request context
func (h *Handler) loadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.sessions.Current(r)
		if errors.Is(err, session.ErrNoSession) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			h.serverError(w, r, err)
			return
		}

		user, err := h.svc.UserByID(r.Context(), s.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			h.serverError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) == nil {
			h.sessions.AddFlash(w, r, models.FlashInfo, "Please log in to access this page.")
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey).(*models.User)
	return user
}

// page prepares the data every template needs. It consumes pending flashes,
// so it must run before anything is written to w.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, title string) *views.TemplateData {
	return &views.TemplateData{
		Title:       title,
		Path:        r.URL.Path,
		CurrentUser: currentUser(r),
		Flashes:     h.sessions.PopFlashes(w, r),
		CSRFField:   csrf.TemplateField(r),
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data *views.TemplateData) {
	if err := h.views.Render(w, status, name, data); err != nil {
		h.serverError(w, r, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Errorf("Request failed: %v", err)
	h.internalError(w, r)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request) {
	data := &views.TemplateData{Title: "Server Error", Path: r.URL.Path, CurrentUser: currentUser(r)}
	if err := h.views.Render(w, http.StatusInternalServerError, "500", data); err != nil {
		h.log.Errorf("Failed to render error page: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// NotFound renders the 404 page
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "404", h.page(w, r, "Page Not Found"))
}

// MethodNotAllowed answers a known path requested with the wrong method
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
