package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Dan9191/vaccine-booking/internal/handler"
	"github.com/Dan9191/vaccine-booking/internal/middleware"
	"github.com/Dan9191/vaccine-booking/internal/repository"
	"github.com/Dan9191/vaccine-booking/internal/service"
	"github.com/Dan9191/vaccine-booking/internal/session"
	"github.com/Dan9191/vaccine-booking/internal/views"
)

type app struct {
	routes http.Handler
	store  *repository.MemoryRepository
}

func newApp(t *testing.T, burst int) *app {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := repository.NewMemoryRepository()

	svc, err := service.NewService(store, logger, nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	sessions := session.NewManager(store, session.Options{
		Secret:      []byte("0123456789abcdef0123456789abcdef"),
		TTL:         time.Hour,
		RememberTTL: 24 * time.Hour,
	}, logger)
	renderer, err := views.New()
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	limiter := middleware.NewRateLimiter(0.001, burst)

	h := handler.NewHandler(svc, sessions, renderer, limiter, logger)
	return &app{routes: h.Routes(), store: store}
}

// browser replays the cookies the app sets, like a real client would
type browser struct {
	t       *testing.T
	app     *app
	cookies map[string]string
}

func (a *app) browser(t *testing.T) *browser {
	return &browser{t: t, app: a, cookies: map[string]string{}}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	rec := httptest.NewRecorder()
	b.app.routes.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, target, form)
}

func (b *browser) signup(username, email, password string) *httptest.ResponseRecorder {
	return b.post("/signup", url.Values{
		"username":         {username},
		"email":            {email},
		"password":         {password},
		"confirm_password": {password},
	})
}

func (b *browser) login(email, password string) *httptest.ResponseRecorder {
	return b.post("/login", url.Values{"email": {email}, "password": {password}})
}

func validBooking(aadhar string) url.Values {
	return url.Values{
		"firstname": {"Asha"},
		"lastname":  {"Rao"},
		"mobile":    {"9876543210"},
		"address":   {"12 MG Road"},
		"dob":       {"1990-05-01"},
		"aadhar":    {aadhar},
		"dose":      {"first"},
		"age":       {"18-44"},
		"district":  {"Pune"},
		"location":  {"City Hospital"},
		"date":      {time.Now().AddDate(0, 0, 7).Format("2006-01-02")},
		"timeslot":  {"09:00-10:00"},
	}
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func expectBody(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("body missing %q:\n%s", want, rec.Body.String())
	}
}

func TestSignupLoginBookingFlow(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)

	expectRedirect(t, b.signup("alice", "a@x.com", "p1"), "/login")
	expectBody(t, b.get("/login"), "Your account has been created! You are now able to log in")

	expectRedirect(t, b.login("a@x.com", "p1"), "/")
	expectBody(t, b.get("/"), "Welcome back, alice!")

	rec := b.get("/booking")
	if rec.Code != http.StatusOK {
		t.Fatalf("booking list: %d", rec.Code)
	}
	expectBody(t, rec, "No bookings yet.")
}

func TestSignupRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		message  string
	}{
		{"duplicate username", "alice", "other@x.com", "That username is taken."},
		{"duplicate email", "bob", "a@x.com", "That email is taken."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(t, 100)
			b := a.browser(t)
			expectRedirect(t, b.signup("alice", "a@x.com", "p1"), "/login")

			rec := b.signup(tt.username, tt.email, "p1")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected re-render, got %d", rec.Code)
			}
			expectBody(t, rec, tt.message)
			if _, err := a.store.FindUserByUsername(context.Background(), "bob"); err != repository.ErrNotFound {
				t.Errorf("rejected signup created a user: %v", err)
			}
			if _, err := a.store.FindUserByEmail(context.Background(), "other@x.com"); err != repository.ErrNotFound {
				t.Errorf("rejected signup created a user: %v", err)
			}
		})
	}
}

func TestSignupPasswordMismatch(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)

	rec := b.post("/signup", url.Values{
		"username":         {"alice"},
		"email":            {"a@x.com"},
		"password":         {"p1"},
		"confirm_password": {"p2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-render, got %d", rec.Code)
	}
	expectBody(t, rec, "Field must be equal to password.")
	expectBody(t, rec, `value="alice"`)
	if _, err := a.store.FindUserByEmail(context.Background(), "a@x.com"); err != repository.ErrNotFound {
		t.Errorf("user created despite mismatch: %v", err)
	}
}

func TestSignupPasswordTooLongForBcrypt(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)

	rec := b.signup("alice", "a@x.com", strings.Repeat("p", 73))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-render, got %d", rec.Code)
	}
	expectBody(t, rec, "Field cannot be longer than 72 bytes.")
	if _, err := a.store.FindUserByEmail(context.Background(), "a@x.com"); err != repository.ErrNotFound {
		t.Errorf("user created with an unhashable password: %v", err)
	}

	expectRedirect(t, b.signup("alice", "a@x.com", strings.Repeat("p", 72)), "/login")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)
	expectRedirect(t, b.signup("alice", "a@x.com", "p1"), "/login")
	b.get("/login")

	wrongPw := b.login("a@x.com", "wrong")
	unknown := b.login("nobody@x.com", "p1")

	for _, rec := range []*httptest.ResponseRecorder{wrongPw, unknown} {
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		expectBody(t, rec, "Login unsuccessful. Please check email and password")
	}
	if _, ok := b.cookies[session.CookieName]; ok {
		t.Error("failed login set a session cookie")
	}
	// only the echoed email differs
	a1 := strings.ReplaceAll(wrongPw.Body.String(), "a@x.com", "")
	a2 := strings.ReplaceAll(unknown.Body.String(), "nobody@x.com", "")
	if a1 != a2 {
		t.Error("login failure responses differ")
	}
}

func TestLoginRequiredRedirects(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)

	for _, path := range []string{"/appointment", "/booking", "/booking/export", "/logout"} {
		expectRedirect(t, b.get(path), "/login?next="+url.QueryEscape(path))
	}
}

func TestLoginHonorsLocalNext(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)
	expectRedirect(t, b.signup("alice", "a@x.com", "p1"), "/login")

	expectRedirect(t, b.post("/login?next=%2Fappointment", url.Values{
		"email": {"a@x.com"}, "password": {"p1"},
	}), "/appointment")

	other := a.browser(t)
	expectRedirect(t, other.post("/login?next=%2F%2Fevil.example", url.Values{
		"email": {"a@x.com"}, "password": {"p1"},
	}), "/")
}

func TestGuestOnlyPagesRedirectWhenLoggedIn(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)
	b.signup("alice", "a@x.com", "p1")
	expectRedirect(t, b.login("a@x.com", "p1"), "/")

	expectRedirect(t, b.get("/signup"), "/")
	expectRedirect(t, b.get("/login"), "/")
}

func TestLogout(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)
	b.signup("alice", "a@x.com", "p1")
	b.login("a@x.com", "p1")

	stolen := b.cookies[session.CookieName]
	expectRedirect(t, b.get("/logout"), "/")
	expectBody(t, b.get("/"), "You have been logged out.")
	expectRedirect(t, b.get("/booking"), "/login?next=%2Fbooking")

	// the old cookie was invalidated server-side
	replay := a.browser(t)
	replay.cookies[session.CookieName] = stolen
	expectRedirect(t, replay.get("/booking"), "/login?next=%2Fbooking")
}

func TestBookingIsScopedToUser(t *testing.T) {
	a := newApp(t, 100)

	alice := a.browser(t)
	alice.signup("alice", "a@x.com", "p1")
	alice.login("a@x.com", "p1")

	bob := a.browser(t)
	bob.signup("bob", "b@x.com", "p1")
	bob.login("b@x.com", "p1")

	form := validBooking("123412341234")
	form.Set("email", "b@x.com")
	expectRedirect(t, alice.post("/appointment", form), "/booking")

	rec := alice.get("/booking")
	expectBody(t, rec, "Appointment booked for Asha Rao!")
	expectBody(t, rec, "123412341234")

	list, _ := a.store.ListAppointmentsByEmail(context.Background(), "a@x.com")
	if len(list) != 1 {
		t.Fatalf("expected exactly one row for alice, got %d", len(list))
	}

	rec = bob.get("/booking")
	expectBody(t, rec, "No bookings yet.")
	if strings.Contains(rec.Body.String(), "123412341234") {
		t.Error("bob sees alice's booking")
	}

	export := alice.get("/booking/export")
	if ct := export.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("export content type: %s", ct)
	}
	expectBody(t, export, "<aadhar>123412341234</aadhar>")
	if strings.Contains(bob.get("/booking/export").Body.String(), "123412341234") {
		t.Error("bob's export contains alice's booking")
	}
}

func TestBookingDuplicateAadhar(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)
	b.signup("alice", "a@x.com", "p1")
	b.login("a@x.com", "p1")

	expectRedirect(t, b.post("/appointment", validBooking("111122223333")), "/booking")
	rec := b.post("/appointment", validBooking("111122223333"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-render, got %d", rec.Code)
	}
	expectBody(t, rec, "An appointment is already booked for this Aadhar number.")

	list, _ := a.store.ListAppointmentsByEmail(context.Background(), "a@x.com")
	if len(list) != 1 {
		t.Errorf("expected 1 row, got %d", len(list))
	}
}

func TestBookingValidation(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)
	b.signup("alice", "a@x.com", "p1")
	b.login("a@x.com", "p1")

	form := validBooking("12345")
	form.Set("mobile", "98765abcde")
	rec := b.post("/appointment", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-render, got %d", rec.Code)
	}
	expectBody(t, rec, "Field must be exactly 12 characters long.")
	expectBody(t, rec, "Field must contain digits only.")

	past := validBooking("123412341234")
	past.Set("date", time.Now().AddDate(0, 0, -1).Format("2006-01-02"))
	expectBody(t, b.post("/appointment", past), "Date cannot be in the past.")

	list, _ := a.store.ListAppointmentsByEmail(context.Background(), "a@x.com")
	if len(list) != 0 {
		t.Errorf("invalid booking stored: %+v", list)
	}
}

func TestInfoPagesAndErrors(t *testing.T) {
	a := newApp(t, 100)
	b := a.browser(t)

	for _, p := range views.InfoPages {
		rec := b.get(p.Path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", p.Path, rec.Code)
		}
		expectBody(t, rec, "<h1>")
	}

	if rec := b.get("/no-such-page"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path: %d", rec.Code)
	}
	if rec := b.post("/booking", url.Values{}); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	a := newApp(t, 2)
	b := a.browser(t)

	b.login("a@x.com", "p1")
	b.login("a@x.com", "p1")
	rec := b.login("a@x.com", "p1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	// GETs are not limited
	if rec := b.get("/login"); rec.Code != http.StatusOK {
		t.Errorf("login form: %d", rec.Code)
	}
}
