package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
)

// loginFailedMessage is shown for both unknown usernames and wrong
// passwords so responses do not reveal which usernames exist.
const loginFailedMessage = "Invalid username or password."

type authFormData struct {
	Username string
	Error    string
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", authFormData{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm_password")

	fail := func(msg string) {
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", authFormData{Username: username, Error: msg})
	}

	if username == "" {
		fail("Username is required.")
		return
	}
	if len(password) < core.PasswordMinLen {
		fail(fmt.Sprintf("Password must be at least %d characters.", core.PasswordMinLen))
		return
	}
	if password != confirm {
		fail("Passwords do not match.")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.ErrorContext(r.Context(), "Password hashing failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if _, err := s.repo.CreateUser(r.Context(), username, hash); err != nil {
		if errors.Is(err, core.ErrDuplicateUsername) {
			fail("That username is already taken.")
			return
		}
		logger.ErrorContext(r.Context(), "User creation failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	logger.InfoContext(r.Context(), "User registered", applog.FieldUsername, username)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", authFormData{})
}

// authenticate verifies a username/password pair. Both unknown usernames and
// wrong passwords collapse into ErrInvalidCredentials.
func (s *Server) authenticate(r *http.Request, username, password string) (core.User, error) {
	user, err := s.repo.GetUserByUsername(r.Context(), username)
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		return core.User{}, core.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	user, err := s.authenticate(r, username, password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			logger.WarnContext(r.Context(), "Login failed", applog.FieldUsername, username)
			s.render(w, r, http.StatusUnauthorized, "login.html", authFormData{Username: username, Error: loginFailedMessage})
			return
		}
		s.renderError(w, r, err)
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		logger.ErrorContext(r.Context(), "Session token generation failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	expiresAt := time.Now().UTC().Add(s.cfg.SessionTTL)
	if err := s.repo.CreateSession(r.Context(), token, user.Username, expiresAt); err != nil {
		logger.ErrorContext(r.Context(), "Session creation failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	logger.InfoContext(r.Context(), "User logged in", applog.FieldUsername, user.Username)
	http.Redirect(w, r, "/expenses", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.repo.DeleteSession(r.Context(), cookie.Value); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Session deletion failed", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/login", http.StatusFound)
}

type profileData struct {
	Username string
	JoinedAt time.Time
	Theme    string
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := CurrentIdentity(r)

	user, err := s.repo.GetUserByUsername(r.Context(), id.Username)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "profile.html", profileData{
		Username: user.Username,
		JoinedAt: user.CreatedAt,
		Theme:    themeFromRequest(r),
	})
}

// themeCookieName stores the display theme preference. It is a pure
// client-side preference, kept out of the database on purpose.
const themeCookieName = "theme"

func themeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(themeCookieName); err == nil && cookie.Value == "dark" {
		return "dark"
	}
	return "light"
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	theme := r.PostFormValue("theme")
	if theme != "dark" {
		theme = "light"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     themeCookieName,
		Value:    theme,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/profile", http.StatusFound)
}
