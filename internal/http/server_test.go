package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"spendtrack/internal/auth"
	"spendtrack/internal/config"
	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
	"spendtrack/internal/storage"
)

type ServerTestSuite struct {
	suite.Suite
	repo    *storage.SQLiteRepository
	server  *Server
	handler http.Handler
}

func (s *ServerTestSuite) SetupTest() {
	dbPath := filepath.Join(s.T().TempDir(), "test.db")

	repo, err := storage.NewSQLiteRepository(dbPath)
	s.Require().NoError(err)
	s.repo = repo

	cfg := &config.Config{
		Port:                   "0",
		SQLiteDBPath:           dbPath,
		SessionTTL:             time.Hour,
		SessionCleanupInterval: time.Hour,
	}

	logger := applog.New(applog.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})

	s.server = NewServer(cfg, repo, logger)
	s.handler = s.server.Handler()
}

func (s *ServerTestSuite) TearDownTest() {
	s.server.rateLimiter.stop()
	s.Require().NoError(s.repo.Close())
}

func (s *ServerTestSuite) do(method, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	r := httptest.NewRequest(method, path, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

func (s *ServerTestSuite) register(username, password string) *httptest.ResponseRecorder {
	return s.do("POST", "/register", nil, url.Values{
		"username":         {username},
		"password":         {password},
		"confirm_password": {password},
	})
}

func (s *ServerTestSuite) login(username, password string) *http.Cookie {
	w := s.do("POST", "/login", nil, url.Values{
		"username": {username},
		"password": {password},
	})
	s.Require().Equal(http.StatusFound, w.Code, "login should redirect")

	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	s.Require().FailNow("no session cookie set on login")
	return nil
}

// signup registers a user and returns a logged-in session cookie.
func (s *ServerTestSuite) signup(username string) *http.Cookie {
	w := s.register(username, "secret123")
	s.Require().Equal(http.StatusFound, w.Code, "registration should redirect")
	return s.login(username, "secret123")
}

func (s *ServerTestSuite) mustCategory(name string) core.ExpenseCategory {
	cat, err := s.repo.CreateCategory(context.Background(), core.ExpenseCategory{Name: name})
	s.Require().NoError(err)
	return cat
}

// createExpense posts the expense form and returns the new expense's id
// parsed from the redirect location.
func (s *ServerTestSuite) createExpense(cookie *http.Cookie, title, amount, date string, categoryID int64) int64 {
	w := s.do("POST", "/expenses", cookie, url.Values{
		"title":       {title},
		"amount":      {amount},
		"date":        {date},
		"category_id": {strconv.FormatInt(categoryID, 10)},
	})
	s.Require().Equal(http.StatusFound, w.Code, "expense creation should redirect: %s", w.Body.String())

	location := w.Result().Header.Get("Location")
	id, err := strconv.ParseInt(strings.TrimPrefix(location, "/expenses/"), 10, 64)
	s.Require().NoError(err, "redirect location should contain the expense id")
	return id
}

func (s *ServerTestSuite) TestRootRedirectsToExpenses() {
	w := s.do("GET", "/", nil, nil)
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/expenses", w.Result().Header.Get("Location"))
}

func (s *ServerTestSuite) TestHealthAndReadiness() {
	w := s.do("GET", "/healthz", nil, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do("GET", "/readyz", nil, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *ServerTestSuite) TestUnauthenticatedRedirectsToLogin() {
	for _, path := range []string{"/expenses", "/expenses/my", "/expenses/new", "/expenses/categories", "/profile"} {
		w := s.do("GET", path, nil, nil)
		s.Equal(http.StatusFound, w.Code, "path %s", path)
		s.Equal("/login", w.Result().Header.Get("Location"), "path %s", path)
	}
}

func (s *ServerTestSuite) TestProductsArePublic() {
	w := s.do("GET", "/products", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Lemon")
	s.Contains(w.Body.String(), "Orange")

	w = s.do("GET", "/products/3", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Banana")

	w = s.do("GET", "/products/99", nil, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestRegisterAndLogin() {
	w := s.register("alice", "secret123")
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/login", w.Result().Header.Get("Location"))

	cookie := s.login("alice", "secret123")
	s.True(cookie.HttpOnly, "session cookie must be HttpOnly")

	w = s.do("GET", "/expenses", cookie, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "alice")
}

func (s *ServerTestSuite) TestRegisterValidation() {
	w := s.do("POST", "/register", nil, url.Values{
		"username":         {"alice"},
		"password":         {"short"},
		"confirm_password": {"short"},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Contains(w.Body.String(), "at least 6 characters")

	w = s.do("POST", "/register", nil, url.Values{
		"username":         {"alice"},
		"password":         {"secret123"},
		"confirm_password": {"different1"},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Contains(w.Body.String(), "do not match")

	s.Require().Equal(http.StatusFound, s.register("alice", "secret123").Code)
	w = s.register("alice", "secret123")
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Contains(w.Body.String(), "already taken")
}

func (s *ServerTestSuite) TestLoginFailuresAreIndistinguishable() {
	s.Require().Equal(http.StatusFound, s.register("alice", "secret123").Code)

	wrongPassword := s.do("POST", "/login", nil, url.Values{
		"username": {"alice"},
		"password": {"wrong-password"},
	})
	unknownUser := s.do("POST", "/login", nil, url.Values{
		"username": {"nobody"},
		"password": {"secret123"},
	})

	s.Equal(http.StatusUnauthorized, wrongPassword.Code)
	s.Equal(http.StatusUnauthorized, unknownUser.Code)
	s.Contains(wrongPassword.Body.String(), loginFailedMessage)
	s.Contains(unknownUser.Body.String(), loginFailedMessage)
}

func (s *ServerTestSuite) TestBearerTokenAuth() {
	cookie := s.signup("alice")

	r := httptest.NewRequest("GET", "/expenses", nil)
	r.Header.Set("Authorization", "Bearer "+cookie.Value)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "alice")
}

func (s *ServerTestSuite) TestLogoutInvalidatesSession() {
	cookie := s.signup("alice")

	w := s.do("POST", "/logout", cookie, nil)
	s.Equal(http.StatusFound, w.Code)

	w = s.do("GET", "/expenses", cookie, nil)
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/login", w.Result().Header.Get("Location"))
}

func (s *ServerTestSuite) TestProfile() {
	cookie := s.signup("alice")

	w := s.do("GET", "/profile", cookie, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "alice")
	s.Contains(w.Body.String(), "Member since")
}

func (s *ServerTestSuite) TestThemePreference() {
	cookie := s.signup("alice")

	w := s.do("GET", "/profile", cookie, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `class="theme-light"`, "light is the default theme")

	w = s.do("POST", "/profile/theme", cookie, url.Values{"theme": {"dark"}})
	s.Require().Equal(http.StatusFound, w.Code)
	s.Equal("/profile", w.Result().Header.Get("Location"))

	var theme *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == themeCookieName {
			theme = c
		}
	}
	s.Require().NotNil(theme, "theme cookie must be set")
	s.Equal("dark", theme.Value)

	r := httptest.NewRequest("GET", "/profile", nil)
	r.AddCookie(cookie)
	r.AddCookie(theme)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `class="theme-dark"`)
	s.Contains(rec.Body.String(), "Switch to light theme")

	// Unknown values fall back to the default rather than round-tripping.
	w = s.do("POST", "/profile/theme", cookie, url.Values{"theme": {"neon"}})
	s.Require().Equal(http.StatusFound, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == themeCookieName {
			s.Equal("light", c.Value)
		}
	}
}

func (s *ServerTestSuite) TestCreateAndViewExpense() {
	cookie := s.signup("alice")
	cat := s.mustCategory("Food")

	id := s.createExpense(cookie, "Grocery run", "12.50", "2026-03-15", cat.ID)

	w := s.do("GET", "/expenses/"+strconv.FormatInt(id, 10), cookie, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Grocery run")
	s.Contains(w.Body.String(), "12.50")
	s.Contains(w.Body.String(), "Food")
	s.Contains(w.Body.String(), "Edit", "owner should see mutation controls")
}

func (s *ServerTestSuite) TestCreateExpenseValidation() {
	cookie := s.signup("alice")
	s.mustCategory("Food")

	w := s.do("POST", "/expenses", cookie, url.Values{
		"title":       {"Grocery run"},
		"amount":      {"not-a-number"},
		"date":        {"2026-03-15"},
		"category_id": {"1"},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Contains(w.Body.String(), "Grocery run", "submitted values should be preserved on re-render")
}

func (s *ServerTestSuite) TestExpenseListSearchAndTotal() {
	cookie := s.signup("alice")
	cat := s.mustCategory("Food")

	s.createExpense(cookie, "Grocery run", "10.00", "2026-03-01", cat.ID)
	s.createExpense(cookie, "Coffee beans", "7.25", "2026-03-02", cat.ID)
	s.createExpense(cookie, "Monthly groceries", "30.00", "2026-03-03", cat.ID)

	w := s.do("GET", "/expenses?search=grocer", cookie, nil)
	s.Equal(http.StatusOK, w.Code)

	body := w.Body.String()
	s.Contains(body, "Grocery run")
	s.Contains(body, "Monthly groceries")
	s.NotContains(body, "Coffee beans")
	s.Contains(body, "40.00", "total must cover exactly the filtered rows")
}

func (s *ServerTestSuite) TestMyExpensesScopedToOwner() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	cat := s.mustCategory("Food")

	s.createExpense(alice, "Alice lunch", "8.00", "2026-03-01", cat.ID)
	s.createExpense(bob, "Bob dinner", "15.00", "2026-03-02", cat.ID)

	w := s.do("GET", "/expenses/my", alice, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Alice lunch")
	s.NotContains(w.Body.String(), "Bob dinner")

	w = s.do("GET", "/expenses", alice, nil)
	s.Contains(w.Body.String(), "Alice lunch")
	s.Contains(w.Body.String(), "Bob dinner")
}

func (s *ServerTestSuite) TestNonOwnerCannotMutate() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	cat := s.mustCategory("Food")

	id := s.createExpense(alice, "Alice lunch", "8.00", "2026-03-01", cat.ID)
	path := "/expenses/" + strconv.FormatInt(id, 10)

	w := s.do("GET", path+"/edit", bob, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do("POST", path+"/edit", bob, url.Values{
		"title":       {"Hijacked"},
		"amount":      {"1.00"},
		"date":        {"2026-03-01"},
		"category_id": {strconv.FormatInt(cat.ID, 10)},
	})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do("POST", path+"/delete", bob, nil)
	s.Equal(http.StatusForbidden, w.Code)

	unchanged, err := s.repo.GetExpense(context.Background(), id)
	s.Require().NoError(err)
	s.Equal("Alice lunch", unchanged.Title)
	s.Equal("alice", unchanged.OwnerUsername)
}

func (s *ServerTestSuite) TestOwnerEditAndDelete() {
	cookie := s.signup("alice")
	cat := s.mustCategory("Food")

	id := s.createExpense(cookie, "Grocery run", "12.50", "2026-03-15", cat.ID)
	path := "/expenses/" + strconv.FormatInt(id, 10)

	w := s.do("POST", path+"/edit", cookie, url.Values{
		"title":       {"Weekly groceries"},
		"amount":      {"14.00"},
		"date":        {"2026-03-16"},
		"category_id": {strconv.FormatInt(cat.ID, 10)},
	})
	s.Equal(http.StatusFound, w.Code)

	w = s.do("GET", path, cookie, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Weekly groceries")
	s.Contains(w.Body.String(), "14.00")

	w = s.do("POST", path+"/delete", cookie, nil)
	s.Equal(http.StatusFound, w.Code)

	w = s.do("GET", path, cookie, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestCategoryPageAndCascadeDelete() {
	cookie := s.signup("alice")

	w := s.do("POST", "/expenses/categories", cookie, url.Values{"name": {"Food"}})
	s.Require().Equal(http.StatusFound, w.Code)

	categories, err := s.repo.ListCategories(context.Background())
	s.Require().NoError(err)
	s.Require().Len(categories, 1)
	cat := categories[0]

	id := s.createExpense(cookie, "Grocery run", "12.50", "2026-03-15", cat.ID)

	w = s.do("GET", "/expenses/categories", cookie, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Food")
	s.Contains(w.Body.String(), "12.50")

	w = s.do("POST", "/expenses/categories/"+strconv.FormatInt(cat.ID, 10)+"/delete", cookie, nil)
	s.Equal(http.StatusFound, w.Code)

	w = s.do("GET", "/expenses/"+strconv.FormatInt(id, 10), cookie, nil)
	s.Equal(http.StatusNotFound, w.Code, "expenses must be removed with their category")
}

func (s *ServerTestSuite) TestDuplicateCategoryRejected() {
	cookie := s.signup("alice")

	w := s.do("POST", "/expenses/categories", cookie, url.Values{"name": {"Food"}})
	s.Require().Equal(http.StatusFound, w.Code)

	w = s.do("POST", "/expenses/categories", cookie, url.Values{"name": {"Food"}})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *ServerTestSuite) TestRateLimitOnPosts() {
	var last *httptest.ResponseRecorder
	for i := 0; i < 61; i++ {
		last = s.do("POST", "/login", nil, url.Values{
			"username": {"nobody"},
			"password": {"wrong"},
		})
	}
	s.Equal(http.StatusTooManyRequests, last.Code)
	s.Equal("60", last.Result().Header.Get("Retry-After"))
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
