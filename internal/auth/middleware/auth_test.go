package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
	auth "github.com/mind-engage/mindengage-p5/internal/auth/middleware"
	"github.com/mind-engage/mindengage-p5/internal/db"
	"github.com/mind-engage/mindengage-p5/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	a := auth.NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("u-1", "TEACHER")
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.Subject)
	assert.Equal(t, "teacher", c.Role)

	_, err = auth.NewAuthService("other", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	a := auth.NewAuthService("secret", time.Nanosecond)
	tok, err := a.IssueJWT("u-1", "student")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = a.Parse(tok)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := auth.NewAuthService("secret", time.Hour)
	var gotRole, gotSub string
	h := auth.JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = rbac.RoleFromContext(r.Context())
		gotSub = rbac.SubjectFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, _ := a.IssueJWT("s1", "student")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student", gotRole)
	assert.Equal(t, "s1", gotSub)
}

func newUserDB(t *testing.T) *assessment.SQLStore {
	t.Helper()
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })
	s := assessment.NewSQLStore(dbh, string(db.DriverSQLite))
	require.NoError(t, s.PutUser(ctx, assessment.User{ID: "guru-1", Name: "Bu Sari", Role: assessment.RoleTeacher}))
	return s
}

func login(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	out := map[string]string{}
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestLoginHandler(t *testing.T) {
	s := newUserDB(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia"), bcrypt.MinCost)
	require.NoError(t, err)
	a := auth.NewAuthService("secret", time.Hour)
	h := auth.LoginHandler(a, auth.LoginConfig{
		AdminUser:     "admin",
		AdminPassHash: string(hash),
		Users:         auth.SQLUserLookup{DB: s.DB()},
		DevPasswords:  true,
	})

	rec, out := login(t, h, `{"username":"admin","password":"rahasia"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", out["role"])
	c, err := a.Parse(out["access_token"])
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Subject)

	rec, _ = login(t, h, `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = login(t, h, `{"username":"guru-1","password":"guru-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "teacher", out["role"])
	assert.Equal(t, "guru-1", out["sub"])

	rec, _ = login(t, h, `{"username":"ghost","password":"ghost"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = login(t, h, `{"username":"guru-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = login(t, h, `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_NoDevPasswords(t *testing.T) {
	s := newUserDB(t)
	h := auth.LoginHandler(auth.NewAuthService("secret", time.Hour), auth.LoginConfig{
		Users: auth.SQLUserLookup{DB: s.DB()},
	})
	rec, _ := login(t, h, `{"username":"guru-1","password":"guru-1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttachRoleFromDB(t *testing.T) {
	s := newUserDB(t)
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = rbac.RoleFromContext(r.Context()) })

	serve := func(fallback bool, sub, role string) int {
		got = ""
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(rbac.WithSubject(rbac.WithRole(req.Context(), role), sub))
		rec := httptest.NewRecorder()
		auth.AttachRoleFromDB(s.DB(), fallback)(next).ServeHTTP(rec, req)
		return rec.Code
	}

	// stored role wins over the claim
	assert.Equal(t, http.StatusOK, serve(false, "guru-1", "student"))
	assert.Equal(t, "teacher", got)

	assert.Equal(t, http.StatusOK, serve(false, "admin", "admin"))
	assert.Equal(t, "admin", got)

	assert.Equal(t, http.StatusForbidden, serve(false, "ghost", "teacher"))
	assert.Equal(t, http.StatusOK, serve(true, "ghost", "teacher"))
	assert.Equal(t, "teacher", got)
}
