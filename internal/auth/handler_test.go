package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/truckops/truckops/internal/auth"
	"github.com/truckops/truckops/internal/shared"
)

type stubRepo struct {
	users map[int64]*auth.User
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, u auth.User) (*auth.User, error) {
	u.ID = int64(len(s.users) + 1)
	s.users[u.ID] = &u
	return &u, nil
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func newRepo(t *testing.T) *stubRepo {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubRepo{users: map[int64]*auth.User{
		1: {ID: 1, Email: "dispatch@truckops.test", Name: "Dispatch", PasswordHash: string(hashed), IsActive: true},
		2: {ID: 2, Email: "former@truckops.test", Name: "Former", PasswordHash: string(hashed), IsActive: false},
	}}
}

// sessionRouter mimics the app stack: load the session, run the route, commit.
func sessionRouter(t *testing.T, sm *shared.SessionManager, h *auth.Handler) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sm.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req.WithContext(ctx))
			require.NoError(t, sm.Commit(ctx, w, sess))
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	r.Route("/auth", h.MountRoutes)
	return r
}

func newAuthServer(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", time.Hour, false)
	svc := auth.NewService(newRepo(t)).WithHashCost(bcrypt.MinCost)
	return sessionRouter(t, sm, auth.NewHandler(nil, svc, sm))
}

func login(t *testing.T, srv http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	return postAuth(t, srv, "/auth/login", body)
}

func postAuth(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	srv.ServeHTTP(res, req)
	return res
}

func TestLoginSetsSessionAndMe(t *testing.T) {
	srv := newAuthServer(t)

	res := login(t, srv, `{"email":"dispatch@truckops.test","password":"correctpass"}`)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"name":"Dispatch"`)
	require.NotContains(t, res.Body.String(), "password")
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.AddCookie(cookies[0])
	meRes := httptest.NewRecorder()
	srv.ServeHTTP(meRes, me)
	require.Equal(t, http.StatusOK, meRes.Code)
	require.Contains(t, meRes.Body.String(), `"id":1`)

	out := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	out.AddCookie(cookies[0])
	outRes := httptest.NewRecorder()
	srv.ServeHTTP(outRes, out)
	require.Equal(t, http.StatusNoContent, outRes.Code)

	again := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	again.AddCookie(cookies[0])
	againRes := httptest.NewRecorder()
	srv.ServeHTTP(againRes, again)
	require.Equal(t, http.StatusUnauthorized, againRes.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newAuthServer(t)

	cases := map[string]string{
		"wrong password": `{"email":"dispatch@truckops.test","password":"wrongpass"}`,
		"unknown user":   `{"email":"nobody@truckops.test","password":"correctpass"}`,
		"inactive user":  `{"email":"former@truckops.test","password":"correctpass"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			res := login(t, srv, body)
			require.Equal(t, http.StatusUnauthorized, res.Code)
			require.Empty(t, res.Result().Cookies())
		})
	}
}

func TestLoginValidatesBody(t *testing.T) {
	srv := newAuthServer(t)
	res := login(t, srv, `{"email":"not-an-email","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestMeRequiresUser(t *testing.T) {
	srv := newAuthServer(t)
	res := httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestSessionActor(t *testing.T) {
	_, ok := auth.SessionActor{}.CurrentUserID(context.Background())
	require.False(t, ok)

	id, ok := auth.SessionActor{}.CurrentUserID(shared.ContextWithUserID(context.Background(), 7))
	require.True(t, ok)
	require.Equal(t, int64(7), id)
}

func TestRegisterSignsInAndAllowsLogin(t *testing.T) {
	srv := newAuthServer(t)

	res := postAuth(t, srv, "/auth/register", `{"email":" Ketoan@TruckOps.test ","password":"longenough","name":"Kế toán"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	require.Contains(t, res.Body.String(), `"email":"ketoan@truckops.test"`)
	require.NotContains(t, res.Body.String(), "password")
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.AddCookie(cookies[0])
	meRes := httptest.NewRecorder()
	srv.ServeHTTP(meRes, me)
	require.Equal(t, http.StatusOK, meRes.Code)
	require.Contains(t, meRes.Body.String(), `"name":"Kế toán"`)

	res = login(t, srv, `{"email":"ketoan@truckops.test","password":"longenough"}`)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRegisterRejectsTakenAndInvalid(t *testing.T) {
	srv := newAuthServer(t)

	res := postAuth(t, srv, "/auth/register", `{"email":"DISPATCH@truckops.test","password":"longenough"}`)
	require.Equal(t, http.StatusConflict, res.Code)
	require.Empty(t, res.Result().Cookies())

	res = postAuth(t, srv, "/auth/register", `{"email":"new@truckops.test","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = postAuth(t, srv, "/auth/register", `{"email":"nope","password":"longenough"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestRegisterDefaultsName(t *testing.T) {
	svc := auth.NewService(newRepo(t)).WithHashCost(bcrypt.MinCost)
	u, err := svc.Register(context.Background(), "ops@truckops.test", "longenough", "  ")
	require.NoError(t, err)
	require.Equal(t, "ops@truckops.test", u.Name)
	require.True(t, u.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longenough")))

	_, err = svc.Register(context.Background(), "OPS@truckops.test", "longenough", "")
	require.ErrorIs(t, err, auth.ErrEmailTaken)
}
