package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type downableStore struct {
	refreshtokens.Repository
	down atomic.Bool
}

func (d *downableStore) Upsert(ctx context.Context, userID, token string) error {
	if d.down.Load() {
		return errors.New("store down")
	}
	return d.Repository.Upsert(ctx, userID, token)
}

func (d *downableStore) DeleteByToken(ctx context.Context, token string) error {
	if d.down.Load() {
		return errors.New("store down")
	}
	return d.Repository.DeleteByToken(ctx, token)
}

func (d *downableStore) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if d.down.Load() {
		return nil, errors.New("store down")
	}
	return d.Repository.Find(ctx, token)
}

type testServer struct {
	t       *testing.T
	clock   *timex.FixedClock
	users   *users.MemoryRepository
	store   *downableStore
	codec   *auth.Codec
	metrics *metrics.Metrics
	engine  *gin.Engine
}

func newTestServer(t *testing.T, production bool) *testServer {
	t.Helper()

	ts := &testServer{
		t:       t,
		clock:   timex.NewFixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		users:   users.NewMemoryRepository(),
		metrics: metrics.New(),
	}
	ts.store = &downableStore{Repository: refreshtokens.NewMemoryRepository(refreshtokens.DefaultRetention, ts.clock.Now)}

	codec, err := auth.NewCodec(auth.Keys{Access: []byte("access-key"), Refresh: []byte("refresh-key")}, auth.WithClock(ts.clock.Now))
	require.NoError(t, err)
	ts.codec = codec

	ids, err := services.NewIdentityService(ts.users, services.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	mgr := services.NewSessionManager(ids, codec, ts.store, logging.Nop{}, services.WithMetrics(ts.metrics))

	h := NewHandler(mgr, CookieWriter{
		Secure:     production,
		AccessTTL:  codec.TTL(auth.PurposeAccess),
		RefreshTTL: codec.TTL(auth.PurposeRefresh),
	}, logging.Nop{})

	ts.engine = SetupRoutes(RouterConfig{
		Handler:     h,
		Codec:       codec,
		Logger:      logging.Nop{},
		Metrics:     ts.metrics.Handler(),
		CORSOrigins: []string{"http://localhost:5173"},
	})
	return ts
}

func (ts *testServer) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	ts.t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) signup(email string) (access, refresh *http.Cookie) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/signup", `{"email":"`+email+`","password":"secret1","name":"A"}`)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return cookieFrom(rec, common.AccessTokenCookieName), cookieFrom(rec, common.RefreshTokenCookieName)
}

func (ts *testServer) login(email string) (access, refresh *http.Cookie) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/login", `{"email":"`+email+`","password":"secret1"}`)
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
	return cookieFrom(rec, common.AccessTokenCookieName), cookieFrom(rec, common.RefreshTokenCookieName)
}

// cookieFrom returns the named Set-Cookie of a response, or nil.
func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// sent strips response-only attributes so the cookie can be replayed.
func sent(c *http.Cookie) *http.Cookie {
	return &http.Cookie{Name: c.Name, Value: c.Value}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}
