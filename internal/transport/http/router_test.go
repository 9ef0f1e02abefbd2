package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k9aliases/backend/internal/auth"
	"k9aliases/backend/internal/config"
	"k9aliases/backend/internal/health"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/service"
	"k9aliases/backend/internal/storage/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, limits service.Limits) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
		Session: config.SessionConfig{
			Secret:     testSecret,
			TTL:        time.Hour,
			CookieName: "session_token",
		},
	}

	store := memory.NewStore()
	metrics := monitoring.NewMetrics()
	sessions := auth.NewSessionManager(store, cfg.Session.Secret, cfg.Session.TTL, nil)

	return NewRouter(RouterDependencies{
		Config:           cfg,
		AuthService:      auth.NewService(store, sessions, store, nil, metrics),
		AliasService:     service.NewAliasService(store, limits, nil, metrics),
		DomainService:    service.NewDomainService(store, limits, nil, metrics),
		UsernameService:  service.NewUsernameService(store, limits, nil, metrics),
		SettingsService:  service.NewSettingsService(store, nil, metrics),
		DashboardService: service.NewDashboardService(store, limits, nil, metrics),
		Health:           health.NewHealthChecker(store, nil),
		Metrics:          metrics,
	})
}

func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func signup(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	w, resp := doRequest(t, router, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, resp.Msg)

	var session sessionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func TestRouter_Auth(t *testing.T) {
	router := setupRouter(t, service.DefaultLimits())

	t.Run("注册后写入会话 Cookie", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "carol@example.com", "password": "password123"})
		require.Equal(t, http.StatusCreated, w.Code)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "session_token", cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	})

	t.Run("重复注册返回 409", func(t *testing.T) {
		w, resp := doRequest(t, router, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "CAROL@example.com", "password": "password123"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "This email address is already in use.", resp.Msg)
	})

	t.Run("密码错误返回 401", func(t *testing.T) {
		w, resp := doRequest(t, router, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "carol@example.com", "password": "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid email or password.", resp.Msg)
	})

	t.Run("未登录访问受保护接口", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodGet, "/v1/aliases", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("登录、查询当前用户、注销", func(t *testing.T) {
		w, resp := doRequest(t, router, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "carol@example.com", "password": "password123"})
		require.Equal(t, http.StatusOK, w.Code)
		var session sessionResponse
		require.NoError(t, json.Unmarshal(resp.Data, &session))

		w, resp = doRequest(t, router, http.MethodGet, "/v1/auth/me", session.Token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(resp.Data), "carol@example.com")

		w, _ = doRequest(t, router, http.MethodPost, "/v1/auth/logout", session.Token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w, _ = doRequest(t, router, http.MethodGet, "/v1/auth/me", session.Token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRouter_AliasLifecycle(t *testing.T) {
	router := setupRouter(t, service.Limits{ActiveAliases: 1, Domains: 1, Usernames: 1})
	token := signup(t, router, "alice@example.com")

	w, resp := doRequest(t, router, http.MethodPost, "/v1/aliases", token, gin.H{"alias": "shop@example.com", "description": "Shop"})
	require.Equal(t, http.StatusCreated, w.Code, resp.Msg)
	var alias struct {
		ID       string `json:"id"`
		IsActive bool   `json:"isActive"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &alias))
	assert.True(t, alias.IsActive)

	t.Run("超出启用配额返回 422", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodPost, "/v1/aliases", token, gin.H{"alias": "news@example.com", "description": "News"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("非法地址返回 400", func(t *testing.T) {
		w, resp := doRequest(t, router, http.MethodPost, "/v1/aliases", token, gin.H{"alias": "nope", "description": "News"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Please enter a valid email address.", resp.Msg)
	})

	t.Run("非法状态过滤返回 400", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodGet, "/v1/aliases?status=deleted", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("其他用户看不到该别名", func(t *testing.T) {
		other := signup(t, router, "bob@example.com")
		w, _ := doRequest(t, router, http.MethodDelete, "/v1/aliases/"+alias.ID, other, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("删除后恢复", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodDelete, "/v1/aliases/"+alias.ID, token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w, resp := doRequest(t, router, http.MethodGet, "/v1/aliases/counts", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"total":1,"active":0,"inactive":0,"deleted":1,"limit":1}`, string(resp.Data))

		w, resp = doRequest(t, router, http.MethodPost, "/v1/deleted-aliases/"+alias.ID+"/restore", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, resp.Msg)
	})

	t.Run("批量删除停用别名", func(t *testing.T) {
		w, resp := doRequest(t, router, http.MethodPost, "/v1/aliases/bulk/delete-inactive", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "No matching inactive aliases to delete.", resp.Msg)

		w, resp = doRequest(t, router, http.MethodPost, "/v1/aliases/bulk/deactivate", token, gin.H{"ids": []string{}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Successfully deactivated 1 alias(es).", resp.Msg)

		w, resp = doRequest(t, router, http.MethodPost, "/v1/aliases/bulk/delete-inactive", token, gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Selected inactive aliases have been moved to the deleted history.", resp.Msg)
	})

	t.Run("搜索空查询返回空列表", func(t *testing.T) {
		w, resp := doRequest(t, router, http.MethodGet, "/v1/aliases/search?q=", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"items":[],"count":0}`, string(resp.Data))
	})
}

func TestRouter_SettingsAndRegistry(t *testing.T) {
	router := setupRouter(t, service.DefaultLimits())
	token := signup(t, router, "dave@example.com")

	t.Run("主邮箱不能作为自定义用户名", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodPost, "/v1/usernames", token, gin.H{"username": "DAVE@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("添加域名", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodPost, "/v1/domains", token, gin.H{"domainName": "dave.dev"})
		require.Equal(t, http.StatusCreated, w.Code)

		w, resp := doRequest(t, router, http.MethodGet, "/v1/alias-form", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(resp.Data), "dave.dev")
	})

	t.Run("修改偏好", func(t *testing.T) {
		w, resp := doRequest(t, router, http.MethodPut, "/v1/settings/preferences", token, gin.H{"defaultAliasCount": 3, "defaultAliasLength": 16})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Application preferences updated successfully!", resp.Msg)

		w, _ = doRequest(t, router, http.MethodPut, "/v1/settings/preferences", token, gin.H{"defaultAliasCount": 9, "defaultAliasLength": 16})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("会话列表区分当前设备", func(t *testing.T) {
		w, resp := doRequest(t, router, http.MethodGet, "/v1/settings/sessions", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var list struct {
			Current map[string]any   `json:"current"`
			Others  []map[string]any `json:"others"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		assert.NotNil(t, list.Current)
		assert.Empty(t, list.Others)
	})

	t.Run("不支持的 Content-Type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/v1/profile/theme", bytes.NewReader([]byte("theme=dark")))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})
}

func TestRouter_Ops(t *testing.T) {
	router := setupRouter(t, service.DefaultLimits())

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestStatusOf(t *testing.T) {
	router := gin.New()
	router.GET("/boom", func(c *gin.Context) {
		RespondError(c, assert.AnError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), MsgInternalError)
}
