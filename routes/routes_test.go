package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) *mux.Router {
	t.Helper()
	cfg := *config.Get()
	cfg.JWTSecret = "routes-test-secret"
	config.Set(&cfg)

	db, err := database.OpenSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		config.Set(nil)
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return InitRouter()
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func register(t *testing.T, r http.Handler, username string) string {
	t.Helper()
	rr, env := call(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	require.NotEmpty(t, data.RefreshToken)
	return data.AccessToken
}

func TestHealth(t *testing.T) {
	r := setup(t)
	for _, path := range []string{"/health", "/v1/health"} {
		rr, _ := call(t, r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Body.String(), `"status":"healthy"`)
	}
}

func TestPreflight(t *testing.T) {
	r := setup(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRegisterLoginAndMe(t *testing.T) {
	r := setup(t)
	token := register(t, r, "alice")

	rr, env := call(t, r, http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		Username string   `json:"username"`
		Title    string   `json:"title"`
		Badges   []string `json:"badges"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "Newbie", me.Title)

	rr, _ = call(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "secret-pass",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr, _ = call(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{"identifier": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = call(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{"identifier": "alice@example.com", "password": "secret-pass"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthRequired(t *testing.T) {
	r := setup(t)
	rr, _ := call(t, r, http.MethodGet, "/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = call(t, r, http.MethodGet, "/v1/tasks", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTaskLifecycle(t *testing.T) {
	r := setup(t)
	token := register(t, r, "bob")

	rr, env := call(t, r, http.MethodPost, "/v1/tasks", token, map[string]interface{}{"name": "Landing page", "price": "200"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var task struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, "Landing page", task.Name)

	rr, _ = call(t, r, http.MethodPost, "/v1/tasks", token, map[string]interface{}{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env = call(t, r, http.MethodGet, "/v1/tasks", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Total)

	// another user cannot see it
	other := register(t, r, "carol")
	rr, _ = call(t, r, http.MethodGet, "/v1/tasks/"+strconv.FormatUint(uint64(task.ID), 10), other, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAdminRoutesRequirePlatformAdmin(t *testing.T) {
	r := setup(t)
	token := register(t, r, "dave")
	rr, _ := call(t, r, http.MethodGet, "/v1/admin/dashboard", token, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestInviteLinkInfo_Unknown(t *testing.T) {
	r := setup(t)
	rr, env := call(t, r, http.MethodGet, "/v1/teams/join/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, env.Success)
}

func login(t *testing.T, r http.Handler, identifier string) string {
	t.Helper()
	rr, env := call(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{"identifier": identifier, "password": "secret-pass"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.AccessToken
}

func TestSaleAppearsInIncome(t *testing.T) {
	r := setup(t)
	token := register(t, r, "erin")

	rr, env := call(t, r, http.MethodPost, "/v1/products", token, map[string]interface{}{"name": "Mug", "price": "12.50", "stock": 10})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var product struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))

	rr, _ = call(t, r, http.MethodPost, "/v1/sales", token, map[string]interface{}{"product_id": product.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr, env = call(t, r, http.MethodGet, "/v1/income/entries", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var entries struct {
		Entries []struct {
			Total      string `json:"total"`
			SourceType string `json:"source_type"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries.Entries, 1)
	assert.Equal(t, "sale", entries.Entries[0].SourceType)
	assert.Equal(t, "25", entries.Entries[0].Total)

	// someone else's product reads as missing
	other := register(t, r, "frank")
	rr, _ = call(t, r, http.MethodPost, "/v1/sales", other, map[string]interface{}{"product_id": product.ID})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminLockBlocksLogin(t *testing.T) {
	r := setup(t)
	register(t, r, "root")
	register(t, r, "gina")
	require.NoError(t, database.DB.Exec("UPDATE users SET is_platform_admin = ? WHERE username = ?", true, "root").Error)
	admin := login(t, r, "root")

	var gina struct{ ID uint }
	require.NoError(t, database.DB.Table("users").Select("id").Where("username = ?", "gina").Scan(&gina).Error)
	path := "/v1/admin/users/" + strconv.FormatUint(uint64(gina.ID), 10)

	rr, _ := call(t, r, http.MethodPost, path+"/lock", admin, map[string]string{"duration": "week"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env := call(t, r, http.MethodPost, path+"/lock", admin, map[string]string{"duration": "day"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var locked struct {
		Locked bool `json:"locked"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &locked))
	assert.True(t, locked.Locked)

	rr, _ = call(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{"identifier": "gina", "password": "secret-pass"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr, _ = call(t, r, http.MethodPost, path+"/unlock", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	login(t, r, "gina")

	rr, _ = call(t, r, http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr, _ = call(t, r, http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
