package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/mail"
	"github.com/erazemk/trgovina/internal/metrics"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

const testJWTSecret = "test-secret"

// recordingMailer keeps sent messages in memory.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail.Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type testEnv struct {
	t      *testing.T
	db     *sql.DB
	server *httptest.Server
	mailer *recordingMailer

	admin      *model.User
	adminToken string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{t: t, db: db.NewTestDB(t), mailer: &recordingMailer{}}
	router := NewRouter(env.db, testJWTSecret, Options{
		TokenTTL: time.Hour,
		ResetTTL: time.Hour,
		Mailer:   env.mailer,
		BaseURL:  "http://shop.test",
	})
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)

	env.admin = env.createUser("admin@example.com", "adminpass", model.RoleAdmin)
	env.adminToken = env.login("admin@example.com", "adminpass")
	return env
}

func (e *testEnv) createUser(email, password, role string) *model.User {
	e.t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(e.t, err)
	u, err := store.CreateUser(context.Background(), e.db, "Test", "User", email, hash, role)
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) createItem(name, price string, availability int) *model.Item {
	e.t.Helper()
	item, err := store.CreateItem(context.Background(), e.db, model.Item{
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Category:     "general",
		Availability: availability,
	})
	require.NoError(e.t, err)
	return item
}

func (e *testEnv) availability(id string) int {
	e.t.Helper()
	item, err := store.GetItem(context.Background(), e.db, id)
	require.NoError(e.t, err)
	require.NotNil(e.t, item)
	return item.Availability
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	resp := e.do("POST", "/auth/login", "", map[string]string{"email": email, "password": password})
	defer resp.Body.Close()
	require.Equal(e.t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(e.t, body.Token)
	return body.Token
}

func (e *testEnv) do(method, path, token string, body any) *http.Response {
	e.t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func status(resp *http.Response) int {
	resp.Body.Close()
	return resp.StatusCode
}

func orderBody(user string, lines ...model.LineRequest) map[string]any {
	return map[string]any{"user": user, "items": lines}
}

func line(id string, qty int) model.LineRequest {
	return model.LineRequest{ItemUUID: id, Quantity: qty}
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do("POST", "/auth/login", "", map[string]string{"email": "admin@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status(resp))

	resp = env.do("POST", "/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, status(resp))

	resp = env.do("POST", "/auth/login", "", map[string]string{"email": "admin@example.com", "password": "adminpass", "extra": "x"})
	assert.Equal(t, http.StatusBadRequest, status(resp), "unknown fields are rejected")
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	assert.Equal(t, http.StatusOK, status(env.do("GET", "/orders/", env.adminToken, nil)))
	assert.Equal(t, http.StatusNoContent, status(env.do("POST", "/auth/logout", env.adminToken, nil)))
	assert.Equal(t, http.StatusUnauthorized, status(env.do("GET", "/orders/", env.adminToken, nil)))

	// A fresh login still works.
	token := env.login("admin@example.com", "adminpass")
	assert.Equal(t, http.StatusOK, status(env.do("GET", "/orders/", token, nil)))
}

func TestBasicAuth(t *testing.T) {
	env := setupTestServer(t)

	req, _ := http.NewRequest("GET", env.server.URL+"/orders/", nil)
	req.SetBasicAuth("admin@example.com", "adminpass")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status(resp))

	req, _ = http.NewRequest("GET", env.server.URL+"/orders/", nil)
	req.SetBasicAuth("admin@example.com", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status(resp))
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, status(env.do("GET", "/orders/", "", nil)))
	assert.Equal(t, http.StatusUnauthorized, status(env.do("GET", "/orders/", "garbage", nil)))
	assert.Equal(t, http.StatusOK, status(env.do("GET", "/items/", "", nil)))
	assert.Equal(t, http.StatusOK, status(env.do("GET", "/healthz", "", nil)))
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t)
	env.createUser("user1@example.com", "userpass", model.RoleUser)
	userToken := env.login("user1@example.com", "userpass")

	resp := env.do("POST", "/items/", userToken, map[string]any{"name": "Test", "price": 1, "category": "c"})
	assert.Equal(t, http.StatusForbidden, status(resp))

	assert.Equal(t, http.StatusForbidden, status(env.do("GET", "/users/", userToken, nil)))
	assert.Equal(t, http.StatusForbidden, status(env.do("GET", "/users/"+env.admin.UUID, userToken, nil)))
}

func TestDisabledUserTokenRejected(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("leaving@example.com", "userpass", model.RoleUser)
	token := env.login("leaving@example.com", "userpass")

	assert.Equal(t, http.StatusNoContent, status(env.do("DELETE", "/users/"+user.UUID, env.adminToken, nil)))
	assert.Equal(t, http.StatusUnauthorized, status(env.do("GET", "/orders/", token, nil)))
}

func TestCreateOrderReservesStock(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 2)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, resp)

	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(20)), "total %s", order.TotalPrice)
	assert.Equal(t, user.UUID, order.UserUUID)
	assert.Equal(t, 3, env.availability(a.UUID))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 10)))
	assert.Equal(t, http.StatusBadRequest, status(resp))
	assert.Equal(t, 5, env.availability(a.UUID))

	// Rejection is repeatable and leaves no trace.
	resp = env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 10)))
	assert.Equal(t, http.StatusBadRequest, status(resp))
	assert.Equal(t, 5, env.availability(a.UUID))
}

func TestModifyOrderSwapsItems(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)
	b := env.createItem("B", "4", 5)

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 2), line(b.UUID, 1)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, resp)
	require.Equal(t, 3, env.availability(a.UUID))
	require.Equal(t, 4, env.availability(b.UUID))

	resp = env.do("PUT", "/orders/"+order.UUID, env.adminToken, map[string]any{"items": []model.LineRequest{line(b.UUID, 2)}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.Order](t, resp)

	assert.True(t, updated.TotalPrice.Equal(decimal.NewFromInt(8)), "total %s", updated.TotalPrice)
	assert.Equal(t, 5, env.availability(a.UUID))
	assert.Equal(t, 3, env.availability(b.UUID))
}

func TestDeleteOrderRestoresStock(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)
	b := env.createItem("B", "4", 5)

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 2), line(b.UUID, 1)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, resp)

	assert.Equal(t, http.StatusNoContent, status(env.do("DELETE", "/orders/"+order.UUID, env.adminToken, nil)))
	assert.Equal(t, http.StatusNotFound, status(env.do("GET", "/orders/"+order.UUID, env.adminToken, nil)))
	assert.Equal(t, 5, env.availability(a.UUID))
	assert.Equal(t, 5, env.availability(b.UUID))

	assert.Equal(t, http.StatusNotFound, status(env.do("DELETE", "/orders/"+order.UUID, env.adminToken, nil)))
}

func TestCreateOrderUnknownUser(t *testing.T) {
	env := setupTestServer(t)
	a := env.createItem("A", "10", 5)

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(uuid.NewString(), line(a.UUID, 1)))
	assert.Equal(t, http.StatusBadRequest, status(resp))

	orders, err := store.ListOrders(context.Background(), env.db)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 5, env.availability(a.UUID))
}

func TestModifyOrderEmptyListRejected(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 2)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, resp)

	resp = env.do("PUT", "/orders/"+order.UUID, env.adminToken, map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, status(resp))

	resp = env.do("GET", "/orders/"+order.UUID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[model.Order](t, resp)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, 3, env.availability(a.UUID))
}

func TestModifyOrderImmutableFields(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	other := env.createUser("o@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 1)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, resp)

	items := []model.LineRequest{line(a.UUID, 2)}
	resp = env.do("PUT", "/orders/"+order.UUID, env.adminToken, map[string]any{"user": other.UUID, "items": items})
	assert.Equal(t, http.StatusBadRequest, status(resp))

	resp = env.do("PUT", "/orders/"+order.UUID, env.adminToken, map[string]any{"uuid": uuid.NewString(), "items": items})
	assert.Equal(t, http.StatusBadRequest, status(resp))

	// Repeating the current values is allowed.
	resp = env.do("PUT", "/orders/"+order.UUID, env.adminToken, map[string]any{"uuid": order.UUID, "user": user.UUID, "items": items})
	assert.Equal(t, http.StatusOK, status(resp))
	assert.Equal(t, 3, env.availability(a.UUID))

	resp = env.do("PUT", "/orders/"+uuid.NewString(), env.adminToken, map[string]any{"items": items})
	assert.Equal(t, http.StatusNotFound, status(resp))
}

func TestOrderRequestValidation(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)

	bodies := []any{
		map[string]any{"items": []model.LineRequest{line(a.UUID, 1)}},
		map[string]any{"user": user.UUID},
		map[string]any{"user": user.UUID, "items": []any{}},
		map[string]any{"user": user.UUID, "items": []any{[]any{a.UUID}}},
		map[string]any{"user": user.UUID, "items": []any{[]any{a.UUID, 0}}},
		map[string]any{"user": user.UUID, "items": []any{[]any{a.UUID, 1}, []any{a.UUID, 1}}},
		map[string]any{"user": user.UUID, "items": []any{[]any{uuid.NewString(), 1}}},
		map[string]any{"user": user.UUID, "items": []any{[]any{a.UUID, 1}}, "note": "x"},
	}
	for i, body := range bodies {
		resp := env.do("POST", "/orders/", env.adminToken, body)
		assert.Equal(t, http.StatusBadRequest, status(resp), "body %d", i)
	}
	assert.Equal(t, 5, env.availability(a.UUID))
}

func TestCreateOrderStringAndFormItems(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)

	items := `[["` + a.UUID + `", 1]]`
	resp := env.do("POST", "/orders/", env.adminToken, map[string]any{"user": user.UUID, "items": items})
	assert.Equal(t, http.StatusCreated, status(resp))

	form := url.Values{"user": {user.UUID}, "items": {items}}
	req, _ := http.NewRequest("POST", env.server.URL+"/orders/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status(resp))

	assert.Equal(t, 3, env.availability(a.UUID))
}

func TestOrderOwnership(t *testing.T) {
	env := setupTestServer(t)
	alice := env.createUser("alice@example.com", "alicepass", model.RoleUser)
	bob := env.createUser("bob@example.com", "bobspass", model.RoleUser)
	aliceToken := env.login("alice@example.com", "alicepass")
	bobToken := env.login("bob@example.com", "bobspass")
	a := env.createItem("A", "1", 10)

	// Users can only order for themselves.
	assert.Equal(t, http.StatusForbidden, status(env.do("POST", "/orders/", aliceToken, orderBody(bob.UUID, line(a.UUID, 1)))))

	resp := env.do("POST", "/orders/", aliceToken, orderBody(alice.UUID, line(a.UUID, 1)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, resp)

	assert.Equal(t, http.StatusNotFound, status(env.do("GET", "/orders/"+order.UUID, bobToken, nil)))
	assert.Equal(t, http.StatusNotFound, status(env.do("DELETE", "/orders/"+order.UUID, bobToken, nil)))
	assert.Equal(t, http.StatusOK, status(env.do("GET", "/orders/"+order.UUID, aliceToken, nil)))

	bobsOrders := decode[[]model.Order](t, env.do("GET", "/orders/", bobToken, nil))
	assert.Empty(t, bobsOrders)
	allOrders := decode[[]model.Order](t, env.do("GET", "/orders/", env.adminToken, nil))
	assert.Len(t, allOrders, 1)
}

func TestItemsAPIFlow(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do("POST", "/items/", env.adminToken, map[string]any{
		"name":         "Laptop",
		"price":        "999.90",
		"description":  "Dell XPS",
		"category":     "computers",
		"availability": 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[model.Item](t, resp)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("999.9")))

	resp = env.do("POST", "/items/", env.adminToken, map[string]any{"name": "No price", "category": "c"})
	assert.Equal(t, http.StatusBadRequest, status(resp))

	resp = env.do("POST", "/items/", env.adminToken, map[string]any{"name": "Neg", "price": -1, "category": "c"})
	assert.Equal(t, http.StatusBadRequest, status(resp))

	items := decode[[]model.Item](t, env.do("GET", "/items/?category=computers", "", nil))
	require.Len(t, items, 1)

	resp = env.do("PUT", "/items/"+item.UUID, env.adminToken, map[string]any{
		"name": "Laptop", "price": 899, "category": "computers", "availability": 4,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.Item](t, resp)
	assert.Equal(t, 4, updated.Availability)

	assert.Equal(t, http.StatusNoContent, status(env.do("DELETE", "/items/"+item.UUID, env.adminToken, nil)))
	assert.Equal(t, http.StatusNotFound, status(env.do("GET", "/items/"+item.UUID, "", nil)))
}

func TestDeleteOrderedItemConflicts(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 5)

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 1)))
	require.Equal(t, http.StatusCreated, status(resp))

	assert.Equal(t, http.StatusConflict, status(env.do("DELETE", "/items/"+a.UUID, env.adminToken, nil)))
}

func TestRegisterAndManageAccount(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do("POST", "/users/", "", map[string]string{
		"first_name": "Ana", "last_name": "Novak", "email": "ana@example.com", "password": "anapassword",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decode[model.User](t, resp)
	assert.Equal(t, model.RoleUser, user.Role)

	resp = env.do("POST", "/users/", "", map[string]string{
		"first_name": "Ana", "last_name": "Novak", "email": "ANA@example.com", "password": "anapassword",
	})
	assert.Equal(t, http.StatusConflict, status(resp))

	resp = env.do("POST", "/users/", "", map[string]string{
		"first_name": "Bo", "last_name": "B", "email": "bo@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, status(resp))

	token := env.login("ana@example.com", "anapassword")

	resp = env.do("PUT", "/users/"+user.UUID, token, map[string]string{
		"first_name": "Ana", "last_name": "Kovac", "email": "ana@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Kovac", decode[model.User](t, resp).LastName)

	resp = env.do("PUT", "/users/"+user.UUID, token, map[string]string{
		"first_name": "Ana", "last_name": "Kovac", "email": "ana@example.com", "role": model.RoleAdmin,
	})
	assert.Equal(t, http.StatusForbidden, status(resp))

	resp = env.do("PUT", "/auth/password", token, map[string]string{
		"current_password": "anapassword", "new_password": "newpassword",
	})
	assert.Equal(t, http.StatusOK, status(resp))
	env.login("ana@example.com", "newpassword")

	assert.Equal(t, http.StatusBadRequest, status(env.do("DELETE", "/users/"+env.admin.UUID, env.adminToken, nil)))
}

func TestAddressesAndFavorites(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	env.createUser("o@example.com", "userpass", model.RoleUser)
	token := env.login("u@example.com", "userpass")
	otherToken := env.login("o@example.com", "userpass")
	a := env.createItem("A", "10", 5)

	resp := env.do("POST", "/addresses/", token, map[string]string{
		"nation": "Slovenia", "city": "Ljubljana", "postal_code": "1000",
		"local_address": "Presernov trg 1", "phone": "+38640000000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	addr := decode[model.Address](t, resp)
	assert.Equal(t, user.UUID, addr.UserUUID)

	assert.Equal(t, http.StatusNotFound, status(env.do("GET", "/addresses/"+addr.UUID, otherToken, nil)))
	assert.Len(t, decode[[]model.Address](t, env.do("GET", "/addresses/", token, nil)), 1)
	assert.Empty(t, decode[[]model.Address](t, env.do("GET", "/addresses/", otherToken, nil)))

	resp = env.do("POST", "/addresses/", token, map[string]string{"nation": "Slovenia"})
	assert.Equal(t, http.StatusBadRequest, status(resp))

	assert.Equal(t, http.StatusNoContent, status(env.do("DELETE", "/addresses/"+addr.UUID, token, nil)))

	assert.Equal(t, http.StatusCreated, status(env.do("POST", "/favorites/", token, map[string]string{"item": a.UUID})))
	assert.Equal(t, http.StatusConflict, status(env.do("POST", "/favorites/", token, map[string]string{"item": a.UUID})))
	assert.Equal(t, http.StatusBadRequest, status(env.do("POST", "/favorites/", token, map[string]string{"item": uuid.NewString()})))

	favs := decode[[]model.Item](t, env.do("GET", "/favorites/", token, nil))
	require.Len(t, favs, 1)
	assert.Equal(t, a.UUID, favs[0].UUID)

	assert.Equal(t, http.StatusNoContent, status(env.do("DELETE", "/favorites/"+a.UUID, token, nil)))
	assert.Equal(t, http.StatusNotFound, status(env.do("DELETE", "/favorites/"+a.UUID, token, nil)))
}

func TestPasswordResetFlow(t *testing.T) {
	env := setupTestServer(t)
	env.createUser("forgetful@example.com", "oldpassword", model.RoleUser)

	resp := env.do("POST", "/resets/request", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, status(resp))
	_, sent := env.mailer.last()
	assert.False(t, sent, "no mail for unknown accounts")

	resp = env.do("POST", "/resets/request", "", map[string]string{"email": "forgetful@example.com"})
	assert.Equal(t, http.StatusAccepted, status(resp))
	msg, sent := env.mailer.last()
	require.True(t, sent)
	assert.Equal(t, "forgetful@example.com", msg.To)

	var code string
	for _, l := range strings.Split(msg.Body, "\n") {
		if rest, ok := strings.CutPrefix(l, "Reset code: "); ok {
			code = rest
		}
	}
	require.NotEmpty(t, code)

	resp = env.do("POST", "/resets/", "", map[string]string{"code": code, "password": "brandnewpass"})
	assert.Equal(t, http.StatusOK, status(resp))
	env.login("forgetful@example.com", "brandnewpass")

	resp = env.do("POST", "/resets/", "", map[string]string{"code": code, "password": "anotherpass"})
	assert.Equal(t, http.StatusNotFound, status(resp))
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPictureUpload(t *testing.T) {
	env := setupTestServer(t)
	a := env.createItem("A", "10", 5)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "a.png")
	require.NoError(t, err)
	fw.Write(testPNG(t, 40, 30))
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest("POST", env.server.URL+"/items/"+a.UUID+"/pictures", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pic := decode[model.Picture](t, resp)
	assert.Equal(t, 40, pic.Width)
	assert.Equal(t, 30, pic.Height)

	pics := decode[[]model.Picture](t, env.do("GET", "/items/"+a.UUID+"/pictures", "", nil))
	assert.Len(t, pics, 1)

	resp = env.do("GET", "/pictures/"+pic.UUID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, status(env.do("DELETE", "/pictures/"+pic.UUID, env.adminToken, nil)))
	assert.Equal(t, http.StatusNotFound, status(env.do("GET", "/pictures/"+pic.UUID, "", nil)))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do("GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(data), "trgovina_http_requests_total")
}

func TestOrderStockMetricsCountNetChanges(t *testing.T) {
	env := setupTestServer(t)
	user := env.createUser("u@example.com", "userpass", model.RoleUser)
	a := env.createItem("A", "10", 10)
	b := env.createItem("B", "4", 10)

	reservedBefore := testutil.ToFloat64(metrics.ReservedUnitsTotal)
	releasedBefore := testutil.ToFloat64(metrics.ReleasedUnitsTotal)
	counts := func() (float64, float64) {
		return testutil.ToFloat64(metrics.ReservedUnitsTotal) - reservedBefore,
			testutil.ToFloat64(metrics.ReleasedUnitsTotal) - releasedBefore
	}

	resp := env.do("POST", "/orders/", env.adminToken, orderBody(user.UUID, line(a.UUID, 3), line(b.UUID, 1)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, resp)
	reserved, released := counts()
	assert.Equal(t, 4.0, reserved)
	assert.Equal(t, 0.0, released)

	// Keeping A unchanged and growing B by one reserves a single unit.
	resp = env.do("PUT", "/orders/"+order.UUID, env.adminToken,
		map[string]any{"items": []model.LineRequest{line(a.UUID, 3), line(b.UUID, 2)}})
	require.Equal(t, http.StatusOK, status(resp))
	reserved, released = counts()
	assert.Equal(t, 5.0, reserved)
	assert.Equal(t, 0.0, released)

	// Dropping A returns its three units.
	resp = env.do("PUT", "/orders/"+order.UUID, env.adminToken,
		map[string]any{"items": []model.LineRequest{line(b.UUID, 2)}})
	require.Equal(t, http.StatusOK, status(resp))
	reserved, released = counts()
	assert.Equal(t, 5.0, reserved)
	assert.Equal(t, 3.0, released)

	assert.Equal(t, http.StatusNoContent, status(env.do("DELETE", "/orders/"+order.UUID, env.adminToken, nil)))
	reserved, released = counts()
	assert.Equal(t, 5.0, reserved)
	assert.Equal(t, 5.0, released)
}
