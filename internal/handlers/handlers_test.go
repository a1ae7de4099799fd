package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bbqpos/internal/identity"
	"bbqpos/internal/models"
	"bbqpos/internal/pos"
	"bbqpos/internal/store"
	"bbqpos/internal/view"
)

type testServer struct {
	router  *gin.Engine
	manager *pos.Manager
	mem     *store.Memory
}

func newTestServer(t *testing.T, deps Deps) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	m := pos.NewManager(mem, "operator-1")
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Close() })

	deps.Manager = m
	if deps.Confirmations == nil {
		deps.Confirmations = view.NewConfirmations(time.Minute)
	}
	r := gin.New()
	RegisterRoutes(r, deps)

	return &testServer{router: r, manager: m, mem: mem}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
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
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func (s *testServer) addMenuItem(t *testing.T, name string, price float64) models.MenuItem {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/menu", gin.H{"name": name, "price": price})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Item models.MenuItem `json:"item"`
	}
	decode(t, rec, &resp)
	require.Eventually(t, func() bool {
		_, ok := s.manager.MenuItem(resp.Item.ID.Hex())
		return ok
	}, time.Second, 10*time.Millisecond)
	return resp.Item
}

func (s *testServer) waitOrders(t *testing.T, n int) []models.Order {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.manager.Orders()) == n
	}, time.Second, 10*time.Millisecond)
	return s.manager.Orders()
}

func TestOrderFlow(t *testing.T) {
	s := newTestServer(t, Deps{})
	ribs := s.addMenuItem(t, "Ribs", 8.5)

	require.Eventually(t, func() bool { return s.manager.Counter() == 1 }, time.Second, 10*time.Millisecond)

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/api/cart/items/"+ribs.ID.Hex(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/view/newOrder", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var newOrder view.View
	decode(t, rec, &newOrder)
	assert.Equal(t, "17.00", newOrder.CartTotal)

	rec = s.do(t, http.MethodPost, "/api/orders", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed struct {
		OrderNumber int        `json:"orderNumber"`
		Total       float64    `json:"total"`
		Navigate    string     `json:"navigate"`
		Modal       view.Modal `json:"modal"`
	}
	decode(t, rec, &placed)
	assert.Equal(t, 1, placed.OrderNumber)
	assert.Equal(t, 17.0, placed.Total)
	assert.Equal(t, "activeOrders", placed.Navigate)
	assert.Equal(t, "Order Placed!", placed.Modal.Title)

	orders := s.waitOrders(t, 1)
	orderID := orders[0].ID.Hex()

	rec = s.do(t, http.MethodGet, "/api/view/activeOrders", nil)
	var active view.View
	decode(t, rec, &active)
	assert.Equal(t, []pos.ItemTotal{{Name: "Ribs", Quantity: 2}}, active.Totals)

	rec = s.do(t, http.MethodPost, "/api/orders/"+orderID+"/items/0/toggle?flag=served", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var toggled struct {
		Order models.Order `json:"order"`
		Modal *view.Modal  `json:"modal"`
	}
	decode(t, rec, &toggled)
	assert.Equal(t, models.OrderStatusCompleted, toggled.Order.Status)
	assert.True(t, bool(toggled.Order.Items[0].IsReady))
	require.NotNil(t, toggled.Modal)
	assert.Equal(t, "Order Completed!", toggled.Modal.Title)

	require.Eventually(t, func() bool {
		return len(s.manager.CompletedOrders()) == 1
	}, time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bbq_orders_export_")
	lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `1,`+orders[0].DisplayTime+`,completed,17,"Ribs",2,Yes,Yes`, lines[1])
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	s := newTestServer(t, Deps{})

	rec := s.do(t, http.MethodPost, "/api/orders", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	orders, err := s.mem.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := pos.NewManager(nil, "local")
	m.AddToCart(models.MenuItem{Name: "Ribs", Price: 8.5})

	r := gin.New()
	RegisterRoutes(r, Deps{Manager: m, Confirmations: view.NewConfirmations(time.Minute)})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeleteOrderNeedsConfirmation(t *testing.T) {
	s := newTestServer(t, Deps{})
	created, err := s.mem.InsertOrder(context.Background(), models.Order{OrderNumber: 7, Status: models.OrderStatusActive})
	require.NoError(t, err)
	s.waitOrders(t, 1)

	rec := s.do(t, http.MethodDelete, "/api/orders/"+created.ID.Hex(), nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var pending struct {
		Modal view.Modal `json:"modal"`
	}
	decode(t, rec, &pending)
	assert.True(t, pending.Modal.ShowConfirm)
	assert.Contains(t, pending.Modal.Message, "Order #7")

	_, err = s.mem.GetOrder(context.Background(), created.ID)
	require.NoError(t, err, "order must survive until confirmed")

	rec = s.do(t, http.MethodPost, "/api/confirm/"+pending.Modal.ConfirmToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, err = s.mem.GetOrder(context.Background(), created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec = s.do(t, http.MethodPost, "/api/confirm/"+pending.Modal.ConfirmToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReopenAndCancel(t *testing.T) {
	s := newTestServer(t, Deps{})
	created, err := s.mem.InsertOrder(context.Background(), models.Order{OrderNumber: 3, Status: models.OrderStatusCompleted})
	require.NoError(t, err)
	s.waitOrders(t, 1)

	rec := s.do(t, http.MethodPost, "/api/orders/"+created.ID.Hex()+"/reopen", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var pending struct {
		Modal view.Modal `json:"modal"`
	}
	decode(t, rec, &pending)

	rec = s.do(t, http.MethodDelete, "/api/confirm/"+pending.Modal.ConfirmToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	stored, err := s.mem.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, stored.Status)

	rec = s.do(t, http.MethodPost, "/api/orders/"+created.ID.Hex()+"/reopen", nil)
	decode(t, rec, &pending)
	rec = s.do(t, http.MethodPost, "/api/confirm/"+pending.Modal.ConfirmToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err = s.mem.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusActive, stored.Status)
}

func TestResetCounterAndDeleteMenuItemNeedConfirmation(t *testing.T) {
	s := newTestServer(t, Deps{})
	ribs := s.addMenuItem(t, "Ribs", 8.5)
	require.NoError(t, s.mem.SetCounter(context.Background(), 9))

	var pending struct {
		Modal view.Modal `json:"modal"`
	}

	rec := s.do(t, http.MethodPost, "/api/counter/reset", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	decode(t, rec, &pending)
	counter, err := s.mem.GetCounter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, counter.Count)

	rec = s.do(t, http.MethodPost, "/api/confirm/"+pending.Modal.ConfirmToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counter, err = s.mem.GetCounter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counter.Count)

	rec = s.do(t, http.MethodDelete, "/api/menu/"+ribs.ID.Hex(), nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	decode(t, rec, &pending)
	items, err := s.mem.ListMenuItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)

	rec = s.do(t, http.MethodPost, "/api/confirm/"+pending.Modal.ConfirmToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, err = s.mem.ListMenuItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateMenuItemValidation(t *testing.T) {
	s := newTestServer(t, Deps{})

	cases := map[string]gin.H{
		"missing price":  {"name": "Ribs"},
		"negative price": {"name": "Ribs", "price": -2},
		"missing name":   {"price": 2},
		"blank name":     {"name": "   ", "price": 2},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/menu", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	items, err := s.mem.ListMenuItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNotFoundAndBadInput(t *testing.T) {
	s := newTestServer(t, Deps{})
	created, err := s.mem.InsertOrder(context.Background(), models.Order{Status: models.OrderStatusActive, Items: []models.OrderItem{{Name: "Ribs", Quantity: 1}}})
	require.NoError(t, err)

	cases := map[string]struct {
		method   string
		path     string
		expected int
	}{
		"unknown section":    {http.MethodGet, "/api/view/kitchen", http.StatusNotFound},
		"unknown cart item":  {http.MethodPost, "/api/cart/items/64b000000000000000000000", http.StatusNotFound},
		"unknown order":      {http.MethodPost, "/api/orders/64b000000000000000000000/toggle-all?flag=served", http.StatusNotFound},
		"bad item index":     {http.MethodPost, "/api/orders/" + created.ID.Hex() + "/items/x/toggle", http.StatusNotFound},
		"item out of range":  {http.MethodPost, "/api/orders/" + created.ID.Hex() + "/items/4/toggle", http.StatusNotFound},
		"bad flag":           {http.MethodPost, "/api/orders/" + created.ID.Hex() + "/toggle-all?flag=paid", http.StatusBadRequest},
		"unknown confirm":    {http.MethodPost, "/api/confirm/nope", http.StatusNotFound},
		"delete unknown":     {http.MethodDelete, "/api/orders/64b000000000000000000000", http.StatusNotFound},
		"edit unknown order": {http.MethodPost, "/api/orders/64b000000000000000000000/edit", http.StatusNotFound},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.path, nil)
			assert.Equal(t, tc.expected, rec.Code, rec.Body.String())

			var body map[string]interface{}
			decode(t, rec, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestEditOrderShowsInfoModal(t *testing.T) {
	s := newTestServer(t, Deps{})
	created, err := s.mem.InsertOrder(context.Background(), models.Order{OrderNumber: 4, Status: models.OrderStatusActive})
	require.NoError(t, err)
	s.waitOrders(t, 1)

	rec := s.do(t, http.MethodPost, "/api/orders/"+created.ID.Hex()+"/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Modal view.Modal `json:"modal"`
	}
	decode(t, rec, &resp)
	assert.False(t, resp.Modal.ShowConfirm)
	assert.Contains(t, resp.Modal.Message, "Order #4")
}

func TestOperatorLoginGuardsAPI(t *testing.T) {
	const secret = "test-secret"
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)

	s := newTestServer(t, Deps{
		Issuer:    identity.NewJWTProvider(secret, time.Hour, ""),
		PINHash:   string(hash),
		JWTSecret: secret,
	})

	rec := s.do(t, http.MethodGet, "/api/state", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", gin.H{"pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", gin.H{"pin": "1234", "operator": "sam"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, rec, &login)
	require.NotEmpty(t, login.Token)

	rec = s.do(t, http.MethodGet, "/api/state", nil, "Authorization", "Bearer "+login.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/state?access_token="+login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/events", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// EventSource cannot send headers; the stream takes the token from the query.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events?access_token="+login.Token, nil).WithContext(ctx)
	stream := streamRecorder{httptest.NewRecorder()}
	s.router.ServeHTTP(stream, req)
	assert.Equal(t, http.StatusOK, stream.Code)
	assert.Contains(t, stream.Body.String(), "event:state")
}

func TestOperatorLoginNotConfigured(t *testing.T) {
	s := newTestServer(t, Deps{Issuer: identity.NewJWTProvider("x", time.Hour, "")})

	rec := s.do(t, http.MethodPost, "/auth/login", gin.H{"pin": "1234"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHomeRedirects(t *testing.T) {
	s := newTestServer(t, Deps{})
	rec := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/api/view/newOrder", rec.Header().Get("Location"))
}

func TestExportWithoutOrders(t *testing.T) {
	s := newTestServer(t, Deps{})

	rec := s.do(t, http.MethodGet, "/api/export", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "there are no orders to export")
}

// streamRecorder adds the CloseNotifier gin's Stream expects.
type streamRecorder struct {
	*httptest.ResponseRecorder
}

func (streamRecorder) CloseNotify() <-chan bool {
	return make(chan bool)
}

func TestEventsStreamsState(t *testing.T) {
	s := newTestServer(t, Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := streamRecorder{httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.router.ServeHTTP(rec, req)
	}()

	_, err := s.mem.InsertMenuItem(context.Background(), models.MenuItem{Name: "Brisket", Price: 12})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.manager.Menu()) == 1 }, time.Second, 10*time.Millisecond)

	// Let the stream loop drain the update before disconnecting.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not stop after the client went away")
	}

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, body, "event:state")
	assert.Contains(t, body, "Brisket")
}

func TestUnservingCompletedOrderShowsNoCompletionModal(t *testing.T) {
	s := newTestServer(t, Deps{})
	created, err := s.mem.InsertOrder(context.Background(), models.Order{
		OrderNumber: 2,
		Status:      models.OrderStatusActive,
		Items: []models.OrderItem{
			{Name: "Ribs", Quantity: 1},
			{Name: "Corn", Quantity: 1},
		},
	})
	require.NoError(t, err)
	id := created.ID.Hex()

	var resp struct {
		Order models.Order `json:"order"`
		Modal *view.Modal  `json:"modal"`
	}

	rec := s.do(t, http.MethodPost, "/api/orders/"+id+"/toggle-all?flag=served", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &resp)
	require.NotNil(t, resp.Modal)
	assert.Equal(t, "Order Completed!", resp.Modal.Title)

	resp.Modal = nil
	rec = s.do(t, http.MethodPost, "/api/orders/"+id+"/items/0/toggle?flag=served", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &resp)
	assert.Equal(t, models.OrderStatusCompleted, resp.Order.Status)
	assert.False(t, bool(resp.Order.Items[0].IsServed))
	assert.Nil(t, resp.Modal)

	rec = s.do(t, http.MethodPost, "/api/orders/"+id+"/toggle-all?flag=served", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp.Modal = nil
	decode(t, rec, &resp)
	assert.Nil(t, resp.Modal, "order was already completed")
}
