package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmcampos/despensa/internal/backup"
	"github.com/jmcampos/despensa/internal/database"
	"github.com/jmcampos/despensa/internal/model"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, backup.Config{}, slog.Default())
	return srv.Router()
}

// register creates an account and returns the session cookie.
func register(t *testing.T, router http.Handler, email string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"name":"Test","password":"contraseña-larga"}`, email)
	req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "despensa_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func doJSON(t *testing.T, router http.Handler, cookie *http.Cookie, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestRouterRegistersWithoutConflict guards against ServeMux pattern
// conflicts between the static catch-all and the /api/ prefix mount,
// which panic at registration time.
func TestRouterRegistersWithoutConflict(t *testing.T) {
	router := newTestRouter(t)

	// Static catch-all answers (404 here: no web/static under the test dir).
	rec := doJSON(t, router, nil, "GET", "/", "")
	if rec.Code == http.StatusMethodNotAllowed {
		t.Errorf("static route status = %d", rec.Code)
	}

	// The /api/ prefix still routes alongside it.
	rec = doJSON(t, router, nil, "GET", "/api/session", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("api route status = %d, want 401", rec.Code)
	}
}

func TestUnauthenticatedAPIRejected(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, nil, "GET", "/api/products", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, nil, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "ana@example.com")

	// Wrong password
	rec := doJSON(t, router, nil, "POST", "/api/login", `{"email":"ana@example.com","password":"incorrecta-123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}

	// Unknown email gets the same answer
	rec = doJSON(t, router, nil, "POST", "/api/login", `{"email":"nadie@example.com","password":"contraseña-larga"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email status = %d, want 401", rec.Code)
	}

	// Correct credentials
	rec = doJSON(t, router, nil, "POST", "/api/login", `{"email":"ana@example.com","password":"contraseña-larga"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var user model.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected session cookie on login")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "ana@example.com")

	rec := doJSON(t, router, nil, "POST", "/api/register", `{"email":"ana@example.com","name":"Otra","password":"contraseña-larga"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestProductLifecycle(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "ana@example.com")

	// Create without a category: suggestion kicks in
	rec := doJSON(t, router, cookie, "POST", "/api/products", `{"name":"Champú","quantity":2,"quantity_unit":"botes"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var p model.Product
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Category != model.CategoryHygiene {
		t.Errorf("suggested category = %q, want %q", p.Category, model.CategoryHygiene)
	}

	// Update
	rec = doJSON(t, router, cookie, "PUT", fmt.Sprintf("/api/products/%d", p.ID), `{"name":"Champú","quantity":5,"quantity_unit":"botes","category":"hygiene"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", p.Quantity)
	}

	// Shopping list: toggle on, purchase, verify stock
	rec = doJSON(t, router, cookie, "POST", fmt.Sprintf("/api/products/%d/shopping", p.ID), `{"quantity":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	rec = doJSON(t, router, cookie, "GET", "/api/shopping-list", "")
	var list []model.Product
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Fatalf("shopping list length = %d, want 1", len(list))
	}

	rec = doJSON(t, router, cookie, "POST", fmt.Sprintf("/api/products/%d/purchase", p.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("purchase status = %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Quantity != 8 || p.InShoppingList {
		t.Errorf("after purchase quantity = %d inList = %v, want 8 and false", p.Quantity, p.InShoppingList)
	}

	// Delete
	rec = doJSON(t, router, cookie, "DELETE", fmt.Sprintf("/api/products/%d", p.ID), "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestToggleShoppingBody(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "ana@example.com")

	rec := doJSON(t, router, cookie, "POST", "/api/products", `{"name":"Arroz","quantity":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var p model.Product
	json.Unmarshal(rec.Body.Bytes(), &p)

	// Malformed JSON is rejected.
	rec = doJSON(t, router, cookie, "POST", fmt.Sprintf("/api/products/%d/shopping", p.ID), `{"quantity":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}

	// An empty body is a plain toggle.
	rec = doJSON(t, router, cookie, "POST", fmt.Sprintf("/api/products/%d/shopping", p.ID), "")
	if rec.Code != http.StatusOK {
		t.Errorf("empty body status = %d, want 200", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &p)
	if !p.InShoppingList {
		t.Error("expected product flagged for shopping")
	}
}

func TestPriceEntryNormalizationAndStats(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "ana@example.com")

	// 6 paid for 24 units sold by the dozen: 3 per dozen
	rec := doJSON(t, router, cookie, "POST", "/api/prices", `{"product_name":"Huevos","total_price":6,"quantity":24,"unit":"docena","supermarket":"Mercadona"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var e model.PriceEntry
	json.Unmarshal(rec.Body.Bytes(), &e)
	if e.PricePerUnit != 3 {
		t.Errorf("price_per_unit = %v, want 3", e.PricePerUnit)
	}

	doJSON(t, router, cookie, "POST", "/api/prices", `{"product_name":"Huevos","total_price":2.50,"quantity":12,"unit":"docena","supermarket":"Dia"}`)

	rec = doJSON(t, router, cookie, "GET", "/api/prices/stats?product=Huevos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats struct {
		Count               int     `json:"count"`
		Min                 float64 `json:"min"`
		Max                 float64 `json:"max"`
		CheapestSupermarket string  `json:"cheapest_supermarket"`
	}
	json.Unmarshal(rec.Body.Bytes(), &stats)
	if stats.Count != 2 || stats.Min != 2.5 || stats.Max != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.CheapestSupermarket != "Dia" {
		t.Errorf("cheapest = %q, want Dia", stats.CheapestSupermarket)
	}

	// Rejects non-positive quantity
	rec = doJSON(t, router, cookie, "POST", "/api/prices", `{"product_name":"Huevos","total_price":6,"quantity":0,"unit":"docena","supermarket":"Dia"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero quantity status = %d, want 400", rec.Code)
	}
}

func TestPriceBulkDelete(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "ana@example.com")

	var ids []int64
	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, cookie, "POST", "/api/prices",
			fmt.Sprintf(`{"product_name":"Arroz","total_price":%d,"quantity":1,"unit":"kg","supermarket":"Dia"}`, i+1))
		var e model.PriceEntry
		json.Unmarshal(rec.Body.Bytes(), &e)
		ids = append(ids, e.ID)
	}

	body, _ := json.Marshal(map[string][]int64{"ids": ids[:2]})
	rec := doJSON(t, router, cookie, "POST", "/api/prices/bulk-delete", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result map[string]int64
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", result["deleted"])
	}

	rec = doJSON(t, router, cookie, "GET", "/api/prices", "")
	var remaining []model.PriceEntry
	json.Unmarshal(rec.Body.Bytes(), &remaining)
	if len(remaining) != 1 {
		t.Errorf("remaining = %d, want 1", len(remaining))
	}
}

func TestDataIsolationBetweenUsers(t *testing.T) {
	router := newTestRouter(t)
	ana := register(t, router, "ana@example.com")
	luis := register(t, router, "luis@example.com")

	rec := doJSON(t, router, ana, "POST", "/api/products", `{"name":"Lentejas","quantity":1,"category":"food"}`)
	var p model.Product
	json.Unmarshal(rec.Body.Bytes(), &p)

	// Luis cannot see or touch Ana's product
	rec = doJSON(t, router, luis, "GET", "/api/products", "")
	var products []model.Product
	json.Unmarshal(rec.Body.Bytes(), &products)
	if len(products) != 0 {
		t.Errorf("luis sees %d products, want 0", len(products))
	}

	rec = doJSON(t, router, luis, "GET", fmt.Sprintf("/api/products/%d", p.ID), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, luis, "DELETE", fmt.Sprintf("/api/products/%d", p.ID), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user delete status = %d, want 404", rec.Code)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "ana@example.com")

	rec := doJSON(t, router, cookie, "POST", "/api/logout", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = doJSON(t, router, cookie, "GET", "/api/session", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want 401", rec.Code)
	}
}
