package front

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	"github.com/fovdark/fovdark/internal/config"
	"github.com/fovdark/fovdark/internal/db"
	"github.com/fovdark/fovdark/internal/licenses"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/ratelimit"
	"github.com/fovdark/fovdark/internal/security"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
)

const testJWTSecret = "front-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// openLimits keeps rate limiting out of the way for tests that exercise
// other behavior.
func openLimits() ratelimit.SettingsConfig {
	return ratelimit.SettingsConfig{LoginLimit: 1000, ReviewLimit: 1000}
}

func newTestServer(t *testing.T, provider ratelimit.SettingsProvider) (*gin.Engine, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, errOpen := db.Open("file:front_" + name + "?mode=memory&cache=shared")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errRefresh := internalsettings.Refresh(context.Background(), conn); errRefresh != nil {
		t.Fatalf("refresh settings: %v", errRefresh)
	}

	if provider == nil {
		provider = openLimits
	}
	router := gin.New()
	RegisterFrontRoutes(router, Deps{
		DB:       conn,
		JWT:      config.JWTConfig{Secret: testJWTSecret, Expiry: time.Hour},
		Cache:    cache.NewMemoryCache(),
		Limiter:  ratelimit.NewManager(provider, nil, nil),
		Licenses: licenses.NewEngine(conn),
	})
	return router, conn
}

func seedUser(t *testing.T, conn *gorm.DB, email, password string, active bool) *models.User {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	account := models.User{Email: email, Password: hash, Role: models.RoleUser, Active: active}
	if errCreate := conn.Create(&account).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	return &account
}

func seedProduct(t *testing.T, conn *gorm.DB, name, slug string, priceCents int64, active bool) *models.Product {
	t.Helper()
	product := models.Product{Name: name, Slug: slug, PriceCents: priceCents, IsActive: active}
	if errCreate := conn.Create(&product).Error; errCreate != nil {
		t.Fatalf("seed product: %v", errCreate)
	}
	return &product
}

func tokenFor(t *testing.T, account *models.User) string {
	t.Helper()
	token, errSign := security.SignUserToken(testJWTSecret, account.ID, account.Email, account.Role, time.Hour)
	if errSign != nil {
		t.Fatalf("sign token: %v", errSign)
	}
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), errDecode)
	}
	return out
}

func TestSignupAndLogin(t *testing.T) {
	router, conn := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/v0/auth/signup", "", gin.H{
		"email": "New@Shop.Test", "password": "pw12345678", "first_name": "New",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["token"] == nil {
		t.Fatal("signup response missing token")
	}

	rec = doJSON(t, router, http.MethodPost, "/v0/auth/signup", "", gin.H{
		"email": "new@shop.test", "password": "pw12345678",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d", rec.Code)
	}

	var before int64
	conn.Model(&models.User{}).Count(&before)
	rec = doJSON(t, router, http.MethodPost, "/v0/auth/signup", "", gin.H{
		"email": "broken", "password": "pw12345678",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid email status = %d", rec.Code)
	}
	var after int64
	conn.Model(&models.User{}).Count(&after)
	if after != before {
		t.Fatal("rejected signup created an account")
	}

	rec = doJSON(t, router, http.MethodPost, "/v0/auth/login", "", gin.H{
		"email": "new@shop.test", "password": "pw12345678",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPost, "/v0/auth/login", "", gin.H{
		"email": "new@shop.test", "password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}
}

func TestSignupClosedRegistrations(t *testing.T) {
	router, conn := newTestServer(t, nil)

	closed := map[string]json.RawMessage{
		internalsettings.GeneralKey: json.RawMessage(`{"registrations_open":false}`),
	}
	internalsettings.StoreDBConfig(time.Now().UTC(), closed)
	t.Cleanup(func() {
		_ = internalsettings.Refresh(context.Background(), conn)
	})

	rec := doJSON(t, router, http.MethodPost, "/v0/auth/signup", "", gin.H{
		"email": "late@shop.test", "password": "pw12345678",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("closed signup status = %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	limitOne := func() ratelimit.SettingsConfig {
		return ratelimit.SettingsConfig{LoginLimit: 1, ReviewLimit: 1000}
	}
	router, conn := newTestServer(t, limitOne)
	seedUser(t, conn, "limited@shop.test", "pw12345678", true)

	rec := doJSON(t, router, http.MethodPost, "/v0/auth/login", "", gin.H{
		"email": "limited@shop.test", "password": "pw12345678",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("first login status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/v0/auth/login", "", gin.H{
		"email": "limited@shop.test", "password": "pw12345678",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second login status = %d, want 429", rec.Code)
	}
}

func TestDisabledAccountCannotUseAPI(t *testing.T) {
	router, conn := newTestServer(t, nil)
	account := seedUser(t, conn, "banned@shop.test", "pw12345678", false)

	rec := doJSON(t, router, http.MethodPost, "/v0/auth/login", "", gin.H{
		"email": "banned@shop.test", "password": "pw12345678",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled login status = %d", rec.Code)
	}

	// A token issued before the ban stops working too.
	rec = doJSON(t, router, http.MethodGet, "/v0/auth/me", tokenFor(t, account), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled me status = %d", rec.Code)
	}
}

func TestCatalogListShowsOnlyActive(t *testing.T) {
	router, conn := newTestServer(t, nil)
	seedProduct(t, conn, "Visible", "visible", 1000, true)
	seedProduct(t, conn, "Hidden", "hidden", 1000, false)
	best := seedProduct(t, conn, "Top Seller", "top-seller", 2000, true)
	if errSave := conn.Model(best).Update("is_bestseller", true).Error; errSave != nil {
		t.Fatalf("mark bestseller: %v", errSave)
	}

	rec := doJSON(t, router, http.MethodGet, "/v0/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	products, _ := body["products"].([]any)
	if len(products) != 2 {
		t.Fatalf("listed %d products, want 2 active: %s", len(products), rec.Body.String())
	}
	first, _ := products[0].(map[string]any)
	if first["slug"] != "top-seller" {
		t.Fatalf("first product = %v, want bestseller first", first["slug"])
	}
	for _, raw := range products {
		entry, _ := raw.(map[string]any)
		if entry["slug"] == "hidden" {
			t.Fatal("inactive product leaked into the catalog")
		}
	}
}

func TestCatalogGetBySlug(t *testing.T) {
	router, conn := newTestServer(t, nil)
	product := seedProduct(t, conn, "Wallhack Pro", "wallhack-pro", 4999, true)
	seedProduct(t, conn, "Retired", "retired", 999, false)

	reviewer := seedUser(t, conn, "fan@shop.test", "pw12345678", true)
	review := models.Review{UserID: reviewer.ID, ProductID: product.ID, Rating: 4, Comment: "solid, works every patch"}
	if errCreate := conn.Create(&review).Error; errCreate != nil {
		t.Fatalf("seed review: %v", errCreate)
	}

	rec := doJSON(t, router, http.MethodGet, "/v0/products/wallhack-pro", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	entry, _ := body["product"].(map[string]any)
	if entry["slug"] != "wallhack-pro" {
		t.Fatalf("slug = %v", entry["slug"])
	}
	if avg, _ := entry["rating_average"].(float64); avg != 4 {
		t.Fatalf("rating_average = %v, want 4", entry["rating_average"])
	}
	if count, _ := entry["rating_count"].(float64); count != 1 {
		t.Fatalf("rating_count = %v, want 1", entry["rating_count"])
	}

	if rec := doJSON(t, router, http.MethodGet, "/v0/products/retired", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("inactive product status = %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/v0/products/missing", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown product status = %d", rec.Code)
	}
}

func TestCatalogListIsCached(t *testing.T) {
	router, conn := newTestServer(t, nil)
	product := seedProduct(t, conn, "Cached", "cached", 1000, true)

	rec := doJSON(t, router, http.MethodGet, "/v0/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first list status = %d", rec.Code)
	}

	// A direct DB change is invisible until the cache entry expires or a
	// mutation invalidates the prefix.
	if errSave := conn.Model(product).Update("is_active", false).Error; errSave != nil {
		t.Fatalf("deactivate: %v", errSave)
	}
	rec = doJSON(t, router, http.MethodGet, "/v0/products", "", nil)
	body := decodeBody(t, rec)
	products, _ := body["products"].([]any)
	if len(products) != 1 {
		t.Fatalf("cached list size = %d, want stale 1", len(products))
	}
}

func TestCreateReview(t *testing.T) {
	router, conn := newTestServer(t, nil)
	account := seedUser(t, conn, "buyer@shop.test", "pw12345678", true)
	token := tokenFor(t, account)
	product := seedProduct(t, conn, "ESP Lite", "esp-lite", 1500, true)
	inactive := seedProduct(t, conn, "Gone", "gone", 1500, false)

	if rec := doJSON(t, router, http.MethodPost, "/v0/reviews", "", gin.H{}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous review status = %d", rec.Code)
	}

	var before int64
	conn.Model(&models.Review{}).Count(&before)
	badPayloads := []gin.H{
		{"product_id": product.ID, "rating": 0, "comment": "rating out of range"},
		{"product_id": product.ID, "rating": 6, "comment": "rating out of range"},
		{"product_id": product.ID, "rating": 3, "comment": "short"},
		{"product_id": 0, "rating": 3, "comment": "missing product reference"},
	}
	for _, payload := range badPayloads {
		if rec := doJSON(t, router, http.MethodPost, "/v0/reviews", token, payload); rec.Code != http.StatusBadRequest {
			t.Fatalf("payload %v status = %d", payload, rec.Code)
		}
	}
	var after int64
	conn.Model(&models.Review{}).Count(&after)
	if after != before {
		t.Fatal("rejected reviews were persisted")
	}

	rec := doJSON(t, router, http.MethodPost, "/v0/reviews", token, gin.H{
		"product_id": inactive.ID, "rating": 3, "comment": "where did it go though",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("inactive product review status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v0/reviews", token, gin.H{
		"product_id": product.ID, "rating": 5, "comment": "undetected for months now",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create review status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v0/reviews", token, gin.H{
		"product_id": product.ID, "rating": 1, "comment": "changing my mind actually",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second review status = %d", rec.Code)
	}
}

func TestCreateOrder(t *testing.T) {
	router, conn := newTestServer(t, nil)
	account := seedUser(t, conn, "buyer@shop.test", "pw12345678", true)
	token := tokenFor(t, account)
	cheap := seedProduct(t, conn, "Cheap", "cheap", 1000, true)
	pricey := seedProduct(t, conn, "Pricey", "pricey", 5000, true)
	inactive := seedProduct(t, conn, "Inactive", "inactive", 1, false)

	// Duplicate lines merge; the total comes from the catalog, not the client.
	rec := doJSON(t, router, http.MethodPost, "/v0/orders", token, gin.H{
		"items": []gin.H{
			{"product_id": cheap.ID, "quantity": 1},
			{"product_id": cheap.ID, "quantity": 2},
			{"product_id": pricey.ID},
		},
		"payment_method": "pix",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if total, _ := body["total_cents"].(float64); int64(total) != 3*1000+5000 {
		t.Fatalf("total_cents = %v, want 8000", body["total_cents"])
	}
	items, _ := body["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %d, want merged 2", len(items))
	}

	var before int64
	conn.Model(&models.Order{}).Count(&before)
	rec = doJSON(t, router, http.MethodPost, "/v0/orders", token, gin.H{
		"items": []gin.H{{"product_id": inactive.ID}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inactive product order status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/v0/orders", token, gin.H{"items": []gin.H{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty order status = %d", rec.Code)
	}
	var after int64
	conn.Model(&models.Order{}).Count(&after)
	if after != before {
		t.Fatal("rejected orders were persisted")
	}
}

func TestOrderOwnership(t *testing.T) {
	router, conn := newTestServer(t, nil)
	owner := seedUser(t, conn, "owner@shop.test", "pw12345678", true)
	stranger := seedUser(t, conn, "stranger@shop.test", "pw12345678", true)
	product := seedProduct(t, conn, "Solo", "solo", 1000, true)

	order := models.Order{
		UserID:     owner.ID,
		Status:     models.OrderStatusPending,
		TotalCents: product.PriceCents,
		Items:      []models.OrderItem{{ProductID: product.ID, Quantity: 1, UnitPriceCents: product.PriceCents}},
	}
	if errCreate := conn.Create(&order).Error; errCreate != nil {
		t.Fatalf("seed order: %v", errCreate)
	}

	path := fmt.Sprintf("/v0/orders/%d", order.ID)
	if rec := doJSON(t, router, http.MethodGet, path, tokenFor(t, owner), nil); rec.Code != http.StatusOK {
		t.Fatalf("owner get status = %d", rec.Code)
	}
	// Someone else's order is indistinguishable from a missing one.
	if rec := doJSON(t, router, http.MethodGet, path, tokenFor(t, stranger), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("stranger get status = %d, want 404", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/v0/orders", tokenFor(t, stranger), nil)
	body := decodeBody(t, rec)
	orders, _ := body["orders"].([]any)
	if len(orders) != 0 {
		t.Fatalf("stranger sees %d orders, want 0", len(orders))
	}
}

func TestLicenseBindFlow(t *testing.T) {
	router, conn := newTestServer(t, nil)
	owner := seedUser(t, conn, "owner@shop.test", "pw12345678", true)
	stranger := seedUser(t, conn, "stranger@shop.test", "pw12345678", true)
	product := seedProduct(t, conn, "Bindable", "bindable", 1000, true)

	license := models.License{UserID: owner.ID, ProductID: product.ID, Status: models.LicenseStatusPending}
	if errCreate := conn.Create(&license).Error; errCreate != nil {
		t.Fatalf("seed license: %v", errCreate)
	}
	path := fmt.Sprintf("/v0/licenses/%d/bind", license.ID)

	// First bind activates the license.
	rec := doJSON(t, router, http.MethodPost, path, tokenFor(t, owner), gin.H{"hwid": "machine-a"})
	if rec.Code != http.StatusOK {
		t.Fatalf("first bind status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["outcome"] != "bound" {
		t.Fatalf("outcome = %v, want bound", body["outcome"])
	}

	// Same machine again is a no-op.
	rec = doJSON(t, router, http.MethodPost, path, tokenFor(t, owner), gin.H{"hwid": "machine-a"})
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat bind status = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["outcome"] != "unchanged" {
		t.Fatalf("outcome = %v, want unchanged", body["outcome"])
	}

	// A different machine inside the cooldown is rejected.
	rec = doJSON(t, router, http.MethodPost, path, tokenFor(t, owner), gin.H{"hwid": "machine-b"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("cooldown bind status = %d, want 409", rec.Code)
	}
	var reloaded models.License
	if errFind := conn.First(&reloaded, license.ID).Error; errFind != nil {
		t.Fatalf("reload license: %v", errFind)
	}
	if reloaded.HWID != "machine-a" {
		t.Fatalf("rejected rebind changed hwid to %q", reloaded.HWID)
	}

	// Someone else's license is indistinguishable from a missing one.
	rec = doJSON(t, router, http.MethodPost, path, tokenFor(t, stranger), gin.H{"hwid": "machine-c"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("stranger bind status = %d, want 404", rec.Code)
	}

	// The account remembers the last bound machine.
	var ownerRow models.User
	if errFind := conn.First(&ownerRow, owner.ID).Error; errFind != nil {
		t.Fatalf("reload owner: %v", errFind)
	}
	if ownerRow.HWID != "machine-a" {
		t.Fatalf("owner hwid = %q, want machine-a", ownerRow.HWID)
	}

	// Rebind availability shows up in the listing.
	rec = doJSON(t, router, http.MethodGet, "/v0/licenses", tokenFor(t, owner), nil)
	body = decodeBody(t, rec)
	rows, _ := body["licenses"].([]any)
	if len(rows) != 1 {
		t.Fatalf("licenses = %d, want 1", len(rows))
	}
	entry, _ := rows[0].(map[string]any)
	if entry["rebind_available_at"] == nil {
		t.Fatal("missing rebind_available_at during cooldown")
	}
}

func TestSiteTheme(t *testing.T) {
	router, _ := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/v0/site/theme", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("theme status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	theme, _ := body["theme"].(map[string]any)
	if theme == nil || theme["name"] != "Default" {
		t.Fatalf("theme = %v, want seeded default", body["theme"])
	}
}

func TestSiteSettingsExposesOnlyPublicKeys(t *testing.T) {
	router, _ := newTestServer(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/v0/site/settings", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("settings status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	values, _ := body["settings"].(map[string]any)
	if _, leaked := values[internalsettings.PaymentKey]; leaked {
		t.Fatal("payment settings leaked to the public API")
	}
	if _, ok := values[internalsettings.GeneralKey]; !ok {
		t.Fatal("general settings missing from the public API")
	}
	if body["site_name"] == nil {
		t.Fatal("site_name missing")
	}
}
