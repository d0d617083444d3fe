package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/contact"
	"storefront-service/internal/domain"
	"storefront-service/internal/metrics"
	"storefront-service/internal/store"
)

const sessionCookieName = "storefront_session"

// HTTPHandler holds dependencies for HTTP handlers. It is the system's view
// surface: it consumes the FilteredView and cart+totals on every change and
// turns user intents (add/remove/filter/submit) into core operations.
type HTTPHandler struct {
	catalogStore   *catalog.Store
	upstream       *catalog.Client
	pipeline       *catalog.SearchPipeline
	cartStore      store.CartStorer
	storefrontMtrx *metrics.StorefrontMetrics
	validate       *validator.Validate

	mu      sync.Mutex
	engines map[string]*cart.Engine
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(
	cs *catalog.Store,
	upstream *catalog.Client,
	pipeline *catalog.SearchPipeline,
	cartStore store.CartStorer,
	m *metrics.StorefrontMetrics,
) *HTTPHandler {
	return &HTTPHandler{
		catalogStore:   cs,
		upstream:       upstream,
		pipeline:       pipeline,
		cartStore:      cartStore,
		storefrontMtrx: m,
		validate:       validator.New(),
		engines:        make(map[string]*cart.Engine),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.WithError(err).Error("api: failed to encode JSON response")
		}
	}
}

// requireCatalog answers 503 and returns false until the upstream catalog has
// been loaded at least once. Recovery is a manual refresh.
func (h *HTTPHandler) requireCatalog(w http.ResponseWriter) bool {
	if !h.catalogStore.Loaded() {
		respondWithError(w, http.StatusServiceUnavailable, "catalog is unavailable, retry after a refresh")
		return false
	}
	return true
}

// --- Session handling ---

func (h *HTTPHandler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// sessionEngine returns the cart engine for the request's session, creating
// it (and loading the persisted cart, fail-soft) on first use.
func (h *HTTPHandler) sessionEngine(w http.ResponseWriter, r *http.Request) *cart.Engine {
	id := h.sessionID(w, r)

	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.engines[id]; ok {
		return e
	}
	e := cart.NewEngine(r.Context(), h.cartStore, id, h.cartChanged)
	h.engines[id] = e
	h.storefrontMtrx.SetActiveSessions(len(h.engines))
	return e
}

// cartChanged is the engine change signal; the rendered state itself travels
// back in each mutation response.
func (h *HTTPHandler) cartChanged(_ domain.Cart, totals domain.CartTotals) {
	h.storefrontMtrx.CartChanged(totals.GrandTotal)
}

// --- Catalog handlers ---

// CatalogResponse wraps a product list together with the criteria that
// produced it.
type CatalogResponse struct {
	Data   []domain.Product      `json:"data"`
	Filter domain.FilterCriteria `json:"filter"`
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}

	criteria := domain.FilterCriteria{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}
	if criteria.Category == "" {
		criteria.Category = domain.CategoryAll
	}

	respondWithJSON(w, http.StatusOK, CatalogResponse{
		Data:   h.catalogStore.ApplyFilter(criteria),
		Filter: criteria,
	})
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}

	idStr := chi.URLParam(r, "productId")
	productID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || productID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	p, ok := h.catalogStore.ProductByID(productID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "product not found in catalog")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	respondWithJSON(w, http.StatusOK, struct {
		Data []string `json:"data"`
	}{Data: h.catalogStore.Categories()})
}

func (h *HTTPHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	products, categories, err := h.upstream.FetchCatalog(r.Context())
	if err != nil {
		log.WithError(err).Error("api: catalog refresh failed")
		h.storefrontMtrx.CatalogLoad(false)
		respondWithError(w, http.StatusBadGateway, "failed to fetch catalog from upstream")
		return
	}

	h.catalogStore.Load(products, categories)
	h.pipeline.Refresh()
	h.storefrontMtrx.CatalogLoad(true)

	respondWithJSON(w, http.StatusOK, struct {
		Products   int `json:"products"`
		Categories int `json:"categories"`
	}{Products: len(products), Categories: len(categories)})
}

// --- Filtered view handlers ---

// ViewFilterInput carries the user's filter intent for the debounced view.
type ViewFilterInput struct {
	Category string `json:"category"`
	Query    string `json:"query"`
}

func (h *HTTPHandler) SetViewFilter(w http.ResponseWriter, r *http.Request) {
	var input ViewFilterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	h.pipeline.SetCriteria(domain.FilterCriteria{Category: input.Category, Query: input.Query})
	respondWithJSON(w, http.StatusAccepted, struct {
		Status string `json:"status"`
	}{Status: "scheduled"})
}

func (h *HTTPHandler) GetView(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	view, criteria := h.pipeline.View()
	respondWithJSON(w, http.StatusOK, CatalogResponse{Data: view, Filter: criteria})
}

// --- Cart handlers ---

// CartResponse is the rendered cart state returned after every query or
// mutation, plus the transient view directives (notice, open/close cart).
type CartResponse struct {
	Data      domain.Cart       `json:"data"`
	Totals    domain.CartTotals `json:"totals"`
	Notice    string            `json:"notice,omitempty"`
	OpenCart  bool              `json:"open_cart,omitempty"`
	CloseCart bool              `json:"close_cart,omitempty"`
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	lines, totals := h.sessionEngine(w, r).Snapshot()
	respondWithJSON(w, http.StatusOK, CartResponse{Data: lines, Totals: totals})
}

// CartItemAddInput defines the expected input for adding a product to the cart.
type CartItemAddInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}

	var input CartItemAddInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	product, ok := h.catalogStore.ProductByID(input.ProductID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "product not found in catalog")
		return
	}

	lines, totals := h.sessionEngine(w, r).Add(r.Context(), product)
	h.storefrontMtrx.CartMutation("add")

	respondWithJSON(w, http.StatusOK, CartResponse{
		Data:     lines,
		Totals:   totals,
		Notice:   product.Title + " added to cart",
		OpenCart: true,
	})
}

// CartItemQtyInput defines the expected input for a quantity change. Delta is
// restricted to single steps.
type CartItemQtyInput struct {
	Delta int `json:"delta" validate:"required,oneof=-1 1"`
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "productId")
	productID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || productID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input CartItemQtyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: delta must be 1 or -1")
		return
	}

	// Unknown product IDs are a silent no-op, not an error condition.
	lines, totals := h.sessionEngine(w, r).ChangeQty(r.Context(), productID, input.Delta)
	h.storefrontMtrx.CartMutation("change_qty")

	respondWithJSON(w, http.StatusOK, CartResponse{Data: lines, Totals: totals})
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "productId")
	productID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || productID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	lines, totals := h.sessionEngine(w, r).Remove(r.Context(), productID)
	h.storefrontMtrx.CartMutation("remove")

	respondWithJSON(w, http.StatusOK, CartResponse{Data: lines, Totals: totals})
}

// ClearCart empties the cart. The explicit yes/no confirmation step is the
// confirm=true query parameter: without it the request is rejected and the
// cart is left untouched.
func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondWithError(w, http.StatusBadRequest, "cart clear requires confirmation (confirm=true)")
		return
	}

	cleared, lines, totals := h.sessionEngine(w, r).Clear(r.Context())
	response := CartResponse{Data: lines, Totals: totals}
	if cleared {
		h.storefrontMtrx.CartMutation("clear")
		response.Notice = "cart cleared"
	}
	respondWithJSON(w, http.StatusOK, response)
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	engine := h.sessionEngine(w, r)
	if err := engine.Checkout(r.Context()); err != nil {
		if errors.Is(err, cart.ErrCartEmpty) {
			respondWithError(w, http.StatusConflict, "cart is empty")
			return
		}
		log.WithError(err).Error("api: checkout failed")
		respondWithError(w, http.StatusInternalServerError, "checkout failed")
		return
	}
	h.storefrontMtrx.CartMutation("checkout")

	lines, totals := engine.Snapshot()
	respondWithJSON(w, http.StatusOK, CartResponse{
		Data:      lines,
		Totals:    totals,
		Notice:    "thank you for your purchase",
		CloseCart: true,
	})
}

// --- Contact handlers ---

// ContactResponse reports the validation outcome. The form is not submitted
// anywhere; success is purely cosmetic.
type ContactResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
	Notice string            `json:"notice,omitempty"`
}

func (h *HTTPHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var input contact.ContactInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if fieldErrors := contact.Validate(input); len(fieldErrors) > 0 {
		respondWithJSON(w, http.StatusUnprocessableEntity, ContactResponse{Valid: false, Errors: fieldErrors})
		return
	}
	respondWithJSON(w, http.StatusOK, ContactResponse{Valid: true, Notice: "message sent"})
}

// --- Middleware ---

// MetricsMiddleware records request durations per method and chi route
// pattern.
func (h *HTTPHandler) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.storefrontMtrx.ObserveRequest(r.Method, route, time.Since(start))
	})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)                // GET  /api/v1/products?category=&q=
		r.Get("/products/{productId}", h.GetProductByID)  // GET  /api/v1/products/{productId}
		r.Get("/categories", h.ListCategories)            // GET  /api/v1/categories
		r.Post("/catalog/refresh", h.RefreshCatalog)      // POST /api/v1/catalog/refresh

		r.Post("/view/filter", h.SetViewFilter) // POST /api/v1/view/filter
		r.Get("/view", h.GetView)               // GET  /api/v1/view

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)           // GET    /api/v1/cart
			r.Delete("/", h.ClearCart)      // DELETE /api/v1/cart?confirm=true
			r.Post("/checkout", h.Checkout) // POST   /api/v1/cart/checkout
			r.Post("/items", h.AddCartItem) // POST   /api/v1/cart/items
			r.Route("/items/{productId}", func(r chi.Router) {
				r.Patch("/", h.UpdateCartItem)  // PATCH  /api/v1/cart/items/{productId}
				r.Delete("/", h.RemoveCartItem) // DELETE /api/v1/cart/items/{productId}
			})
		})

		r.Post("/contact", h.SubmitContact) // POST /api/v1/contact
	})
}
