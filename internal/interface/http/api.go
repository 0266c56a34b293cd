package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	domcart "example.com/shoecart/internal/domain/cart"
	domproduct "example.com/shoecart/internal/domain/product"
	"example.com/shoecart/internal/infra/notify"
	cartuc "example.com/shoecart/internal/usecase/cart"
	productuc "example.com/shoecart/internal/usecase/product"
	sessionuc "example.com/shoecart/internal/usecase/session"
)

type RequestObserver interface {
	ObserveRequest(route, method, status string, seconds float64)
}

type API struct {
	sessionSvc *sessionuc.Service
	carts      *cartuc.Registry
	productSvc *productuc.Service
	feed       *notify.Feed
	metrics    RequestObserver
	metricsH   http.Handler
	validator  *validator.Validate
	log        zerolog.Logger
}

type Dependencies struct {
	SessionService *sessionuc.Service
	Carts          *cartuc.Registry
	ProductService *productuc.Service
	Feed           *notify.Feed
	Metrics        RequestObserver
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

func NewAPI(deps Dependencies) *API {
	validate := validator.New()
	return &API{
		sessionSvc: deps.SessionService,
		carts:      deps.Carts,
		productSvc: deps.ProductService,
		feed:       deps.Feed,
		metrics:    deps.Metrics,
		metricsH:   deps.MetricsHandler,
		validator:  validate,
		log:        deps.Logger,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(a.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.AllowContentType("application/json", "text/plain"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.metricsH != nil {
		r.Method(http.MethodGet, "/metrics", a.metricsH)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", a.handleStartSession)
		r.Get("/products/{id}", a.handleGetProduct)

		r.Group(func(sr chi.Router) {
			sr.Use(a.sessionMiddleware)
			sr.Get("/cart", a.handleGetCart)
			sr.Post("/cart/items", a.handleAddCartItem)
			sr.Patch("/cart/items/{id}", a.handleUpdateCartItem)
			sr.Delete("/cart/items/{id}", a.handleRemoveCartItem)
			sr.Get("/notifications", a.handleNotifications)
		})
	})

	return r
}

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func parseIDParam(r *http.Request, key string) (int64, error) {
	idStr := chi.URLParam(r, key)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func mapItem(item domcart.Item) map[string]any {
	return map[string]any{
		"id":       item.ID,
		"title":    item.Title,
		"price":    item.Price,
		"image":    item.Image,
		"amount":   item.Amount,
		"subtotal": item.Subtotal(),
	}
}

func mapCart(c domcart.Cart) map[string]any {
	items := make([]map[string]any, 0, len(c))
	for _, item := range c {
		items = append(items, mapItem(item))
	}
	return map[string]any{
		"items":  items,
		"totals": c.Totals(),
	}
}

func mapProduct(p *productuc.Details) map[string]any {
	return map[string]any{
		"id":    p.ID,
		"title": p.Title,
		"price": p.Price,
		"image": p.Image,
		"stock": p.Stock,
	}
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domproduct.ErrOutOfStock):
		respondError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domcart.ErrItemNotFound),
		errors.Is(err, domproduct.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, sessionuc.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domproduct.ErrInventoryUnavailable):
		// upstream inventory service failed
		respondError(w, http.StatusBadGateway, domproduct.ErrInventoryUnavailable)
	case errors.Is(err, cartuc.ErrStorage):
		respondError(w, http.StatusServiceUnavailable, cartuc.ErrStorage)
	default:
		respondError(w, http.StatusInternalServerError, errInternal)
	}
}

func (a *API) observe(r *http.Request, status int, started time.Time) {
	if a.metrics == nil {
		return
	}
	route := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}
	a.metrics.ObserveRequest(route, r.Method, strconv.Itoa(status), time.Since(started).Seconds())
}
