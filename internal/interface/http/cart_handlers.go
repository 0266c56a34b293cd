package http

import (
	"net/http"

	domcart "example.com/shoecart/internal/domain/cart"
	cartuc "example.com/shoecart/internal/usecase/cart"
)

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// Amount is a pointer so that zero and negative values reach the store,
// which treats them as a no-op.
type updateCartItemRequest struct {
	Amount *int64 `json:"amount" validate:"required"`
}

func (a *API) openStore(w http.ResponseWriter, r *http.Request) (*cartuc.Store, bool) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return nil, false
	}
	store, err := a.carts.Open(domcart.WithSession(r.Context(), sessionID), sessionID)
	if err != nil {
		handleDomainError(w, err)
		return nil, false
	}
	return store, true
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := a.openStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mapCart(store.Cart()))
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	store, ok := a.openStore(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx := domcart.WithSession(r.Context(), getSessionID(r.Context()))
	if err := store.AddProduct(ctx, req.ProductID); err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapCart(store.Cart()))
}

func (a *API) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	store, ok := a.openStore(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req updateCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx := domcart.WithSession(r.Context(), getSessionID(r.Context()))
	if err := store.UpdateProductAmount(ctx, id, *req.Amount); err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapCart(store.Cart()))
}

func (a *API) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	store, ok := a.openStore(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx := domcart.WithSession(r.Context(), getSessionID(r.Context()))
	if err := store.RemoveProduct(ctx, id); err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapCart(store.Cart()))
}

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if a.feed == nil {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": a.feed.Drain(sessionID)})
}
