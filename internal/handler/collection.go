package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/osse101/CardVault_Go/internal/collection"
	"github.com/osse101/CardVault_Go/internal/domain"
)

// CollectionHandler serves the stack CRUD and move endpoints
type CollectionHandler struct {
	service collection.Service
}

func NewCollectionHandler(service collection.Service) *CollectionHandler {
	return &CollectionHandler{service: service}
}

// AcquireStackRequest adds copies to the collection. Identity fields the
// caller leaves out are filled from the catalog.
type AcquireStackRequest struct {
	CatalogID       string           `json:"catalogId" validate:"max=100"`
	Name            string           `json:"name" validate:"max=200"`
	SetCode         string           `json:"setCode" validate:"max=20"`
	CollectorNumber string           `json:"collectorNumber" validate:"max=20"`
	Finish          string           `json:"finish" validate:"finish"`
	Location        string           `json:"location" validate:"location"`
	Quantity        int              `json:"quantity" validate:"min=0,max=100000"`
	Tags            []string         `json:"tags" validate:"max=50,dive,max=50"`
	PricePaid       *decimal.Decimal `json:"pricePaid"`
	IsWishlist      bool             `json:"isWishlist"`
	Metadata        json.RawMessage  `json:"metadata"`
}

// UpdateStackRequest patches one stack. ClearPrice removes the stored price;
// a quantity of 0 removes the stack.
type UpdateStackRequest struct {
	Tags       *[]string        `json:"tags" validate:"omitempty,max=50,dive,max=50"`
	PricePaid  *decimal.Decimal `json:"pricePaid"`
	ClearPrice bool             `json:"clearPrice"`
	IsWishlist *bool            `json:"isWishlist"`
	Quantity   *int             `json:"quantity" validate:"omitempty,min=0,max=100000"`
}

// MoveStackRequest relocates copies between the binder and decks
type MoveStackRequest struct {
	CatalogID  string `json:"catalogId" validate:"max=100"`
	Name       string `json:"name" validate:"max=200"`
	Finish     string `json:"finish" validate:"finish"`
	From       string `json:"from" validate:"location"`
	To         string `json:"to" validate:"location"`
	Quantity   int    `json:"quantity" validate:"required,min=1,max=100000"`
	Preference string `json:"preference" validate:"omitempty,oneof=none preferPremium preferStandard"`
}

// DisposeResponse reports the copies left after a removal
type DisposeResponse struct {
	Message   string `json:"message"`
	Remaining int    `json:"remaining"`
}

// HandleList handles GET /collection?location=&name=&wishlist=&limit=
func (h *CollectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	filter := collection.ListFilter{Name: GetOptionalQueryParam(r, "name", "")}
	if raw := r.URL.Query().Get("location"); raw != "" {
		loc, err := domain.ParseLocation(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidLocation)
			return
		}
		filter.Location = &loc
	}
	if raw := r.URL.Query().Get("wishlist"); raw != "" {
		wishlist, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidWishlist)
			return
		}
		filter.Wishlist = &wishlist
	}
	limit, ok := intQuery(w, r, "limit", 0, ErrMsgInvalidLimit)
	if !ok {
		return
	}
	filter.Limit = limit

	stacks, err := h.service.List(r.Context(), ownerID, filter)
	if err != nil {
		respondServiceError(w, r, OpListStacks, err)
		return
	}
	respondData(w, http.StatusOK, stacks)
}

// HandleExport handles GET /collection/export
func (h *CollectionHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	stacks, err := h.service.Export(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, r, OpExportStacks, err)
		return
	}
	respondData(w, http.StatusOK, stacks)
}

// HandleAcquire handles POST /collection
func (h *CollectionHandler) HandleAcquire(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req AcquireStackRequest
	if err := DecodeAndValidateRequest(r, w, &req, OpAcquireStack); err != nil {
		return
	}
	// Validated above
	loc, _ := domain.ParseLocation(req.Location)

	in := collection.NewStack{
		CatalogID:       req.CatalogID,
		Name:            req.Name,
		SetCode:         req.SetCode,
		CollectorNumber: req.CollectorNumber,
		Finish:          domain.NormalizeFinish(req.Finish),
		Location:        loc,
		Quantity:        req.Quantity,
		Tags:            req.Tags,
		IsWishlist:      req.IsWishlist,
		Metadata:        metadataOrNil(req.Metadata),
	}
	if req.PricePaid != nil {
		in.PricePaid = decimal.NewNullDecimal(*req.PricePaid)
	}

	stack, err := h.service.Acquire(r.Context(), ownerID, in)
	if err != nil {
		respondServiceError(w, r, OpAcquireStack, err)
		return
	}
	respondData(w, http.StatusCreated, stack)
}

// metadataOrNil drops an absent or JSON null metadata blob
func metadataOrNil(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	return raw
}

// HandleUpdate handles PUT /collection/{id}. Data is null when the stack was removed.
func (h *CollectionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", ErrMsgInvalidStackID)
	if !ok {
		return
	}
	var req UpdateStackRequest
	if err := DecodeAndValidateRequest(r, w, &req, OpUpdateStack); err != nil {
		return
	}
	if req.ClearPrice && req.PricePaid != nil {
		respondError(w, http.StatusBadRequest, ErrMsgInvalidPrice)
		return
	}

	patch := collection.StackPatch{
		Tags:       req.Tags,
		IsWishlist: req.IsWishlist,
		Quantity:   req.Quantity,
	}
	switch {
	case req.ClearPrice:
		patch.PricePaid = &decimal.NullDecimal{}
	case req.PricePaid != nil:
		price := decimal.NewNullDecimal(*req.PricePaid)
		patch.PricePaid = &price
	}

	stack, err := h.service.Update(r.Context(), ownerID, id, patch)
	if err != nil {
		respondServiceError(w, r, OpUpdateStack, err)
		return
	}
	respondData(w, http.StatusOK, stack)
}

// HandleDispose handles DELETE /collection/{id}?quantity=. A missing or zero
// quantity removes the whole stack.
func (h *CollectionHandler) HandleDispose(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", ErrMsgInvalidStackID)
	if !ok {
		return
	}
	n, ok := intQuery(w, r, "quantity", 0, ErrMsgInvalidQuantity)
	if !ok {
		return
	}

	remaining, err := h.service.Dispose(r.Context(), ownerID, id, n)
	if err != nil {
		respondServiceError(w, r, OpDisposeStack, err)
		return
	}
	respondJSON(w, http.StatusOK, DisposeResponse{Message: MsgStackRemoved, Remaining: remaining})
}

// HandleMove handles POST /collection/move
func (h *CollectionHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req MoveStackRequest
	if err := DecodeAndValidateRequest(r, w, &req, OpMoveStack); err != nil {
		return
	}
	from, _ := domain.ParseLocation(req.From)
	to, _ := domain.ParseLocation(req.To)

	preference := domain.PreferNone
	if req.Preference != "" {
		preference = domain.MatchPreference(req.Preference)
	}

	result, err := h.service.Move(r.Context(), ownerID, collection.MoveRequest{
		CatalogID:  req.CatalogID,
		Name:       req.Name,
		Finish:     domain.NormalizeFinish(req.Finish),
		From:       from,
		To:         to,
		Quantity:   req.Quantity,
		Preference: preference,
	})
	if err != nil {
		respondServiceError(w, r, OpMoveStack, err)
		return
	}
	respondData(w, http.StatusOK, result)
}
