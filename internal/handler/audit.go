package handler

import (
	"net/http"

	"github.com/osse101/CardVault_Go/internal/audit"
	"github.com/osse101/CardVault_Go/internal/domain"
)

// AuditHandler serves the audit session endpoints
type AuditHandler struct {
	service audit.Service
}

func NewAuditHandler(service audit.Service) *AuditHandler {
	return &AuditHandler{service: service}
}

// StartAuditRequest starts a session over one scope
type StartAuditRequest struct {
	Type     string `json:"type" validate:"required,oneof=collection binder deck set"`
	TargetID string `json:"targetId" validate:"omitempty,max=100,printascii"`
}

// RecordCountRequest updates one item; at least one field must be set
type RecordCountRequest struct {
	Quantity *int  `json:"quantity" validate:"omitempty,min=0,max=100000"`
	Reviewed *bool `json:"reviewed"`
}

// CountUpdateRequest is one entry of a batch update
type CountUpdateRequest struct {
	ID       int64 `json:"id" validate:"required,min=1"`
	Quantity int   `json:"quantity" validate:"min=0,max=100000"`
}

// BatchUpdateRequest records many counts at once
type BatchUpdateRequest struct {
	Updates []CountUpdateRequest `json:"updates" validate:"required,min=1,max=5000,dive"`
}

// AddAuditItemRequest records one scanned card
type AddAuditItemRequest struct {
	CatalogID       string `json:"catalogId" validate:"max=100"`
	SetCode         string `json:"setCode" validate:"max=20"`
	CollectorNumber string `json:"collectorNumber" validate:"max=20"`
	Name            string `json:"name" validate:"max=200"`
	Finish          string `json:"finish" validate:"finish"`
}

// ReviewSectionRequest names one deck or one loose set group
type ReviewSectionRequest struct {
	DeckID string `json:"deckId" validate:"max=100"`
	Group  string `json:"group" validate:"max=20"`
}

// BatchUpdateResponse reports how many items a batch touched
type BatchUpdateResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

// ReviewSectionResponse reports how many items were marked reviewed
type ReviewSectionResponse struct {
	Message  string `json:"message"`
	Reviewed int64  `json:"reviewed"`
}

// HandleStart handles POST /audit/start
func (h *AuditHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req StartAuditRequest
	if err := DecodeAndValidateRequest(r, w, &req, OpStartAudit); err != nil {
		return
	}

	session, err := h.service.Start(r.Context(), ownerID, domain.AuditScope(req.Type), req.TargetID)
	if err != nil {
		respondServiceError(w, r, OpStartAudit, err)
		return
	}
	respondData(w, http.StatusCreated, session)
}

// HandleGetActive handles GET /audit/active. Data is null when no session is open.
func (h *AuditHandler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	session, err := h.service.GetActive(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, r, OpGetActiveAudit, err)
		return
	}
	respondData(w, http.StatusOK, session)
}

// HandleGet handles GET /audit/{id}
func (h *AuditHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}
	session, err := h.service.GetSession(r.Context(), ownerID, id)
	if err != nil {
		respondServiceError(w, r, OpGetAudit, err)
		return
	}
	respondData(w, http.StatusOK, session)
}

// HandleListItems handles GET /audit/{id}/items?deckId=|group=
func (h *AuditHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}
	filter := domain.ItemFilter{
		DeckID: GetOptionalQueryParam(r, "deckId", ""),
		Group:  GetOptionalQueryParam(r, "group", ""),
	}
	items, err := h.service.ListItems(r.Context(), ownerID, id, filter)
	if err != nil {
		respondServiceError(w, r, OpListAuditItems, err)
		return
	}
	if items == nil {
		items = []domain.AuditItem{}
	}
	respondData(w, http.StatusOK, items)
}

// HandleRecordCount handles PUT /audit/{id}/item/{itemId}
func (h *AuditHandler) HandleRecordCount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}
	itemID, ok := int64Param(w, r, "itemId", ErrMsgInvalidItemID)
	if !ok {
		return
	}
	var req RecordCountRequest
	if err := DecodeAndValidateRequest(r, w, &req, OpRecordCount); err != nil {
		return
	}

	item, err := h.service.RecordCount(r.Context(), ownerID, id, itemID, req.Quantity, req.Reviewed)
	if err != nil {
		respondServiceError(w, r, OpRecordCount, err)
		return
	}
	respondData(w, http.StatusOK, item)
}

// HandleBatchUpdate handles POST /audit/{id}/items/batch-update
func (h *AuditHandler) HandleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}
	var req BatchUpdateRequest
	if err := DecodeAndValidateRequest(r, w, &req, OpBatchRecord); err != nil {
		return
	}

	updates := make([]domain.CountUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, domain.CountUpdate{ItemID: u.ID, Quantity: u.Quantity})
	}
	n, err := h.service.BatchRecord(r.Context(), ownerID, id, updates)
	if err != nil {
		respondServiceError(w, r, OpBatchRecord, err)
		return
	}
	respondJSON(w, http.StatusOK, BatchUpdateResponse{Message: MsgCountsRecorded, Updated: n})
}

// HandleAddItem handles POST /audit/{id}/items/add
func (h *AuditHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}
	var req AddAuditItemRequest
	if err := DecodeAndValidateRequest(r, w, &req, OpAddAuditItem); err != nil {
		return
	}

	item, err := h.service.AddItem(r.Context(), ownerID, id, domain.IdentityFragment{
		CatalogID:       req.CatalogID,
		Name:            req.Name,
		SetCode:         req.SetCode,
		CollectorNumber: req.CollectorNumber,
		Finish:          domain.NormalizeFinish(req.Finish),
	})
	if err != nil {
		respondServiceError(w, r, OpAddAuditItem, err)
		return
	}
	respondData(w, http.StatusOK, item)
}

// HandleSwapFoil handles POST /audit/{id}/item/{itemId}/swap-foil
func (h *AuditHandler) HandleSwapFoil(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}
	itemID, ok := int64Param(w, r, "itemId", ErrMsgInvalidItemID)
	if !ok {
		return
	}

	result, err := h.service.SwapFoil(r.Context(), ownerID, id, itemID)
	if err != nil {
		respondServiceError(w, r, OpSwapFoil, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

// HandleFinalize handles POST /audit/{id}/finalize
func (h *AuditHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}

	report, err := h.service.Finalize(r.Context(), ownerID, id)
	if err != nil {
		respondServiceError(w, r, OpFinalizeAudit, err)
		return
	}
	respondData(w, http.StatusOK, report)
}

// HandleCancel handles POST /audit/{id}/cancel
func (h *AuditHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), ownerID, id); err != nil {
		respondServiceError(w, r, OpCancelAudit, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgAuditCancelled})
}

// HandleStats handles GET /audit/{id}/stats?groupBy=
func (h *AuditHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}
	groupBy := domain.StatsGroupBy(GetOptionalQueryParam(r, "groupBy", string(domain.GroupBySet)))

	stats, err := h.service.Stats(r.Context(), ownerID, id, groupBy)
	if err != nil {
		respondServiceError(w, r, OpAuditStats, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// HandleReviewSection handles POST /audit/{id}/section/review
func (h *AuditHandler) HandleReviewSection(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidSessionID)
	if !ok {
		return
	}
	var req ReviewSectionRequest
	if err := DecodeAndValidateRequest(r, w, &req, OpReviewSection); err != nil {
		return
	}

	n, err := h.service.ReviewSection(r.Context(), ownerID, id, domain.ItemFilter{DeckID: req.DeckID, Group: req.Group})
	if err != nil {
		respondServiceError(w, r, OpReviewSection, err)
		return
	}
	respondJSON(w, http.StatusOK, ReviewSectionResponse{Message: MsgSectionReviewed, Reviewed: n})
}
