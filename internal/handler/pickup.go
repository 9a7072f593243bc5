package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foodshare/pickup-api/internal/auth"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/service"
)

// PickupHandler serves /api/food-pickups. Every route requires a session;
// the router wraps them in auth.RequireAuth.
type PickupHandler struct {
	pickups *service.PickupService
	logger  *slog.Logger
}

func NewPickupHandler(pickups *service.PickupService, logger *slog.Logger) *PickupHandler {
	return &PickupHandler{pickups: pickups, logger: logger}
}

type createPickupRequest struct {
	NGOID           int64     `json:"ngoId" validate:"required,gt=0"`
	Title           string    `json:"title" validate:"required,max=200"`
	Description     string    `json:"description" validate:"required,max=2000"`
	Address         string    `json:"address" validate:"required,max=200"`
	City            string    `json:"city" validate:"required,max=100"`
	State           string    `json:"state" validate:"required,max=100"`
	ZipCode         string    `json:"zipCode" validate:"required,max=20"`
	FoodItems       string    `json:"foodItems" validate:"required,max=2000"`
	Quantity        string    `json:"quantity" validate:"required,max=200"`
	PickupTime      time.Time `json:"pickupTime" validate:"required"`
	PickupEndTime   time.Time `json:"pickupEndTime" validate:"required,gtefield=PickupTime"`
	Destination     string    `json:"destination" validate:"required,max=200"`
	AdditionalNotes *string   `json:"additionalNotes" validate:"omitempty,max=2000"`
	Distance        *string   `json:"distance" validate:"omitempty,max=50"`
}

// HandleCreate posts a new pickup.
//
// HTTP: POST /api/food-pickups
// REQUEST BODY: the pickup fields; times are RFC 3339 strings.
// 201 with the stored pickup (status "pending", volunteerId null).
// 400 on invalid fields or an unknown ngoId.
// 403 unless the caller is an admin or the NGO that owns ngoId.
func (h *PickupHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPickupRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.pickups.Create(r.Context(), currentUser(r), service.CreatePickupInput{
		NGOID:           req.NGOID,
		Title:           req.Title,
		Description:     req.Description,
		Address:         req.Address,
		City:            req.City,
		State:           req.State,
		ZipCode:         req.ZipCode,
		FoodItems:       req.FoodItems,
		Quantity:        req.Quantity,
		PickupTime:      req.PickupTime,
		PickupEndTime:   req.PickupEndTime,
		Destination:     req.Destination,
		AdditionalNotes: req.AdditionalNotes,
		Distance:        req.Distance,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// HandleList: GET /api/food-pickups
func (h *PickupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.pickups.List(r.Context()))
}

// HandleListAvailable returns pending pickups that start in the future.
//
// HTTP: GET /api/food-pickups/available
func (h *PickupHandler) HandleListAvailable(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.pickups.ListAvailable(r.Context()))
}

// HandleListByOrganization: GET /api/food-pickups/ngo/{ngoId}
func (h *PickupHandler) HandleListByOrganization(w http.ResponseWriter, r *http.Request) {
	ngoID, ok := pathID(r, "ngoId")
	if !ok {
		writeMessageError(w, "Invalid NGO ID")
		return
	}
	h.writeList(w)(h.pickups.ListByOrganization(r.Context(), ngoID))
}

// HandleListByVolunteer returns the caller's own assignments.
//
// HTTP: GET /api/food-pickups/volunteer
func (h *PickupHandler) HandleListByVolunteer(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.pickups.ListByVolunteer(r.Context(), currentUser(r)))
}

// writeList adapts a service (pickups, err) pair into a response, so the
// list handlers stay one line each.
func (h *PickupHandler) writeList(w http.ResponseWriter) func([]model.Pickup, error) {
	return func(pickups []model.Pickup, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pickups)
	}
}

// HandleAssign lets a volunteer claim a pending pickup.
//
// HTTP: POST /api/food-pickups/{id}/assign
// 200 with the updated pickup; 403 for non-volunteers; 404 when the
// pickup is missing or someone else got there first.
func (h *PickupHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessageError(w, "Invalid pickup ID")
		return
	}

	p, err := h.pickups.Assign(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleChangeStatus completes or cancels a pickup.
//
// HTTP: POST /api/food-pickups/{id}/status
// REQUEST BODY: {"status": "completed"}
// 400 unknown status, 404 missing pickup, 403 not allowed, 409 when the
// pickup cannot move to that status from where it is.
func (h *PickupHandler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessageError(w, "Invalid pickup ID")
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.pickups.ChangeStatus(r.Context(), currentUser(r), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// currentUser is only called behind RequireAuth, so the user is present.
func currentUser(r *http.Request) *model.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeMessageError sends a 400 for a malformed path parameter.
func writeMessageError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: message})
}
