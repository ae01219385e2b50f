// internal/api/client_handler.go
package api

import (
	"net/http"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/entitlement"
	"fittrack/backend/internal/service"
	"fittrack/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// ClientHandler serves the entitlement operations on a client: assigning
// plans, reporting entitlement status and requesting swaps.
type ClientHandler struct {
	core *service.Core
}

func NewClientHandler(core *service.Core) *ClientHandler {
	return &ClientHandler{core: core}
}

// AssignResponse is returned by a successful assignment.
type AssignResponse struct {
	Record *domain.AssignmentRecord `json:"record"`
	Status entitlement.Status       `json:"status"`
}

// ArchiveURLResponse carries a presigned download link.
type ArchiveURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Assign godoc
// @Summary Assign a workout or diet to a client
// @Description Records a new assignment when the client's refresh interval has elapsed and resets the domain's swap allowance.
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client's ObjectID Hex"
// @Param assignment body entitlement.Target true "Plan to assign"
// @Success 201 {object} AssignResponse
// @Failure 400 {object} gin.H "Validation error"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Client not found"
// @Failure 409 {object} gin.H "Concurrent update, retry"
// @Failure 422 {object} gin.H "Rejected by plan policy"
// @Router /clients/{clientId}/assignments [post]
func (h *ClientHandler) Assign(c *gin.Context) {
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req entitlement.Target
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.core.Assign(c.Request.Context(), principalFromContext(c), clientID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AssignResponse{Record: res.Record, Status: res.Status})
}

// Entitlement godoc
// @Summary Report a client's entitlement in one plan domain
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client's ObjectID Hex"
// @Param domain path string true "workout or diet"
// @Success 200 {object} entitlement.Status
// @Failure 404 {object} gin.H "Client not found"
// @Router /clients/{clientId}/entitlements/{domain} [get]
func (h *ClientHandler) Entitlement(c *gin.Context) {
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, ok := pathDomain(c)
	if !ok {
		return
	}

	status, err := h.core.EntitlementStatus(c.Request.Context(), principalFromContext(c), clientID, d)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// RequestSwap godoc
// @Summary Replace an exercise or meal of the current plan
// @Description Only the client owning the record may swap, within the swap window and allowance of the current assignment.
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client's ObjectID Hex"
// @Param swap body entitlement.SwapInput true "Swap request"
// @Success 201 {object} domain.SwapRequest
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 409 {object} gin.H "Concurrent update, retry"
// @Failure 422 {object} gin.H "Rejected by plan policy"
// @Router /clients/{clientId}/swaps [post]
func (h *ClientHandler) RequestSwap(c *gin.Context) {
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req entitlement.SwapInput
	if !bindJSON(c, &req) {
		return
	}

	swap, err := h.core.RequestSwap(c.Request.Context(), principalFromContext(c), clientID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, swap)
}

// HistoryArchiveURL godoc
// @Summary Get a download link for the archived copy of an assignment record
// @Tags History
// @Produce json
// @Security BearerAuth
// @Param domain path string true "workout or diet"
// @Param id path string true "Record's ObjectID Hex"
// @Success 200 {object} ArchiveURLResponse
// @Failure 404 {object} gin.H "Record not found or not archived"
// @Router /history/{domain}/{id}/archive [get]
func (h *ClientHandler) HistoryArchiveURL(c *gin.Context) {
	d, ok := pathDomain(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	expires := storage.DefaultPresignedURLExpiry
	url, err := h.core.HistoryArchiveURL(c.Request.Context(), principalFromContext(c), d, id, expires)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ArchiveURLResponse{URL: url, ExpiresAt: time.Now().Add(expires)})
}

func pathDomain(c *gin.Context) (domain.PlanDomain, bool) {
	d := domain.PlanDomain(c.Param("domain"))
	if !d.Valid() {
		abortWithError(c, apperr.Validation("domain must be workout or diet"))
		return "", false
	}
	return d, true
}
