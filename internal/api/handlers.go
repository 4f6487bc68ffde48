package api

import (
	"net/http"
	"strconv"

	"github.com/ashendes/order-edit/internal/ledger"
	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/ashendes/order-edit/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type sectionRequest struct {
	Section session.Section `json:"section" binding:"required"`
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type updateItemRequest struct {
	Quantity *int             `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
	Name     *string          `json:"name"`
}

type queryRequest struct {
	Query string `json:"query"`
}

// selectRequest picks an address from exactly one source: a search result,
// a saved address or a point on the map
type selectRequest struct {
	CandidateID string   `json:"candidateId"`
	AddressID   string   `json:"addressId"`
	Longitude   *float64 `json:"longitude"`
	Latitude    *float64 `json:"latitude"`
}

type addressPatch struct {
	Type     *string `json:"type"`
	Street   *string `json:"street"`
	Area     *string `json:"area"`
	Landmark *string `json:"landmark"`
	City     *string `json:"city"`
	State    *string `json:"state"`
	ZipCode  *string `json:"zipCode"`
	Country  *string `json:"country"`
}

func (p addressPatch) apply(a *models.Address) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.Type, p.Type)
	set(&a.Street, p.Street)
	set(&a.Area, p.Area)
	set(&a.Landmark, p.Landmark)
	set(&a.City, p.City)
	set(&a.State, p.State)
	set(&a.ZipCode, p.ZipCode)
	set(&a.Country, p.Country)
}

type additionalInfoRequest struct {
	AdditionalInfo string `json:"additionalInfo"`
}

type tipRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type couponRequest struct {
	Code string `json:"code" binding:"required"`
}

type loyaltyRequest struct {
	Points *int `json:"points" binding:"required"`
}

// openSession opens the edit session named by the orderId path parameter,
// writing the error response when it cannot
func (s *Server) openSession(c *gin.Context) (*session.Controller, bool) {
	ctrl, err := s.sessions.Open(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ctrl, true
}

// respondView answers with the session state, or err when the operation failed
func respondView(c *gin.Context, ctrl *session.Controller, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := ctrl.View()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		metrics.RequestRejections.WithLabelValues(c.FullPath()).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return false
	}
	return true
}

func itemIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item index: " + c.Param("index")})
		return 0, false
	}
	return index, true
}

func (s *Server) getSession(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, nil)
}

func (s *Server) reload(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	_, err := ctrl.Load(c.Request.Context())
	respondView(c, ctrl, err)
}

func (s *Server) closeSession(c *gin.Context) {
	orderID := c.Param("orderId")
	if !s.sessions.Close(orderID) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "No open session",
			"order_id": orderID,
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	order, err := ctrl.UpdateStatus(c.Request.Context(), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) startEdit(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.StartEdit())
}

func (s *Server) switchSection(c *gin.Context) {
	var req sectionRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.SwitchSection(req.Section))
}

func (s *Server) save(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	_, err := ctrl.Save(c.Request.Context())
	respondView(c, ctrl, err)
}

func (s *Server) cancel(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.Cancel())
}

func (s *Server) searchMenu(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	matches, err := ctrl.SearchMenu(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (s *Server) addItem(c *gin.Context) {
	var req addItemRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.AddProduct(c.Request.Context(), req.ProductID))
}

func (s *Server) addCustomItem(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	item, err := ctrl.AddCustomItem()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// updateItem applies whichever of quantity, price and name are present
func (s *Server) updateItem(c *gin.Context) {
	index, ok := itemIndex(c)
	if !ok {
		return
	}
	var req updateItemRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}

	err := ctrl.UpdateItem(c.Request.Context(), index, ledger.Change{
		Quantity: req.Quantity,
		Price:    req.Price,
		Name:     req.Name,
	})
	respondView(c, ctrl, err)
}

func (s *Server) removeItem(c *gin.Context) {
	index, ok := itemIndex(c)
	if !ok {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.RemoveItem(c.Request.Context(), index))
}

// queryAddress records the search text; results arrive once typing settles
func (s *Server) queryAddress(c *gin.Context) {
	var req queryRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	if err := ctrl.SearchAddress(req.Query); err != nil {
		respondError(c, err)
		return
	}
	view, err := ctrl.View()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

func (s *Server) searchAddress(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	candidates, err := ctrl.SearchAddressNow(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

func (s *Server) selectAddress(c *gin.Context) {
	var req selectRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var err error
	switch {
	case req.CandidateID != "":
		_, err = ctrl.SelectCandidate(ctx, req.CandidateID)
	case req.AddressID != "":
		_, err = ctrl.SelectSavedAddress(ctx, req.AddressID)
	case req.Longitude != nil && req.Latitude != nil:
		_, err = ctrl.SelectFromMap(ctx, *req.Longitude, *req.Latitude)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidateId, addressId or longitude and latitude is required"})
		return
	}
	respondView(c, ctrl, err)
}

func (s *Server) newAddress(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.NewAddress())
}

func (s *Server) updateAddress(c *gin.Context) {
	var req addressPatch
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.UpdateAddress(req.apply))
}

func (s *Server) savedAddresses(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	saved, err := ctrl.SavedAddresses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": saved})
}

func (s *Server) setAdditionalInfo(c *gin.Context) {
	var req additionalInfoRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.SetAdditionalInfo(req.AdditionalInfo))
}

func (s *Server) setTip(c *gin.Context) {
	var req tipRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	respondView(c, ctrl, ctrl.SetTip(*req.Amount))
}

func (s *Server) listCoupons(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	options, err := ctrl.Coupons(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": options})
}

func (s *Server) applyCoupon(c *gin.Context) {
	var req couponRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	_, err := ctrl.ApplyCoupon(c.Request.Context(), req.Code)
	respondView(c, ctrl, err)
}

func (s *Server) removeCoupon(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	_, err := ctrl.RemoveCoupon()
	respondView(c, ctrl, err)
}

func (s *Server) setLoyalty(c *gin.Context) {
	var req loyaltyRequest
	if !bind(c, &req) {
		return
	}
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	_, err := ctrl.SetLoyaltyPoints(*req.Points)
	respondView(c, ctrl, err)
}

func (s *Server) retryPricing(c *gin.Context) {
	ctrl, ok := s.openSession(c)
	if !ok {
		return
	}
	_, err := ctrl.RetryPricing(c.Request.Context())
	respondView(c, ctrl, err)
}

// Address book

func (s *Server) listAddresses(c *gin.Context) {
	addresses, err := s.addresses.List(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

func (s *Server) createAddress(c *gin.Context) {
	var req models.Address
	if !bind(c, &req) {
		return
	}
	if coords, ok := req.Coordinates(); ok {
		req.SetCoordinates(coords)
	}
	created, err := s.addresses.Create(c.Request.Context(), c.Param("customerId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	log.WithFields(log.Fields{
		"customer_id": c.Param("customerId"),
		"address_id":  created.ID,
	}).Info("Saved address created")

	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateSavedAddress(c *gin.Context) {
	var req models.Address
	if !bind(c, &req) {
		return
	}
	if coords, ok := req.Coordinates(); ok {
		req.SetCoordinates(coords)
	}
	updated, err := s.addresses.Update(c.Request.Context(), c.Param("customerId"), c.Param("addressId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteAddress(c *gin.Context) {
	if err := s.addresses.Delete(c.Request.Context(), c.Param("customerId"), c.Param("addressId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
