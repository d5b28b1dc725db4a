package stubserver

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-client/internal/domain"
)

const (
	ctxCustomerID = "customerID"
	ctxToken      = "token"
)

// requireAuth resolves the bearer token and aborts with the precise
// auth-invalidation code on failure.
func requireAuth(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			errJSON(c, http.StatusUnauthorized, domain.CodeTokenRequired)
			return
		}
		id, code := st.resolveToken(token)
		if code != "" {
			status := http.StatusUnauthorized
			if code == domain.CodeCustomerNotFound {
				status = http.StatusNotFound
			}
			errJSON(c, status, code)
			return
		}
		c.Set(ctxCustomerID, id)
		c.Set(ctxToken, token)
		c.Next()
	}
}

func sendOTPHandler(st *state, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Phone string `json:"phone"`
		}
		_ = c.ShouldBindJSON(&req)
		phone := strings.TrimSpace(req.Phone)
		if phone == "" {
			errJSON(c, http.StatusBadRequest, domain.CodePhoneRequired)
			return
		}
		st.mu.Lock()
		st.otps[phone] = otpCode
		st.mu.Unlock()
		logger.Printf("otp for %s is %s", phone, otpCode)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func verifyOTPHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Phone string `json:"phone"`
			OTP   string `json:"otp"`
		}
		_ = c.ShouldBindJSON(&req)
		phone := strings.TrimSpace(req.Phone)
		if phone == "" {
			errJSON(c, http.StatusBadRequest, domain.CodePhoneRequired)
			return
		}
		otp := strings.TrimSpace(req.OTP)
		if otp == "" {
			errJSON(c, http.StatusBadRequest, domain.CodeOTPRequired)
			return
		}
		if otp != otpCode {
			errJSON(c, http.StatusUnauthorized, domain.CodeOTPInvalid)
			return
		}
		token, customer, err := st.issueToken(phone)
		if err != nil {
			errJSON(c, http.StatusInternalServerError, domain.CodeTokenCreateFailed)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "customer": customer})
	}
}

func logoutHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.revokeToken(c.GetString(ctxToken))
		c.Status(http.StatusNoContent)
	}
}

func getMeHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.mu.Lock()
		customer := *st.customers[c.GetString(ctxCustomerID)]
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"customer": customer})
	}
}

func patchMeHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name  *string `json:"name"`
			Email *string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			errJSON(c, http.StatusBadRequest, domain.CodeRequestFailed)
			return
		}
		st.mu.Lock()
		customer := st.customers[c.GetString(ctxCustomerID)]
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			customer.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			customer.Email = strings.TrimSpace(*req.Email)
		}
		out := *customer
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"customer": out})
	}
}

func statusHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.mu.Lock()
		customer := *st.customers[c.GetString(ctxCustomerID)]
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"isWhitelisted": true, "customer": customer})
	}
}

func settingsHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.mu.Lock()
		fee := st.deliveryFee
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"deliveryFee": fee})
	}
}

func listAddressesHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.mu.Lock()
		list := append([]domain.Address{}, st.addresses[c.GetString(ctxCustomerID)]...)
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"addresses": list})
	}
}

func createAddressHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Label string `json:"label"`
			Line1 string `json:"line1"`
			Line2 string `json:"line2"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Line1) == "" {
			errJSON(c, http.StatusBadRequest, domain.CodeRequestFailed)
			return
		}
		addr := domain.Address{
			ID:    uuid.NewString(),
			Label: strings.TrimSpace(req.Label),
			Line1: strings.TrimSpace(req.Line1),
			Line2: strings.TrimSpace(req.Line2),
		}
		id := c.GetString(ctxCustomerID)
		st.mu.Lock()
		st.addresses[id] = append(st.addresses[id], addr)
		st.mu.Unlock()
		c.JSON(http.StatusCreated, gin.H{"address": addr})
	}
}

func updateAddressHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Label *string `json:"label"`
			Line1 *string `json:"line1"`
			Line2 *string `json:"line2"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			errJSON(c, http.StatusBadRequest, domain.CodeRequestFailed)
			return
		}
		id := c.GetString(ctxCustomerID)
		addressID := c.Param("id")
		st.mu.Lock()
		defer st.mu.Unlock()
		for i, addr := range st.addresses[id] {
			if addr.ID != addressID {
				continue
			}
			if req.Label != nil {
				addr.Label = strings.TrimSpace(*req.Label)
			}
			if req.Line1 != nil && strings.TrimSpace(*req.Line1) != "" {
				addr.Line1 = strings.TrimSpace(*req.Line1)
			}
			if req.Line2 != nil {
				addr.Line2 = strings.TrimSpace(*req.Line2)
			}
			st.addresses[id][i] = addr
			c.JSON(http.StatusOK, gin.H{"address": addr})
			return
		}
		errJSON(c, http.StatusNotFound, domain.CodeRequestFailed)
	}
}

func deleteAddressHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetString(ctxCustomerID)
		addressID := c.Param("id")
		st.mu.Lock()
		next := st.addresses[id][:0]
		for _, addr := range st.addresses[id] {
			if addr.ID != addressID {
				next = append(next, addr)
			}
		}
		st.addresses[id] = next
		st.mu.Unlock()
		c.Status(http.StatusNoContent)
	}
}

func listItemsHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.mu.Lock()
		items := append([]domain.Product{}, st.items...)
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func searchItemsHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			errJSON(c, http.StatusBadRequest, domain.CodeQueryRequired)
			return
		}
		st.mu.Lock()
		matched := []domain.Product{}
		for _, it := range st.items {
			if matchesQuery(it, q) {
				matched = append(matched, it)
			}
		}
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"items": matched})
	}
}

func listCategoriesHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.mu.Lock()
		var order []string
		counts := make(map[string]*domain.CategorySummary)
		for _, it := range st.items {
			summary, ok := counts[it.Category]
			if !ok {
				summary = &domain.CategorySummary{Category: it.Category}
				counts[it.Category] = summary
				order = append(order, it.Category)
			}
			summary.ProductCount++
			if it.Quantity > 0 {
				summary.InStockCount++
			}
		}
		st.mu.Unlock()
		out := make([]domain.CategorySummary, 0, len(order))
		for _, cat := range order {
			out = append(out, *counts[cat])
		}
		c.JSON(http.StatusOK, gin.H{"categories": out})
	}
}

func categoryItemsHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := c.Param("category")
		st.mu.Lock()
		matched := []domain.Product{}
		for _, it := range st.items {
			if it.Category == category {
				matched = append(matched, it)
			}
		}
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"items": matched})
	}
}

func createOrderHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Items       []domain.OrderItem `json:"items"`
			DeliveryFee string             `json:"deliveryFee"`
			AddressID   string             `json:"addressId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			errJSON(c, http.StatusBadRequest, domain.CodeRequestFailed)
			return
		}
		addressID := strings.TrimSpace(req.AddressID)
		if addressID == "" {
			errJSON(c, http.StatusBadRequest, domain.CodeAddressIDRequired)
			return
		}
		if len(req.Items) == 0 {
			errJSON(c, http.StatusBadRequest, domain.CodeOrderCreateFailed)
			return
		}

		id := c.GetString(ctxCustomerID)
		st.mu.Lock()
		ownsAddress := false
		for _, addr := range st.addresses[id] {
			if addr.ID == addressID {
				ownsAddress = true
				break
			}
		}
		st.mu.Unlock()
		if !ownsAddress {
			errJSON(c, http.StatusBadRequest, domain.CodeAddressIDRequired)
			return
		}

		total := 0.0
		for _, it := range req.Items {
			if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 {
				errJSON(c, http.StatusBadRequest, domain.CodeOrderCreateFailed)
				return
			}
			price, ok := st.priceOf(it.ProductID)
			if !ok {
				errJSON(c, http.StatusBadRequest, domain.CodeOrderCreateFailed)
				return
			}
			total += price * float64(it.Quantity)
		}
		if fee, err := strconv.ParseFloat(strings.TrimSpace(req.DeliveryFee), 64); err == nil {
			total += fee
		}

		order := domain.Order{
			ID:          uuid.NewString(),
			Status:      domain.OrderStatusCreated,
			TotalAmount: strconv.FormatFloat(total, 'f', 2, 64),
			DeliveryFee: strings.TrimSpace(req.DeliveryFee),
			AddressID:   addressID,
			Items:       req.Items,
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		st.mu.Lock()
		st.orders[id] = append([]domain.Order{order}, st.orders[id]...)
		st.mu.Unlock()
		c.JSON(http.StatusCreated, gin.H{"order": order})
	}
}

func listOrdersHandler(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.mu.Lock()
		list := append([]domain.Order{}, st.orders[c.GetString(ctxCustomerID)]...)
		st.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"orders": list})
	}
}
