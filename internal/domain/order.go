package domain

// Order statuses reported by the storefront API.
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusPaid      = "PAID"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// Order is a placed order as returned by the API.
type Order struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	TotalAmount string      `json:"totalAmount"`
	DeliveryFee string      `json:"deliveryFee,omitempty"`
	AddressID   string      `json:"addressId,omitempty"`
	Items       []OrderItem `json:"items,omitempty"`
	CreatedAt   string      `json:"createdAt,omitempty"`
}

// OrderItem is one normalized line of an order submission.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
