package domain

// CartLineItem is one entry of the locally persisted cart, keyed by
// ProductID. Name, SellingPrice and DiscountPercent are display snapshots
// captured when the product was first added; merges never overwrite them.
type CartLineItem struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name,omitempty"`
	SellingPrice    string `json:"sellingPrice,omitempty"`
	DiscountPercent string `json:"discountPercent,omitempty"`
	Quantity        int    `json:"quantity"`
}
