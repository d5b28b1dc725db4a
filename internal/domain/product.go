package domain

// Product is a catalog item. Prices arrive as decimal strings and are kept
// opaque; the server owns all pricing.
type Product struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	SellingPrice    string `json:"sellingPrice"`
	DiscountPercent string `json:"discountPercent,omitempty"`
	Quantity        int    `json:"quantity"`
	ImgURL          string `json:"imgUrl,omitempty"`
	Category        string `json:"category,omitempty"`
}

// CategorySummary is one row of the category listing.
type CategorySummary struct {
	Category     string `json:"category"`
	ProductCount int    `json:"productCount"`
	InStockCount int    `json:"inStockCount"`
}
