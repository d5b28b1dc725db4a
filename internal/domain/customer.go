package domain

// Customer is the profile returned by the storefront API. The client treats
// it as a value blob beyond the fields it renders.
type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Address is a saved delivery address.
type Address struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
}

// AccountStatus reports whitelist state for the current customer.
type AccountStatus struct {
	IsWhitelisted bool      `json:"isWhitelisted"`
	Customer      *Customer `json:"customer,omitempty"`
}
