package application

// Typed views of the mapped payload. Nil pointers mean the provider did not
// send the field and the existing value is kept.

type orderPayload struct {
	OrderID           string   `json:"orderId"`
	Status            *string  `json:"status"`
	PaymentStatus     *string  `json:"paymentStatus"`
	FulfillmentStatus *string  `json:"fulfillmentStatus"`
	TotalPrice        *float64 `json:"totalPrice"`
	Currency          *string  `json:"currency"`
	CustomerEmail     *string  `json:"customerEmail"`
	Carrier           *string  `json:"carrier"`
	TrackingNumber    *string  `json:"trackingNumber"`
	TrackingURL       *string  `json:"trackingUrl"`
	ShipmentStatus    *string  `json:"shipmentStatus"`
}

type paymentPayload struct {
	OrderID       string   `json:"orderId"`
	Amount        *float64 `json:"amount"`
	Currency      *string  `json:"currency"`
	TransactionID *string  `json:"transactionId"`
}

type taxPayload struct {
	OrderID       *string  `json:"orderId"`
	TransactionID *string  `json:"transactionId"`
	Amount        *float64 `json:"amount"`
	Rate          *float64 `json:"rate"`
	Jurisdiction  *string  `json:"jurisdiction"`
	Country       *string  `json:"country"`
	Service       *string  `json:"service"`
	Nexus         *bool    `json:"nexus"`
}

type productPayload struct {
	ProductID   string   `json:"productId"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	SKU         *string  `json:"sku"`
	Price       *float64 `json:"price"`
	Currency    *string  `json:"currency"`
	Quantity    *int     `json:"quantity"`
	Status      *string  `json:"status"`
}

type inventoryPayload struct {
	ProductID   string  `json:"productId"`
	Quantity    int     `json:"quantity"`
	WarehouseID *string `json:"warehouseId"`
}

type customerPayload struct {
	CustomerID *string `json:"customerId"`
	Email      *string `json:"email"`
	Count      *int64  `json:"count"`
}

type ledgerPayload struct {
	WithdrawalID  string   `json:"withdrawalId"`
	TransactionID string   `json:"transactionId"`
	Amount        *float64 `json:"amount"`
	Currency      *string  `json:"currency"`
	Status        *string  `json:"status"`
}

type connectionPayload struct {
	ExternalID *string        `json:"externalId"`
	CampaignID *string        `json:"campaignId"`
	Status     *string        `json:"status"`
	Metadata   map[string]any `json:"metadata"`
}

type adPerformancePayload struct {
	CampaignID  *string  `json:"campaignId"`
	Impressions *int64   `json:"impressions"`
	Clicks      *int64   `json:"clicks"`
	Revenue     *float64 `json:"revenue"`
}

type analyticsPayload struct {
	FullResync *bool    `json:"fullResync"`
	Revenue    *float64 `json:"revenue"`
	Views      *int64   `json:"views"`
	Customers  *int64   `json:"customers"`
	Orders     *int64   `json:"orders"`
	OutOfStock *int64   `json:"outOfStock"`
}

type securityAlertPayload struct {
	Severity  *string `json:"severity"`
	Message   *string `json:"message"`
	AlertType *string `json:"alertType"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
