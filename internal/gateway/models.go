package gateway

type paymentIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type payoutRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
}

type Payout struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type refundRequest struct {
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type gatewayError struct {
	Message string `json:"message"`
}
