package domain

// Profile is the signed-in user's account snapshot.
type Profile struct {
	ID      string  `json:"id,omitempty"`
	Email   string  `json:"email,omitempty"`
	Balance float64 `json:"balance"`
}
