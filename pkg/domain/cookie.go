package domain

// SameSite values as reported by the browser cookie store.
const (
	SameSiteNone        = "no_restriction"
	SameSiteLax         = "lax"
	SameSiteStrict      = "strict"
	SameSiteUnspecified = "unspecified"
)

// Cookie is a browser cookie record. The shape follows the browser's own
// cookie API so the backend can replay it unchanged.
type Cookie struct {
	Name           string   `json:"name"`
	Value          string   `json:"value"`
	Domain         string   `json:"domain"`
	HostOnly       bool     `json:"hostOnly"`
	Path           string   `json:"path"`
	Secure         bool     `json:"secure"`
	HTTPOnly       bool     `json:"httpOnly"`
	SameSite       string   `json:"sameSite"`
	Session        bool     `json:"session"`
	ExpirationDate *float64 `json:"expirationDate,omitempty"`
	StoreID        string   `json:"storeId"`
}

// CookieBundle is the set of cookies captured for one hostname.
type CookieBundle struct {
	URL     string   `json:"url"`
	Cookies []Cookie `json:"cookies"`
}
