package generation

// Event is the content-generation trigger the orchestrator consumes. It is
// assembled upstream from the domain record plus the AI copy response.
type Event struct {
	UserID       string   `json:"userId"`
	DomainID     string   `json:"domainId"`
	PostID       string   `json:"postId"`
	BusinessName string   `json:"businessName"`
	Slogan       string   `json:"slogan"`
	BrandColor   string   `json:"brandColor"`
	SiteLogo     string   `json:"siteLogo,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Platform     string   `json:"platform,omitempty"`
}

// Result identifies the finished visuals of one generation batch.
type Result struct {
	PostID      string `json:"postId"`
	SloganURL   string `json:"sloganUrl"`
	BrandingURL string `json:"brandingUrl"`
}

// AssetStatus values for a post's per-asset edited flag.
const (
	StatusEdited    = "edited"
	StatusNotEdited = "not_edited"
)

// Asset type keys for the post status flags.
const (
	AssetImage    = "image"
	AssetBranding = "branding"
	AssetSlogan   = "slogan"
)
