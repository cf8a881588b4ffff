package utils

import (
	"net/url"
	"strings"
)

// PlaceholderLogoURL derives a deterministic avatar-style logo URL from the
// business name, used when a domain has no site logo of its own.
func PlaceholderLogoURL(businessName string) string {
	name := strings.TrimSpace(businessName)
	if name == "" {
		name = "Brand"
	}
	q := url.Values{}
	q.Set("name", name)
	q.Set("size", "256")
	q.Set("background", "random")
	q.Set("format", "png")
	return "https://ui-avatars.com/api/?" + q.Encode()
}
