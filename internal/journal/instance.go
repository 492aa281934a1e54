package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// InstanceID derives a stable id for a NetBox instance from its base URL, so
// that several NetBox servers can share one journal database.
func InstanceID(baseURL string) string {
	if baseURL == "" {
		return "default"
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return hashString(baseURL)
	}

	// host:port, so netbox-a.example.com and netbox-b.example.com differ
	host := strings.ToLower(parsed.Host)
	if host == "" {
		host = strings.ToLower(baseURL)
	}
	return hashString(host)
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
