// Package privacy scrubs credentials and host details from text that leaves
// the process: telemetry events and API error responses.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

// Redacted replaces credential values.
const Redacted = "[REDACTED]"

var (
	urlPattern = regexp.MustCompile(`\b(?:https?|mysql)://\S+`)

	// Google API keys, as used by Gemini.
	googleKeyPattern = regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`)

	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[0-9A-Za-z._\-]+`)

	// user:password@tcp(host:port) as printed by the mysql driver.
	mysqlDSNPattern = regexp.MustCompile(`[^\s:@/]+:[^\s@]*@tcp\([^)]*\)`)

	secretParamPattern = regexp.MustCompile(`(?i)\b(key|api_key|apikey|token|password)=([^&\s]+)`)
)

// ScrubMessage redacts credentials in message and replaces URLs with
// anonymized forms.
func ScrubMessage(message string) string {
	message = mysqlDSNPattern.ReplaceAllString(message, Redacted+"@tcp("+Redacted+")")
	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	message = googleKeyPattern.ReplaceAllString(message, Redacted)
	message = bearerPattern.ReplaceAllString(message, "Bearer "+Redacted)
	return secretParamPattern.ReplaceAllString(message, "${1}="+Redacted)
}

// AnonymizeURL converts a URL to a stable hash of its scheme, host category,
// port and path shape. Credentials and host names never reach the hash input.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := u.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, anonymizePath(u.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// categorizeHost reduces a host to localhost, private-ip, public-ip or its TLD.
func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}

// anonymizePath hashes every path segment except numeric ones.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}
	var segments []string
	for seg := range strings.SplitSeq(path, "/") {
		switch {
		case seg == "":
			continue
		case isNumeric(seg):
			segments = append(segments, "numeric")
		default:
			hash := sha256.Sum256([]byte(seg))
			segments = append(segments, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}
	return strings.Join(segments, "/")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
