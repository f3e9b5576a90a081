package anthropic

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

const publicHost = "api.anthropic.com"

// ValidateBaseURL rejects an ANTHROPIC_BASE_URL that would send the API key
// anywhere but an https endpoint on an allowed host. Empty means the public API.
func ValidateBaseURL(raw string, allowedHosts []string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid ANTHROPIC_BASE_URL: %w", err)
	}

	host := strings.ToLower(u.Hostname())
	var problem string
	switch {
	case u.Scheme == "" || host == "":
		problem = "absolute URL with host is required"
	case u.User != nil:
		problem = "userinfo is not allowed"
	case u.RawQuery != "" || u.Fragment != "" || u.ForceQuery:
		problem = "query and fragment are not allowed"
	case !strings.EqualFold(u.Scheme, "https"):
		problem = "https is required"
	case !slices.Contains(hostsOrPublic(allowedHosts), host):
		problem = fmt.Sprintf("host %q is not in ANTHROPIC_ALLOWED_HOSTS", host)
	}
	if problem != "" {
		return fmt.Errorf("invalid ANTHROPIC_BASE_URL %q: %s", raw, problem)
	}
	return nil
}

func hostsOrPublic(entries []string) []string {
	var hosts []string
	for _, e := range entries {
		if h := hostOf(e); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return []string{publicHost}
	}
	return hosts
}

// hostOf reduces an allow-list entry like "https://gw.internal:8443/" to "gw.internal".
func hostOf(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return ""
	}
	if !strings.Contains(entry, "://") {
		entry = "https://" + entry
	}
	u, err := url.Parse(entry)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// ParseAllowedHosts splits a comma separated ANTHROPIC_ALLOWED_HOSTS value.
func ParseAllowedHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
