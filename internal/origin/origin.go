// Package origin validates browser Origin headers for the signaling socket.
package origin

import (
	"net/url"
	"strconv"
	"strings"
)

// Allowlist decides which browser origins may open a signaling connection.
//
// A "*" entry admits every origin. With explicit entries, the normalized
// Origin header must match one of them. An empty allowlist falls back to
// same-host: the origin's host[:port] must equal the request's Host header,
// with default ports treated as equivalent.
type Allowlist struct {
	entries  []string
	allowAny bool
}

func ParseAllowlist(entries []string) Allowlist {
	var a Allowlist
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if e == "*" {
			a.allowAny = true
			continue
		}
		if norm, _, ok := normalize(e); ok {
			a.entries = append(a.entries, norm)
		}
	}
	return a
}

func (a Allowlist) Permits(originHeader, requestHost string) bool {
	if a.allowAny {
		return true
	}

	norm, host, ok := normalize(originHeader)
	if !ok {
		return false
	}

	if len(a.entries) > 0 {
		for _, e := range a.entries {
			if e == norm {
				return true
			}
		}
		return false
	}

	// Scheme is deliberately not compared against the request: behind a
	// TLS-terminating proxy the server sees http while the browser sent an
	// https origin.
	scheme := norm[:strings.Index(norm, ":")]
	reqHost, ok := normalizeHost(requestHost, scheme)
	if !ok {
		return false
	}
	return host == reqHost
}

// normalize reduces an Origin header to scheme://host[:port] with a
// lowercased host and default ports stripped.
func normalize(raw string) (normalized, host string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return "", "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", "", false
	}

	host, ok = normalizeHost(u.Host, scheme)
	if !ok {
		return "", "", false
	}
	return scheme + "://" + host, host, true
}

func normalizeHost(rawHost, scheme string) (string, bool) {
	rawHost = strings.ToLower(strings.TrimSpace(rawHost))
	if rawHost == "" {
		return "", false
	}

	hostname, rawPort, ok := splitHostPort(rawHost)
	if !ok || hostname == "" {
		return "", false
	}

	var port uint64
	if rawPort != "" {
		n, err := strconv.ParseUint(rawPort, 10, 16)
		if err != nil || n == 0 {
			return "", false
		}
		port = n
	}
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		port = 0
	}

	host := hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}
	if port != 0 {
		host += ":" + strconv.FormatUint(port, 10)
	}
	return host, true
}

func splitHostPort(raw string) (hostname, port string, ok bool) {
	if strings.HasPrefix(raw, "[") {
		end := strings.IndexByte(raw, ']')
		if end < 0 {
			return "", "", false
		}
		hostname = raw[1:end]
		rest := raw[end+1:]
		if rest == "" {
			return hostname, "", true
		}
		if !strings.HasPrefix(rest, ":") || len(rest) == 1 {
			return "", "", false
		}
		return hostname, rest[1:], true
	}

	switch strings.Count(raw, ":") {
	case 0:
		return raw, "", true
	case 1:
		i := strings.IndexByte(raw, ':')
		if i == 0 || i == len(raw)-1 {
			return "", "", false
		}
		return raw[:i], raw[i+1:], true
	default:
		// Unbracketed IPv6 literals are not valid authority syntax.
		return "", "", false
	}
}
