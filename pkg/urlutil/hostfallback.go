// Package urlutil rewrites a SABR streaming URL's host when the transport
// wrapper decides a server has become unreachable, per spec.md §4.4's host
// fallback algorithm. It never touches anything but the URL's netloc and
// fallback_count query parameter.
package urlutil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// candidateFvips returns {fvip, 1, 2, 3, 4, 5} with duplicates of fvip
// removed, in that order.
func candidateFvips(fvip int) []int {
	order := []int{fvip, 1, 2, 3, 4, 5}
	seen := make(map[int]bool, len(order))
	out := make([]int, 0, len(order))
	for _, v := range order {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// candidateHosts builds the full fallback candidate list: the current host
// first, then for each mn entry (reversed) every deduplicated fvip
// variant, per spec.md §4.4 step 1.
func candidateHosts(currentHost string, mn []string, fvip int) []string {
	hosts := []string{currentHost}
	fvips := candidateFvips(fvip)
	for i := len(mn) - 1; i >= 0; i-- {
		entry := strings.TrimSpace(mn[i])
		if entry == "" {
			continue
		}
		for _, fv := range fvips {
			hosts = append(hosts, fmt.Sprintf("rr%d---%s.googlevideo.com", fv, entry))
		}
	}
	return hosts
}

// HostFallback computes the next SABR URL to try after the current host is
// deemed unreachable. It returns ok=false when the candidate list is
// exhausted (spec.md §4.4 step 4: "give up and fail").
//
// Only the host and fallback_count query parameter change; the scheme,
// path, and every other query parameter (including their original
// encoding and order) are preserved byte-for-byte.
func HostFallback(rawURL string) (next string, ok bool, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, fmt.Errorf("urlutil: parsing SABR URL: %w", err)
	}

	q := u.Query()
	mn := strings.Split(q.Get("mn"), ",")
	fvip, _ := strconv.Atoi(q.Get("fvip"))
	fallbackCount, _ := strconv.Atoi(q.Get("fallback_count"))

	currentHost, port := splitHostPort(u.Host)
	hosts := candidateHosts(currentHost, mn, fvip)

	// hosts[0] is always currentHost by construction (candidateHosts puts
	// it there unconditionally), so it can never tell us how far through
	// hosts[1:] a given call has already advanced. fallback_count is the
	// number of fallbacks already completed, and hosts[1:] is deterministic
	// (mn/fvip derived, independent of which host happens to be current),
	// so it alone is the candidate's position: the next host to try is
	// hosts[fallbackCount+1].
	idx := fallbackCount + 1
	if idx >= len(hosts) {
		return "", false, nil
	}
	nextHost := hosts[idx]

	u.Host = nextHost + port
	u.RawQuery = setRawQueryParam(u.RawQuery, "fallback_count", strconv.Itoa(fallbackCount+1))
	return u.String(), true, nil
}

// splitHostPort splits host into its bare hostname and a ":port" suffix
// (empty if no port is present), so a fallback host rewrite can keep
// whatever port the original URL specified.
func splitHostPort(host string) (hostname, portSuffix string) {
	if i := strings.LastIndex(host, ":"); i != -1 {
		return host[:i], host[i:]
	}
	return host, ""
}

// setRawQueryParam rewrites key's value in-place within a raw, still
// percent-encoded query string, preserving every other parameter's
// literal order and encoding. It appends key=value if key was absent.
func setRawQueryParam(rawQuery, key, value string) string {
	if rawQuery == "" {
		return key + "=" + value
	}
	parts := strings.Split(rawQuery, "&")
	found := false
	for i, p := range parts {
		k := p
		if eq := strings.IndexByte(p, '='); eq != -1 {
			k = p[:eq]
		}
		if k == key {
			parts[i] = key + "=" + value
			found = true
		}
	}
	if !found {
		parts = append(parts, key+"="+value)
	}
	return strings.Join(parts, "&")
}
