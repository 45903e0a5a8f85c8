package upstream

import (
	"net/http"
)

// BuildHeaders returns the header set for the upstream fetch: the browser's
// own headers plus fetch metadata that a real browser would send for this
// kind of request. src is not modified.
func BuildHeaders(src http.Header, navigation bool) http.Header {
	h := src.Clone()
	if h == nil {
		h = make(http.Header)
	}

	h.Set("Connection", "keep-alive")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("DNT", "1")

	if navigation {
		site := "none"
		if src.Get("Referer") != "" {
			site = "cross-site"
		}
		h.Set("Sec-Fetch-Dest", "document")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Sec-Fetch-Site", site)
		h.Set("Sec-Fetch-User", "?1")
	} else {
		h.Set("Sec-Fetch-Mode", "no-cors")
		h.Set("Sec-Fetch-Site", "same-origin")
	}

	return h
}
