package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/intercept-cache/pkg/intercept"
)

// Response headers added by the proxy.
const (
	headerRequestID = "X-Request-Id"
	headerCache     = "X-Cache"
	headerCacheTier = "X-Cache-Tier"
	headerAbort     = "X-Intercept-Abort"
)

// maxRequestBody caps request payloads read into memory before interception.
// Larger bodies are rejected, never truncated.
const maxRequestBody = 32 << 20

// Hop-by-hop headers are connection-scoped and never forwarded (RFC 9110 §7.6.1).
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// proxyHandler is the host side of the interception contract: it turns
// absolute-form proxy requests into intercept.Requests and carries out the
// returned instruction.
type proxyHandler struct {
	pipeline *intercept.Pipeline

	// passthrough serves Continue instructions
	passthrough http.RoundTripper

	logger zerolog.Logger
}

func newProxyHandler(pipeline *intercept.Pipeline, passthrough http.RoundTripper, logger zerolog.Logger) *proxyHandler {
	return &proxyHandler{
		pipeline:    pipeline,
		passthrough: passthrough,
		logger:      logger,
	}
}

func (h *proxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(headerRequestID, requestID)
	logger := h.logger.With().Str("request_id", requestID).Logger()

	if r.Method == http.MethodConnect {
		http.Error(w, "CONNECT tunnels cannot be intercepted", http.StatusMethodNotAllowed)
		return
	}
	if !r.URL.IsAbs() {
		http.Error(w, "proxy requests must use an absolute URL", http.StatusBadRequest)
		return
	}

	if r.Body != nil && r.Body != http.NoBody {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	}
	req, err := toInterceptRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	in := h.pipeline.Handle(r.Context(), req)
	logger.Debug().
		Str("url", req.URL).
		Str("resource_type", string(req.ResourceType)).
		Str("outcome", in.Outcome()).
		Msg("Intercepted request")

	switch in.Action {
	case intercept.ActionAbort:
		writeAbort(w, in.Reason)
	case intercept.ActionContinue:
		h.forward(w, r, req, logger)
	case intercept.ActionFulfill:
		writeFulfill(w, in)
	}
}

// toInterceptRequest maps a proxy request onto the pipeline's request model.
func toInterceptRequest(r *http.Request) (*intercept.Request, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
	}

	header := r.Header.Clone()
	removeHopHeaders(header)

	return &intercept.Request{
		Method:       r.Method,
		URL:          r.URL.String(),
		Header:       header,
		Body:         body,
		ResourceType: resourceTypeFor(r.Header.Get("Sec-Fetch-Dest")),
		Navigation:   r.Header.Get("Sec-Fetch-Mode") == "navigate",
	}, nil
}

// resourceTypeFor derives the resource type from the Sec-Fetch-Dest request
// header that browsers attach to every request.
func resourceTypeFor(dest string) intercept.ResourceType {
	switch strings.ToLower(dest) {
	case "image":
		return intercept.ResourceImage
	case "audio", "video", "track":
		return intercept.ResourceMedia
	case "document", "iframe", "frame":
		return intercept.ResourceDocument
	case "style":
		return intercept.ResourceStylesheet
	case "script", "worker", "sharedworker", "serviceworker":
		return intercept.ResourceScript
	case "font":
		return intercept.ResourceFont
	case "manifest":
		return intercept.ResourceManifest
	case "websocket":
		return intercept.ResourceWebSocket
	case "empty", "":
		return intercept.ResourceFetch
	default:
		return intercept.ResourceOther
	}
}

func writeAbort(w http.ResponseWriter, reason intercept.AbortReason) {
	status := http.StatusBadGateway
	if reason == intercept.ReasonBlockedByClient {
		status = http.StatusForbidden
	}
	w.Header().Set(headerAbort, string(reason))
	http.Error(w, string(reason), status)
}

func writeFulfill(w http.ResponseWriter, in intercept.Instruction) {
	dst := w.Header()
	for key, values := range in.Header {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
	removeHopHeaders(dst)
	dst.Set("Content-Length", strconv.Itoa(len(in.Body)))
	if in.ContentType != "" && dst.Get("Content-Type") == "" {
		dst.Set("Content-Type", in.ContentType)
	}

	if in.FromCache {
		dst.Set(headerCache, "HIT")
		dst.Set(headerCacheTier, string(in.Tier))
	} else {
		dst.Set(headerCache, "MISS")
	}

	w.WriteHeader(in.Status)
	w.Write(in.Body)
}

// forward sends the request on unchanged, outside the cache.
func (h *proxyHandler) forward(w http.ResponseWriter, r *http.Request, req *intercept.Request, logger zerolog.Logger) {
	out, err := http.NewRequestWithContext(r.Context(), req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out.Header = req.Header.Clone()

	resp, err := h.passthrough.RoundTrip(out)
	if err != nil {
		logger.Warn().Err(err).Str("url", req.URL).Msg("Passthrough failed")
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	dst := w.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
	removeHopHeaders(dst)

	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func removeHopHeaders(h http.Header) {
	for _, name := range h.Values("Connection") {
		for _, field := range strings.Split(name, ",") {
			if field = strings.TrimSpace(field); field != "" {
				h.Del(field)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
