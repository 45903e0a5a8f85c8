package intercept

import (
	"net/http"
)

// ResourceType is the host's classification of what a request loads.
type ResourceType string

// Resource types reported by browser hosts.
const (
	ResourceDocument   ResourceType = "document"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceImage      ResourceType = "image"
	ResourceMedia      ResourceType = "media"
	ResourceFont       ResourceType = "font"
	ResourceScript     ResourceType = "script"
	ResourceXHR        ResourceType = "xhr"
	ResourceFetch      ResourceType = "fetch"
	ResourceWebSocket  ResourceType = "websocket"
	ResourceManifest   ResourceType = "manifest"
	ResourceOther      ResourceType = "other"
)

// Request describes one intercepted outbound request. The pipeline only
// reads it.
type Request struct {
	Method string

	// URL is absolute and doubles as the cache key
	URL string

	// Header keys are case-insensitive
	Header http.Header

	// Body is nil for requests without a payload
	Body []byte

	ResourceType ResourceType

	// Navigation is true for top-level document navigations
	Navigation bool
}
