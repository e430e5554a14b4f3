// Package relay forwards browser requests to allow-listed upstream functions and adds permissive
// CORS headers to the reply.
package relay

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"

// Handler serves GET|POST /?proxyOf=<name>.
type Handler struct {
	proxies map[string]*httputil.ReverseProxy
	logger  *zap.Logger
}

// NewHandler builds one reverse proxy per upstream. Keys are environment-style names such as
// CHECK_IN_URL.
func NewHandler(upstreams map[string]string, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{proxies: make(map[string]*httputil.ReverseProxy, len(upstreams)), logger: logger}
	for name, raw := range upstreams {
		target, err := url.Parse(raw)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("relay upstream %s: invalid url %q", name, raw)
		}
		h.proxies[name] = h.newProxy(name, target)
	}
	return h, nil
}

// UpstreamKey maps a proxyOf value to its upstream name: trimmed, upper-cased, "_URL" appended.
func UpstreamKey(proxyOf string) string {
	return strings.ToUpper(strings.TrimSpace(proxyOf)) + "_URL"
}

// Serve forwards the request verbatim to the upstream named by ?proxyOf=.
func (h *Handler) Serve(c *gin.Context) {
	proxyOf := c.Query("proxyOf")
	if proxyOf == "" {
		c.String(http.StatusBadRequest, "Missing proxyOf query parameter")
		return
	}
	proxy, ok := h.proxies[UpstreamKey(proxyOf)]
	if !ok {
		c.String(http.StatusBadRequest, "Invalid proxyOf query parameter")
		return
	}
	proxy.ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) newProxy(name string, target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			u := *target
			r.Out.URL = &u
			r.Out.Host = target.Host
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Set("Access-Control-Allow-Origin", "*")
			resp.Header.Set("Access-Control-Allow-Methods", allowedMethods)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.logger.Error("relay upstream failed", zap.String("upstream", name), zap.Error(err))
			w.Header().Set("Access-Control-Allow-Origin", "*")
			http.Error(w, "Bad gateway", http.StatusBadGateway)
		},
	}
}
