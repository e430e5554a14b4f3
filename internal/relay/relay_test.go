package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamKey(t *testing.T) {
	assert.Equal(t, "CHECK_IN_URL", UpstreamKey(" check_in "))
}

func TestRelayForwards(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotBody, gotType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery, gotType = r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Access-Control-Allow-Origin", "https://upstream.example")
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "from upstream")
	}))
	defer upstream.Close()

	h, err := NewHandler(map[string]string{"CHECK_IN_URL": upstream.URL + "/checkInToEvent?region=us"}, nil)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any("/", h.Serve)

	req := httptest.NewRequest(http.MethodPost, "/?proxyOf=check_in", strings.NewReader(`{"email":"a@pitt.edu"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "from upstream", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/checkInToEvent", gotPath)
	assert.Equal(t, "region=us", gotQuery, "the upstream URL is used as configured")
	assert.Equal(t, `{"email":"a@pitt.edu"}`, gotBody)
	assert.Equal(t, "application/json", gotType)
}

func TestRelayRejects(t *testing.T) {
	h, err := NewHandler(map[string]string{"CHECK_IN_URL": "https://example.com/fn"}, nil)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any("/", h.Serve)

	for target, want := range map[string]string{
		"/":                   "Missing proxyOf query parameter",
		"/?proxyOf=":          "Missing proxyOf query parameter",
		"/?proxyOf=get_admin": "Invalid proxyOf query parameter",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, want, w.Body.String(), target)
	}
}

func TestRelayUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	h, err := NewHandler(map[string]string{"CHECK_IN_URL": addr}, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?proxyOf=check_in", nil)
	h.Serve(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestNewHandlerRejectsBadURL(t *testing.T) {
	_, err := NewHandler(map[string]string{"CHECK_IN_URL": "not a url"}, nil)
	assert.Error(t, err)
}
