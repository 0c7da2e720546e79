package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRealClientIP(t *testing.T) {
	tests := []struct {
		name            string
		trustedPlatform string
		trustedProxies  []string
		headers         map[string]string
		remoteIP        string
		want            string
	}{
		{
			name:            "CloudFront header with port",
			trustedPlatform: "CloudFront-Viewer-Address",
			headers:         map[string]string{"CloudFront-Viewer-Address": "203.0.113.50:12345"},
			remoteIP:        "10.0.0.9",
			want:            "203.0.113.50",
		},
		{
			name:            "CloudFront header IPv6 with port",
			trustedPlatform: "CloudFront-Viewer-Address",
			headers:         map[string]string{"CloudFront-Viewer-Address": "2001:db8::1:54321"},
			remoteIP:        "10.0.0.9",
			want:            "2001:db8::1",
		},
		{
			name:     "CloudFront header ignored unless the platform is trusted",
			headers:  map[string]string{"CloudFront-Viewer-Address": "203.0.113.50:12345"},
			remoteIP: "192.168.1.1",
			want:     "192.168.1.1",
		},
		{
			name:     "X-Forwarded-For ignored from an untrusted peer",
			headers:  map[string]string{"X-Forwarded-For": "198.51.100.23"},
			remoteIP: "192.168.1.1",
			want:     "192.168.1.1",
		},
		{
			name:           "X-Forwarded-For honored from a trusted proxy",
			trustedProxies: []string{"10.0.0.0/8"},
			headers:        map[string]string{"X-Forwarded-For": "198.51.100.23"},
			remoteIP:       "10.1.2.3",
			want:           "198.51.100.23",
		},
		{
			name:     "IPv6 peer",
			remoteIP: "[2001:db8::7]",
			want:     "2001:db8::7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, engine := gin.CreateTestContext(w)
			engine.TrustedPlatform = tt.trustedPlatform
			if err := engine.SetTrustedProxies(tt.trustedProxies); err != nil {
				t.Fatalf("SetTrustedProxies: %v", err)
			}
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			c.Request.RemoteAddr = tt.remoteIP + ":8080"

			got := GetRealClientIP(c)
			if got != tt.want {
				t.Errorf("GetRealClientIP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCallFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("From", "+15550001111")
	form.Set("SpeechResult", "what is rapamycin")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/voice", strings.NewReader(form.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	fields := CallFields(c)

	got := map[string]interface{}{}
	for _, f := range fields {
		got[f.Key] = f.Value
	}
	assert.Equal(t, map[string]interface{}{"call_sid": "CA123", "from": "+15550001111"}, got)
}

func TestWithFields_DoesNotAliasParent(t *testing.T) {
	parent := WithFields(context.Background(), Field{Key: "a", Value: 1})
	left := WithFields(parent, Field{Key: "b", Value: 2})
	right := WithFields(parent, Field{Key: "c", Value: 3})

	require.Len(t, getObservabilityFields(left), 2)
	require.Len(t, getObservabilityFields(right), 2)
	assert.Equal(t, "b", getObservabilityFields(left)[1].Key)
	assert.Equal(t, "c", getObservabilityFields(right)[1].Key)
}

func TestMiddleware_SetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(NewNopLogger()))
	r.GET("/ping", func(c *gin.Context) {
		fields := getObservabilityFields(c.Request.Context())
		require.NotEmpty(t, fields)
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-ID"), "req-"))
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(NewNopLogger()))
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMiddleware_KeepsIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(NewNopLogger()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "twilio-retry-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "twilio-retry-1", w.Header().Get("X-Request-ID"))
}

func TestMergeFields_MetricFieldWins(t *testing.T) {
	ctx := WithFields(context.Background(), Field{Key: "route", Value: "voice"}, Field{Key: "status", Value: 0})

	merged := mergeFields(ctx, []MetricField{{Key: "status", Value: 200}})

	got := map[string]interface{}{}
	for _, f := range merged {
		if f.Interface != nil {
			got[f.Key] = f.Interface
		} else {
			got[f.Key] = f.Integer
		}
	}
	assert.Len(t, merged, 2)
	assert.Equal(t, int64(200), got["status"])
}
