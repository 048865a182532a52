package utilities

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

// CallOption adjusts the context of a simulated call before the handler runs.
type CallOption func(c *gin.Context)

// WithUser makes the call look authenticated as user, as RequireAuth would.
func WithUser(user model.User) CallOption {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, user)
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) CallOption {
	return func(c *gin.Context) {
		c.Request.Header.Set(key, value)
	}
}

// SimulateAPICall runs handlerFunc once on a recorder with body sent as JSON.
// An empty response body yields a nil map and no error.
func SimulateAPICall(
	handlerFunc func(*gin.Context),
	route string,
	method string,
	body interface{},
	opts ...CallOption,
) (*httptest.ResponseRecorder, map[string]interface{}, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(method, route, bytes.NewReader(b))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	for _, opt := range opts {
		opt(c)
	}
	handlerFunc(c)

	if rec.Body.Len() == 0 {
		return rec, nil, nil
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		return rec, nil, err
	}
	return rec, resp, nil
}
