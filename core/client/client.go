/*Package client provides easy and fast in-process access to the REST api.

Instead of marshalling HTTP, the client talks directly to the mux router.
It is perfectly suited for unit tests. The client keeps the cookies it
receives, so a login followed by further requests behaves like a browser
session.
*/
package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// Client provides easy access to the REST API through the mux router.
type Client struct {
	router         *mux.Router
	cookies        map[string]*http.Cookie
	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the
// backend, through the mux router.
func NewWithRouter(router *mux.Router) *Client {
	return &Client{
		router:         router,
		cookies:        map[string]*http.Cookie{},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns the client with a default header added.
func (c *Client) WithHeader(key, value string) *Client {
	c.defaultHeaders[key] = value
	return c
}

// ClearCookies drops all stored cookies, ending any session.
func (c *Client) ClearCookies() {
	c.cookies = map[string]*http.Cookie{}
}

// Cookie returns the stored cookie with the given name, or nil.
func (c *Client) Cookie(name string) *http.Cookie {
	return c.cookies[name]
}

func (c *Client) do(method, path string, body []byte, contentType string) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	for key, value := range c.defaultHeaders {
		r.Header.Add(key, value)
	}
	for _, cookie := range c.cookies {
		r.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, r)
	res := rec.Result()
	for _, cookie := range res.Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
		} else {
			c.cookies[cookie.Name] = cookie
		}
	}
	return res, rec.Body.Bytes()
}

func unmarshalResult(resBody []byte, result interface{}) error {
	if resBody == nil || result == nil {
		return nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return nil
	}
	return json.Unmarshal(resBody, result)
}

// RawGet gets the resource from path. Expects http.StatusOK as response,
// otherwise it will flag an error. Returns the actual http status code.
//
// result can be a struct, a map, or a raw *[]byte. result can be nil.
func (c *Client) RawGet(path string, result interface{}) (int, error) {
	res, resBody := c.do(http.MethodGet, path, nil, "")
	status := res.StatusCode
	if status == http.StatusNoContent {
		return status, nil
	}
	if status != http.StatusOK {
		return status, fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
			status, http.StatusOK, strings.TrimSpace(string(resBody)))
	}
	return status, unmarshalResult(resBody, result)
}

// RawGetWithHeader is RawGet returning the response header as well.
func (c *Client) RawGetWithHeader(path string, header map[string]string, result interface{}) (int, http.Header, error) {
	for key, value := range header {
		c.defaultHeaders[key] = value
	}
	defer func() {
		for key := range header {
			delete(c.defaultHeaders, key)
		}
	}()
	res, resBody := c.do(http.MethodGet, path, nil, "")
	status := res.StatusCode
	if status != http.StatusOK && status != http.StatusNoContent &&
		status != http.StatusFound {
		return status, res.Header, fmt.Errorf("handler returned wrong status code: got %v. Error: %s",
			status, strings.TrimSpace(string(resBody)))
	}
	return status, res.Header, unmarshalResult(resBody, result)
}

// RawPost posts a resource to path. Expects http.StatusCreated or
// http.StatusOK as response, otherwise it will flag an error. Returns the
// actual http status code.
//
// body can also be a []byte, result can also be a raw *[]byte or nil.
func (c *Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	var err error
	j, ok := body.([]byte)
	if !ok && body != nil {
		j, err = json.Marshal(body)
		if err != nil {
			return http.StatusBadRequest, fmt.Errorf("POST to %s: %w", path, err)
		}
	}
	res, resBody := c.do(http.MethodPost, path, j, "application/json")
	status := res.StatusCode
	if status != http.StatusCreated && status != http.StatusOK && status != http.StatusNoContent {
		return status, fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
			status, http.StatusCreated, strings.TrimSpace(string(resBody)))
	}
	return status, unmarshalResult(resBody, result)
}

// RawPut puts a resource to path. Expects http.StatusOK, http.StatusCreated
// or http.StatusNoContent as valid responses, otherwise it will flag an
// error. Returns the actual http status code.
func (c *Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	var err error
	j, ok := body.([]byte)
	if !ok && body != nil {
		j, err = json.Marshal(body)
		if err != nil {
			return http.StatusBadRequest, fmt.Errorf("PUT to %s: %w", path, err)
		}
	}
	res, resBody := c.do(http.MethodPut, path, j, "application/json")
	status := res.StatusCode
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusNoContent {
		return status, fmt.Errorf("put got status=%d body=%s", status, strings.TrimSpace(string(resBody)))
	}
	return status, unmarshalResult(resBody, result)
}

// RawDelete deletes the resource at path. Expects http.StatusOK or
// http.StatusNoContent as response, otherwise it will flag an error.
func (c *Client) RawDelete(path string, result interface{}) (int, error) {
	res, resBody := c.do(http.MethodDelete, path, nil, "")
	status := res.StatusCode
	if status != http.StatusOK && status != http.StatusNoContent {
		return status, fmt.Errorf("delete got status=%d body=%s", status, strings.TrimSpace(string(resBody)))
	}
	return status, unmarshalResult(resBody, result)
}

// PostMultipart uploads data as a multipart form file under the given
// field name.
func (c *Client) PostMultipart(path, field, filename string, data []byte, result interface{}) (int, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		return 0, err
	}
	if _, err = fw.Write(data); err != nil {
		return 0, err
	}
	w.Close()

	res, resBody := c.do(http.MethodPost, path, b.Bytes(), w.FormDataContentType())
	status := res.StatusCode
	if status != http.StatusOK && status != http.StatusCreated {
		return status, fmt.Errorf("multipart post got status=%d body=%s", status, strings.TrimSpace(string(resBody)))
	}
	return status, unmarshalResult(resBody, result)
}
