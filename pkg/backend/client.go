package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"tandem/pkg/logger"
	"tandem/pkg/metrics"
	"tandem/pkg/models"
)

// ErrNoSession is returned by operations that need a signed-in user when none is present.
var ErrNoSession = errors.New("no active session")

// Error is an error payload returned by the backend. Error() is the collaborator's own
// message so it can be shown to the user as is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsNotFound reports whether err is the row API's answer to a single-row select with no match.
func IsNotFound(err error) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Status == http.StatusNotFound || be.Code == "PGRST116"
}

type errorPayload struct {
	Code             models.FlexString `json:"code"`
	ErrorCode        string            `json:"error_code"`
	Msg              string            `json:"msg"`
	Message          string            `json:"message"`
	ErrorDescription string            `json:"error_description"`
	Err              json.RawMessage   `json:"error"`
}

// Client talks to the hosted backend: the password auth API under /auth/v1 and the
// row API under /rest/v1. It keeps no session of its own; callers pass the access token.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     logger.ILogger
	now     func() time.Time
}

func New(baseURL, anonKey string, log logger.ILogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{},
		log:     log,
		now:     time.Now,
	}
}

func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	token   string
	headers map[string]string
	body    interface{}
}

func (c *Client) do(ctx context.Context, req request, dst interface{}) (err error) {
	defer func() { metrics.ObserveBackend(req.op, err) }()

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return errors.Wrapf(err, "encode %s body", req.op)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return errors.Wrapf(err, "build %s request", req.op)
	}

	bearer := req.token
	if bearer == "" {
		bearer = c.anonKey
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error("backend request failed", logger.String("op", req.op), logger.Error(err))
		return errors.Wrapf(err, "%s", req.op)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s response", req.op)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		be := decodeError(resp.StatusCode, data)
		c.log.Error("backend returned an error",
			logger.String("op", req.op),
			logger.Int("status", be.Status),
			logger.String("code", be.Code),
			logger.String("message", be.Message),
		)
		return be
	}

	if dst == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := dst.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Wrapf(err, "decode %s response", req.op)
	}
	return nil
}

func decodeError(status int, data []byte) *Error {
	be := &Error{Status: status}

	var p errorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		be.Message = strings.TrimSpace(string(data))
		if be.Message == "" {
			be.Message = http.StatusText(status)
		}
		return be
	}

	var errString string
	if len(p.Err) > 0 {
		if err := json.Unmarshal(p.Err, &errString); err != nil {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(p.Err, &nested) == nil {
				errString = nested.Message
			}
		}
	}

	be.Code = p.ErrorCode
	if be.Code == "" {
		be.Code = p.Code.String()
	}
	if be.Code == "" && p.ErrorDescription != "" {
		be.Code = errString
	}

	switch {
	case p.Msg != "":
		be.Message = p.Msg
	case p.ErrorDescription != "":
		be.Message = p.ErrorDescription
	case p.Message != "":
		be.Message = p.Message
	case errString != "":
		be.Message = errString
	default:
		be.Message = fmt.Sprintf("backend error: %d", status)
	}
	return be
}
