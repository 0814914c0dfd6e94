package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an *apperrors.AppError that keeps the downstream status code.
//
// Two body shapes are understood:
//
//	{"error":{"code":"NOT_FOUND","message":"..."}}
//	{"message":"...","errors":["...", {"msg":"..."}]}
//
// Anything else becomes a generic upstream error carrying the raw body. The
// response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Upstream(resp.StatusCode, "",
			fmt.Sprintf("%s returned status %d (failed to read body: %v)", serviceName, resp.StatusCode, err))
	}

	if !gjson.ValidBytes(body) {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return apperrors.Upstream(resp.StatusCode, "", fmt.Sprintf("%s: %s", serviceName, msg))
	}

	parsed := gjson.ParseBytes(body)
	code := parsed.Get("error.code").String()
	if code == "" {
		code = parsed.Get("code").String()
	}

	message := firstNonEmpty(
		parsed.Get("error.message").String(),
		parsed.Get("message").String(),
		parsed.Get("data.message").String(),
		http.StatusText(resp.StatusCode),
	)

	appErr := apperrors.Upstream(resp.StatusCode, code, fmt.Sprintf("%s: %s", serviceName, message))
	appErr.Details = collectDetails(parsed)
	return appErr
}

// collectDetails flattens an "errors" list whose entries may be plain strings
// or objects carrying msg/message fields.
func collectDetails(parsed gjson.Result) []string {
	list := parsed.Get("errors")
	if !list.Exists() {
		list = parsed.Get("error.details")
	}
	if !list.IsArray() {
		return nil
	}

	var details []string
	for _, entry := range list.Array() {
		var msg string
		if entry.IsObject() {
			msg = firstNonEmpty(entry.Get("msg").String(), entry.Get("message").String())
		} else {
			msg = entry.String()
		}
		if msg != "" {
			details = append(details, msg)
		}
	}
	return details
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
