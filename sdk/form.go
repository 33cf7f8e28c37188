package sdk

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const (
	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json; charset=utf-8"
	contentTypeForm   = "application/x-www-form-urlencoded; charset=utf-8"
)

// EncodeForm encodes params as a URL query string. Keys are sorted so the output is
// stable; booleans are written as true/false and every other value with fmt.
func EncodeForm(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(formValue(params[k])))
	}
	return strings.Join(parts, "&")
}

func formValue(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// appendQuery adds an encoded query to u, keeping any query already present.
func appendQuery(u *url.URL, params map[string]any) {
	encoded := EncodeForm(params)
	if encoded == "" {
		return
	}
	if u.RawQuery != "" {
		u.RawQuery += "&" + encoded
		return
	}
	u.RawQuery = encoded
}
