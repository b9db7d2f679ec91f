package httpclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

func encodeBody(body interface{}) []byte {
	if s, ok := body.(string); ok {
		return []byte(s)
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	return b
}

func decodeJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func curlEquivalent(req *model.Request, body []byte) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("curl -X %s '%s'", strings.ToUpper(req.Method), req.URL))
	for k, v := range req.Headers {
		b.WriteString(fmt.Sprintf(" -H '%s: %s'", k, v))
	}
	if len(body) > 0 {
		b.WriteString(fmt.Sprintf(" -d '%s'", string(body)))
	}
	return b.String()
}
