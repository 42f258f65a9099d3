package persist

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// uriComponentFixups turns url.QueryEscape output into encodeURIComponent
// output: spaces become %20 and the marks !'()* stay literal. A literal '+'
// is already escaped as %2B so the first rule is unambiguous.
var uriComponentFixups = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent percent-encodes s, leaving only A-Z a-z 0-9 and
// - _ . ! ~ * ' ( ) unescaped.
func EncodeURIComponent(s string) string {
	return uriComponentFixups.Replace(url.QueryEscape(s))
}

// marshalJSON serializes v the way a browser's JSON.stringify does for plain
// data: no HTML escaping and no trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
