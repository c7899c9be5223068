package types

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
)

// EditorSettingsPath is the REST route, relative to a site's API root, serving block-editor settings.
const EditorSettingsPath = "wp-block-editor/v1/settings"

// Site is a site known to the process. ID is the local site id used as cache key.
type Site struct {
	ID      int64  `json:"id" yaml:"id"`
	URL     string `json:"url" yaml:"url"`
	APIRoot string `json:"api_root" yaml:"api_root"`
	Token   string `json:"-" yaml:"token"`
}

// SettingsDocument is the raw editor settings object of one site.
type SettingsDocument struct {
	SiteID int64           `json:"site_id"`
	Raw    json.RawMessage `json:"settings"`
}

// NewSettingsDocument validates that raw is a JSON object and wraps it.
func NewSettingsDocument(siteID int64, raw []byte) (*SettingsDocument, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformedResponse
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, Err(ErrMalformedResponse, err, "")
	}
	return &SettingsDocument{SiteID: siteID, Raw: json.RawMessage(trimmed)}, nil
}

// Canonical returns the document re-encoded with sorted keys and no insignificant whitespace.
// Numbers keep their literal text.
func (d *SettingsDocument) Canonical() ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(d.Raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Equal reports structural equality: both documents serialize to the same canonical bytes.
func (d *SettingsDocument) Equal(o *SettingsDocument) bool {
	if d == nil || o == nil {
		return d == o
	}
	if bytes.Equal(d.Raw, o.Raw) {
		return true
	}
	a, err := d.Canonical()
	if err != nil {
		return false
	}
	b, err := o.Canonical()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Query evaluates a JMESPath expression over the document.
// A non-matching expression yields nil and no error.
func (d *SettingsDocument) Query(expression string) (any, error) {
	var v any
	if err := json.Unmarshal(d.Raw, &v); err != nil {
		return nil, err
	}
	res, err := jmespath.Search(expression, v)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	return res, nil
}
