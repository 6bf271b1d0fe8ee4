package texts

import (
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestInfoSnippetIsValidJson(t *testing.T) {
	txt := NewTexts()
	doc := txt.WithVals("info.json", map[string]string{"version": `1.0.0 "beta"`})

	var parsed map[string]any
	err := json.Unmarshal([]byte(doc), &parsed)
	assert.Nil(t, err)
	assert.Equal(t, "Weibo Proxy Service", parsed["name"])
	assert.Equal(t, `1.0.0 "beta"`, parsed["version"])
	endpoints, ok := parsed["endpoints"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, endpoints, "api")
	assert.Contains(t, endpoints, "image")
}

func TestMissingSnippetIsEmpty(t *testing.T) {
	txt := NewTexts()
	assert.Equal(t, "", txt.Get("no-such-snippet.txt"))
	assert.Contains(t, txt.Get("not_found.txt"), "/image?url=<url>")
}

func TestJsonPlaceholderEscaping(t *testing.T) {
	vals := []string{
		"line1\nline2\ttab",
		`back\slash "quoted"`,
		"<script>&amp;</script>",
		"ctrl\x01\x1f",
		"\u2028sep\u2029",
		"微博 🎉",
	}
	for _, val := range vals {
		doc := "{\"v\":\"" + escapeJsonString(val) + "\"}"
		var parsed map[string]string
		err := json.Unmarshal([]byte(doc), &parsed)
		assert.Nil(t, err, val)
		assert.Equal(t, val, parsed["v"])
	}
}
