package texts

import (
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

//go:embed snippets
var fs embed.FS

type ITexts interface {
	Get(id string) string
	WithVals(id string, vals map[string]string) string
}

func NewTexts() ITexts {
	return &texts{}
}

type texts struct {
}

func (t *texts) Get(id string) string {
	fn := fmt.Sprintf("snippets/%s", id)
	bytes, err := fs.ReadFile(fn)
	if err != nil {
		return ""
	}
	return string(bytes)
}

func (t *texts) WithVals(id string, vals map[string]string) string {
	res := t.Get(id)
	isHtml := strings.HasSuffix(id, ".html")
	isJson := strings.HasSuffix(id, ".json")
	for ph := range vals {
		pattern := fmt.Sprintf("{{%s}}", ph)
		val := vals[ph]
		if isHtml {
			val = html.EscapeString(val)
		} else if isJson {
			val = escapeJsonString(val)
		}
		res = strings.ReplaceAll(res, pattern, val)
	}
	return res
}

// Placeholders in JSON snippets sit inside string literals; escape so the document stays valid.
func escapeJsonString(val string) string {
	quoted, err := json.Marshal(val)
	if err != nil {
		return ""
	}
	return string(quoted[1 : len(quoted)-1])
}
