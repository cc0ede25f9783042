package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFragmentEscapesValues(t *testing.T) {
	out := Fragment(`<p>{{comment}}</p>`, map[string]interface{}{
		"comment": `<script>alert("x")</script>`,
	})
	assert.Equal(t, `<p>&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;</p>`, out)
}

func TestFragmentRawOptOut(t *testing.T) {
	out := Fragment(`<div>{{{markup}}}</div>`, map[string]interface{}{
		"markup": `<em>trusted</em>`,
	})
	assert.Equal(t, `<div><em>trusted</em></div>`, out)
}

func TestFragmentMissingAndNilKeys(t *testing.T) {
	out := Fragment(`a={{a}} b={{b}}`, map[string]interface{}{"a": nil})
	assert.Equal(t, "a= b=", out)
}

func TestFragmentValueTypes(t *testing.T) {
	when := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out := Fragment(`{{price}}|{{id}}|{{ok}}|{{date}}`, map[string]interface{}{
		"price": 450.5,
		"id":    int64(7),
		"ok":    true,
		"date":  when,
	})
	assert.Equal(t, "450.5|7|true|2026-08-01T12:00:00Z", out)
}

func TestRowsConcatenates(t *testing.T) {
	template := `<option value="{{id}}">{{title}}</option>`
	out := Rows(template, []map[string]interface{}{
		{"id": int64(1), "title": "Stillness"},
		{"id": int64(2), "title": "Red & Gold"},
	})
	assert.Equal(t,
		`<option value="1">Stillness</option><option value="2">Red &amp; Gold</option>`,
		out)
}

func TestRowsEmpty(t *testing.T) {
	assert.Equal(t, "", Rows(`{{id}}`, nil))
}
