/*Package render produces HTML snippets by substituting placeholders in a
template string.

Every {{key}} occurrence is replaced with the HTML-escaped string form of
the row value; {{{key}}} is the explicit raw opt-out for values that are
known to be trusted markup. Missing and nil values render as the empty
string.
*/
package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"time"
)

var (
	rawPlaceholder     = regexp.MustCompile(`\{\{\{(\w+)\}\}\}`)
	escapedPlaceholder = regexp.MustCompile(`\{\{(\w+)\}\}`)
)

// Fragment renders the template against a single row. Raw placeholders are
// substituted first so that an escaped pass never sees their braces.
func Fragment(template string, row map[string]interface{}) string {
	out := rawPlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		key := match[3 : len(match)-3]
		return stringify(row[key])
	})
	return escapedPlaceholder.ReplaceAllStringFunc(out, func(match string) string {
		key := match[2 : len(match)-2]
		return html.EscapeString(stringify(row[key]))
	})
}

// Rows renders the template once per row and concatenates the results.
// This is how option lists and other repeated fragments are built.
func Rows(template string, rows []map[string]interface{}) string {
	out := ""
	for _, row := range rows {
		out += Fragment(template, row)
	}
	return out
}

func stringify(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	case bool:
		return strconv.FormatBool(value)
	case time.Time:
		return value.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", value)
	}
}
