package httpd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldsTestSignal struct {
	Min int
	Max int
}

type fieldsTestDevice struct {
	MAC    string
	Signal fieldsTestSignal
	Tags   map[string]string
}

func TestParseFieldSpecsTuples(t *testing.T) {
	body := `[["mac",""],["signal.min","sig_min"]]`
	req := httptest.NewRequest(http.MethodPost, "/devices/all", strings.NewReader(body))
	req.ContentLength = int64(len(body))

	specs, err := ParseFieldSpecs(req)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, []string{"mac"}, specs[0].Path)
	assert.Equal(t, "", specs[0].Rename)
	assert.Equal(t, []string{"signal", "min"}, specs[1].Path)
	assert.Equal(t, "sig_min", specs[1].Rename)
}

func TestParseFieldSpecsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/devices/all", nil)
	specs, err := ParseFieldSpecs(req)
	assert.NoError(t, err)
	assert.Nil(t, specs)
}

func TestSummarizeWalksNestedPathAndRenames(t *testing.T) {
	devices := []any{
		fieldsTestDevice{MAC: "aa:bb:cc:dd:ee:ff", Signal: fieldsTestSignal{Min: -80, Max: -40}, Tags: map[string]string{"role": "ap"}},
	}
	specs := []FieldSpec{
		{Path: []string{"mac"}},
		{Path: []string{"signal", "min"}, Rename: "sig_min"},
		{Path: []string{"tags", "role"}, Rename: "role"},
		{Path: []string{"tags", "missing"}, Rename: "missing"},
	}

	out := Summarize(devices, specs)
	require.Len(t, out, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", out[0]["mac"])
	assert.Equal(t, -80, out[0]["sig_min"])
	assert.Equal(t, "ap", out[0]["role"])
	assert.Nil(t, out[0]["missing"])
}

func TestWriteSummarizedFormats(t *testing.T) {
	elements := []map[string]any{{"mac": "aa:bb"}, {"mac": "cc:dd"}}

	rec := httptest.NewRecorder()
	require.NoError(t, WriteSummarized(rec, FormatJSON, elements))
	assert.Contains(t, rec.Body.String(), `"mac":"aa:bb"`)

	rec = httptest.NewRecorder()
	require.NoError(t, WriteSummarized(rec, FormatPrettyJSON, elements))
	assert.Contains(t, rec.Body.String(), "\n")

	rec = httptest.NewRecorder()
	require.NoError(t, WriteSummarized(rec, FormatElementStream, elements))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 2)

	rec = httptest.NewRecorder()
	require.NoError(t, WriteSummarized(rec, FormatIteratedTree, elements))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `{"elements":[`))
	assert.Contains(t, body, `"total":2`)
}

func TestFormatFromRequestDefaultsToJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/devices/all", nil)
	assert.Equal(t, FormatJSON, FormatFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/devices/all?format=tree", nil)
	assert.Equal(t, FormatIteratedTree, FormatFromRequest(req))
}
