package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/bookscout/internal/book"
)

func sampleResults() []book.Result {
	isbn := "9781847941831"
	return []book.Result{
		{Store: "Blackwells", Title: "Atomic Habits", Price: "15.42€", URL: "https://blackwells.co.uk/bookshop/product/Atomic-Habits/9781847941831", ISBN: &isbn},
		{Store: "Kennys", Title: "Atomic Habits", Price: "€ 18.50", URL: "https://www.kennys.ie/shop/atomic-habits-9781847941831"},
	}
}

func TestJSONFieldContract(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleResults()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	for _, entry := range decoded {
		assert.ElementsMatch(t, []string{"store", "title", "price", "url", "isbn"}, keys(entry))
	}

	assert.Equal(t, "9781847941831", decoded[0]["isbn"])
	assert.Nil(t, decoded[1]["isbn"], "missing ISBN must serialize as null")
	assert.Equal(t, "15.42€", decoded[0]["price"], "price stays store-native text")
}

func TestJSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleResults()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "store,title,price,url,isbn", lines[0])
	assert.Equal(t, "Blackwells,Atomic Habits,15.42€,https://blackwells.co.uk/bookshop/product/Atomic-Habits/9781847941831,9781847941831", lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ","), "missing ISBN is an empty cell")
}

func TestTableListsResultsAndFailures(t *testing.T) {
	var buf bytes.Buffer
	failures := []book.FailureRecord{
		{Store: "Wordery", Kind: book.FailNetworkOrTimeout},
	}
	require.NoError(t, Table(&buf, sampleResults(), failures))

	out := buf.String()
	assert.Contains(t, out, "Store")
	assert.Contains(t, out, "Blackwells")
	assert.Contains(t, out, "€ 18.50")
	assert.Contains(t, out, "Wordery: network-or-timeout")
	assert.NotContains(t, out, "No matches found.")
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, nil, nil))
	assert.Contains(t, buf.String(), "No matches found.")
}

func TestTableTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("x", maxTitleWidth+10)
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []book.Result{{Store: "S", Title: long, Price: "N/A", URL: "https://s.example"}}, nil))

	assert.Contains(t, buf.String(), strings.Repeat("x", maxTitleWidth)+"...")
	assert.NotContains(t, buf.String(), long)
}

func TestWriteDispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", nil, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))

	buf.Reset()
	require.NoError(t, Write(&buf, "", sampleResults(), nil))
	assert.Contains(t, buf.String(), "Blackwells")

	err := Write(&buf, "yaml", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml")
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
