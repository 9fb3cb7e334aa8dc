package faillog

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "crm", "run-1")
	require.NoError(t, err)

	l.Record(FailedRow{
		TableName:        "dbo.Customers",
		PrimaryKeyValues: map[string]any{"Id": 42},
		OriginalValues:   map[string]any{"Email": "jane@x.com"},
		ErrorMessage:     "validation exhausted",
	})
	require.NoError(t, l.Close())
	assert.Equal(t, int64(1), l.Count())

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	content := string(raw)
	assert.True(t, strings.HasPrefix(content, "# dataveil failure log"))
	assert.Contains(t, content, "# Run: run-1")
	assert.Contains(t, content, "# Completed:")

	var row FailedRow
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		require.NoError(t, json.Unmarshal([]byte(line), &row))
	}
	assert.Equal(t, "dbo.Customers", row.TableName)
	assert.Equal(t, "validation exhausted", row.ErrorMessage)
	assert.False(t, row.Timestamp.IsZero())
}

func TestRecordIsSafeConcurrently(t *testing.T) {
	l, err := New(t.TempDir(), "crm", "run-2")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				l.Record(FailedRow{
					TableName:        "t",
					PrimaryKeyValues: map[string]any{"Id": n*100 + j},
					ErrorMessage:     "boom",
				})
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, l.Close())
	assert.Equal(t, int64(200), l.Count())

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := 0
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		require.NoError(t, json.Unmarshal([]byte(line), new(FailedRow)), "line: %s", line)
		lines++
	}
	assert.Equal(t, 200, lines)
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	l, err := New(t.TempDir(), "crm", "run-3")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l.Record(FailedRow{TableName: "t", ErrorMessage: "late"})
	assert.Equal(t, int64(0), l.Count())

	// closing again is not an error
	assert.NoError(t, l.Close())
}
