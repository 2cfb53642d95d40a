package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityValid(t *testing.T) {
	assert.True(t, SeverityInfo.Valid())
	assert.True(t, SeverityWarning.Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("").Valid())
	assert.False(t, Severity("info").Valid())
	assert.False(t, Severity("FATAL").Valid())
}

func TestExportFormatValid(t *testing.T) {
	assert.True(t, ExportFormatCSV.Valid())
	assert.True(t, ExportFormatNDJSON.Valid())
	assert.False(t, ExportFormat("json").Valid())
	assert.False(t, ExportFormat("").Valid())
}

func TestEntryJSONContract(t *testing.T) {
	// The frontend filters on these exact field names.
	actor := int64(42)
	e := Entry{
		ID:          1,
		Action:      ActionStatusChange,
		Severity:    SeverityWarning,
		ActorID:     &actor,
		ActorRole:   "STAFF",
		TargetModel: ModelUser,
		TargetID:    "14",
		Before:      Snapshot(map[string]string{"status": "ACTIVE"}),
		After:       Snapshot(map[string]string{"status": "SUSPENDED"}),
		CreatedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Equal(t, float64(42), m["performedBy"])
	assert.Equal(t, "STAFF", m["performedByRole"])
	assert.Equal(t, "User", m["targetModel"])
	assert.Equal(t, "14", m["targetId"])
	assert.Contains(t, m, "createdAt")
	assert.NotContains(t, m, "requestId") // omitted when empty

	before := m["before"].(map[string]interface{})
	assert.Equal(t, "ACTIVE", before["status"])
}

func TestSnapshot(t *testing.T) {
	raw := Snapshot(map[string]interface{}{"permissions": []string{"USER:READ:ANY"}})
	assert.JSONEq(t, `{"permissions":["USER:READ:ANY"]}`, string(raw))

	// Unmarshalable values degrade to nil instead of failing the write.
	assert.Nil(t, Snapshot(make(chan int)))
}
