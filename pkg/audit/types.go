package audit

import (
	"encoding/json"
	"time"
)

// Severity classifies how much attention an audit entry deserves
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is one of the known severities
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Audit actions recorded by the application. Handlers may record additional
// free-form actions; these constants cover the operations the backend itself
// performs.
const (
	ActionCreate                = "CREATE"
	ActionUpdate                = "UPDATE"
	ActionDelete                = "DELETE"
	ActionArchive               = "ARCHIVE"
	ActionStatusChange          = "STATUS_CHANGE"
	ActionBulkStatusChange      = "BULK_STATUS_CHANGE"
	ActionPermissionDenied      = "PERMISSION_DENIED"
	ActionRolePermissionsUpdate = "ROLE_PERMISSIONS_UPDATE"
	ActionPermissionSync        = "PERMISSION_SYNC"
	ActionExport                = "EXPORT"
	ActionRetentionCleanup      = "RETENTION_CLEANUP"
	ActionHTTPRequest           = "HTTP_REQUEST"
)

// Target models referenced by audit entries
const (
	ModelUser       = "User"
	ModelRole       = "Role"
	ModelPermission = "Permission"
	ModelAuditLog   = "AuditLog"
)

// Entry is a single audit log record. Before and After hold JSON snapshots of
// the mutated fields; they are stored as JSONB and returned to the client
// verbatim.
type Entry struct {
	ID          int64           `json:"id"`
	Action      string          `json:"action"`
	Severity    Severity        `json:"severity"`
	ActorID     *int64          `json:"performedBy,omitempty"`
	ActorRole   string          `json:"performedByRole,omitempty"`
	TargetModel string          `json:"targetModel,omitempty"`
	TargetID    string          `json:"targetId,omitempty"`
	Description string          `json:"description,omitempty"`
	Before      json.RawMessage `json:"before,omitempty"`
	After       json.RawMessage `json:"after,omitempty"`
	RequestID   string          `json:"requestId,omitempty"`
	IPAddress   string          `json:"ipAddress,omitempty"`
	UserAgent   string          `json:"userAgent,omitempty"`
	Method      string          `json:"method,omitempty"`
	Endpoint    string          `json:"endpoint,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Filter narrows audit queries. All set fields are combined with AND; the
// slice fields match any of their values. Nil/empty fields are ignored.
type Filter struct {
	PerformedBy *int64
	TargetModel string
	TargetID    string
	Actions     []string
	Severities  []Severity
	From        *time.Time
	To          *time.Time
}

// Page is one page of audit query results, newest first
type Page struct {
	Logs       []*Entry `json:"logs"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int64    `json:"totalPages"`
}

// Stats summarizes audit activity over a window
type Stats struct {
	Total      int64            `json:"total"`
	ByAction   map[string]int64 `json:"byAction"`
	BySeverity map[string]int64 `json:"bySeverity"`
	ByModel    map[string]int64 `json:"byModel"`
}

// ExportFormat selects the wire format for audit exports
type ExportFormat string

const (
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson"
)

// Valid reports whether f is a supported export format
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatNDJSON
}

// Snapshot marshals a before/after state for an Entry. Marshal failures
// degrade to null rather than blocking the audit write.
func Snapshot(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
