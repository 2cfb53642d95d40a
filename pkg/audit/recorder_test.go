package audit

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroapp/maestro/pkg/auth"
	"github.com/maestroapp/maestro/pkg/contextkeys"
	"github.com/maestroapp/maestro/pkg/observability"
)

func testRecorderDeps(t *testing.T) (*observability.Logger, *observability.Metrics) {
	t.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return logger, metrics
}

func TestRecorderWritesEntry(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	logger, metrics := testRecorderDeps(t)

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(
			ActionCreate, SeverityInfo, nil, "",
			ModelUser, "5", "created user",
			nil, nil,
			"", "", "", "", "",
			sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	recorder := NewRecorder(NewStore(db, nil), logger, metrics, 8, 1)
	recorder.Log(context.Background(), Entry{
		Action:      ActionCreate,
		TargetModel: ModelUser,
		TargetID:    "5",
		Description: "created user",
	})
	recorder.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorderSeverityDefaults(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	logger, metrics := testRecorderDeps(t)

	// Log without a severity persists INFO; LogWarning and LogCritical
	// stamp their own.
	for _, sev := range []Severity{SeverityInfo, SeverityWarning, SeverityCritical} {
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs(
				ActionUpdate, sev, nil, "",
				"", "", "",
				nil, nil,
				"", "", "", "", "",
				sqlmock.AnyArg(),
			).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	}

	recorder := NewRecorder(NewStore(db, nil), logger, metrics, 8, 1)
	recorder.Log(context.Background(), Entry{Action: ActionUpdate})
	recorder.LogWarning(context.Background(), Entry{Action: ActionUpdate})
	recorder.LogCritical(context.Background(), Entry{Action: ActionUpdate})
	recorder.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorderEnrichesFromContext(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	logger, metrics := testRecorderDeps(t)

	ctx := auth.NewContext(context.Background(), &auth.AuthContext{
		UserID: 42,
		Role:   "ADMIN",
	})
	ctx = contextkeys.WithRequestID(ctx, "req-abc")

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(
			ActionDelete, SeverityInfo, int64(42), "ADMIN",
			"", "", "",
			nil, nil,
			"req-abc", "", "", "", "",
			sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	recorder := NewRecorder(NewStore(db, nil), logger, metrics, 8, 1)
	recorder.Log(ctx, Entry{Action: ActionDelete})
	recorder.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorderExplicitActorWins(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	logger, metrics := testRecorderDeps(t)

	ctx := auth.NewContext(context.Background(), &auth.AuthContext{UserID: 42, Role: "ADMIN"})
	explicit := int64(7)

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(
			ActionDelete, SeverityInfo, explicit, "STAFF",
			"", "", "",
			nil, nil,
			"", "", "", "", "",
			sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	recorder := NewRecorder(NewStore(db, nil), logger, metrics, 8, 1)
	recorder.Log(ctx, Entry{Action: ActionDelete, ActorID: &explicit, ActorRole: "STAFF"})
	recorder.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	logger, metrics := testRecorderDeps(t)

	// First insert stalls the single worker; the second entry fills the
	// one-slot queue; the third has nowhere to go and is dropped.
	mock.ExpectQuery("INSERT INTO audit_logs").
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	recorder := NewRecorder(NewStore(db, nil), logger, metrics, 1, 1)
	recorder.Log(context.Background(), Entry{Action: ActionCreate})
	// Give the worker time to take the first entry off the queue.
	time.Sleep(50 * time.Millisecond)
	recorder.Log(context.Background(), Entry{Action: ActionUpdate})
	recorder.Log(context.Background(), Entry{Action: ActionDelete})
	recorder.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
	dropped := testutil.ToFloat64(metrics.AuditDroppedTotal.WithLabelValues("queue_full"))
	assert.Equal(t, float64(1), dropped)
}

func TestRecorderStoreFailureDoesNotPropagate(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	logger, metrics := testRecorderDeps(t)

	mock.ExpectQuery("INSERT INTO audit_logs").
		WillReturnError(errors.New("disk full"))

	recorder := NewRecorder(NewStore(db, nil), logger, metrics, 8, 1)
	recorder.Log(context.Background(), Entry{Action: ActionCreate})
	recorder.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
	failed := testutil.ToFloat64(metrics.AuditEntriesTotal.WithLabelValues("INFO", "failed"))
	assert.Equal(t, float64(1), failed)
}

func TestRecorderCloseIsIdempotentAndDropsLateEntries(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	logger, metrics := testRecorderDeps(t)

	recorder := NewRecorder(NewStore(db, nil), logger, metrics, 8, 2)
	recorder.Close()
	recorder.Close()

	recorder.Log(context.Background(), Entry{Action: ActionCreate})

	assert.NoError(t, mock.ExpectationsWereMet())
	dropped := testutil.ToFloat64(metrics.AuditDroppedTotal.WithLabelValues("closed"))
	assert.Equal(t, float64(1), dropped)
}
