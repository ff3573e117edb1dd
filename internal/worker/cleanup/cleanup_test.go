package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// mockExecutor はExecutorのモック実装。発行されたクエリを記録する。
type mockExecutor struct {
	queries []string
	args    [][]interface{}
	result  sql.Result
	err     error
}

func (m *mockExecutor) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.queries = append(m.queries, query)
	m.args = append(m.args, args)
	return m.result, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewCleanupJob_SetsRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{result: &fakeResult{}}, newTestLogger(&buf))

	if job.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", job.RetentionDays)
	}
}

func TestCleanupJob_Run_DeletesSessionsAndNotifications(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 5}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(mock.queries) != 2 {
		t.Fatalf("executed %d queries, want 2", len(mock.queries))
	}
	if !strings.Contains(mock.queries[0], "DELETE FROM sessions") {
		t.Errorf("first query = %q, want sessions delete", mock.queries[0])
	}
	if !strings.Contains(mock.queries[0], "expires_at") {
		t.Errorf("sessions query missing expires_at condition: %q", mock.queries[0])
	}
	if !strings.Contains(mock.queries[1], "DELETE FROM notifications") {
		t.Errorf("second query = %q, want notifications delete", mock.queries[1])
	}
	if !strings.Contains(mock.queries[1], "is_read = true") {
		t.Errorf("notifications query must only target read notifications: %q", mock.queries[1])
	}
}

func TestCleanupJob_Run_UsesRetentionInterval(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&buf))
	job.RetentionDays = 30

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	notifArgs := mock.args[1]
	if len(notifArgs) != 1 {
		t.Fatalf("notifications query got %d args, want 1", len(notifArgs))
	}
	if got, ok := notifArgs[0].(string); !ok || got != "30 days" {
		t.Errorf("interval arg = %v, want \"30 days\"", notifArgs[0])
	}
}

func TestCleanupJob_Run_ReturnsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{err: errors.New("connection lost")}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want error")
	}
}
