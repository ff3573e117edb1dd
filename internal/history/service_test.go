package history

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/volunthub/internal/model"
)

// --- モック ---

type mockParticipationRepo struct {
	listByVolunteerFn func(ctx context.Context, volunteerID string) ([]*model.ParticipationRecord, error)
	listAllFn         func(ctx context.Context) ([]*model.ParticipationRecord, error)
}

func (m *mockParticipationRepo) FindByVolunteerAndEvent(ctx context.Context, volunteerID, eventID string) (*model.ParticipationRecord, error) {
	return nil, nil
}
func (m *mockParticipationRepo) ListByVolunteer(ctx context.Context, volunteerID string) ([]*model.ParticipationRecord, error) {
	if m.listByVolunteerFn != nil {
		return m.listByVolunteerFn(ctx, volunteerID)
	}
	return nil, nil
}
func (m *mockParticipationRepo) ListByEvent(ctx context.Context, eventID string) ([]*model.ParticipationRecord, error) {
	return nil, nil
}
func (m *mockParticipationRepo) ListAll(ctx context.Context) ([]*model.ParticipationRecord, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}
func (m *mockParticipationRepo) CountTowardCapacity(ctx context.Context, eventID string) (int, error) {
	return 0, nil
}
func (m *mockParticipationRepo) InsertPendingIfCapacity(ctx context.Context, rec *model.ParticipationRecord) (bool, error) {
	return false, nil
}
func (m *mockParticipationRepo) RevivePendingIfCapacity(ctx context.Context, volunteerID, eventID string, joinedAt time.Time, skillsUsed []string) (bool, error) {
	return false, nil
}
func (m *mockParticipationRepo) DeletePending(ctx context.Context, volunteerID, eventID string) (bool, error) {
	return false, nil
}
func (m *mockParticipationRepo) UpdateStatus(ctx context.Context, id string, status model.ParticipationStatus, rating *int) error {
	return nil
}

type mockEventRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Event, error)
	listFn     func(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockEventRepo) FindBySourceGUID(ctx context.Context, guid string) (*model.Event, error) {
	return nil, nil
}
func (m *mockEventRepo) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}
func (m *mockEventRepo) Create(ctx context.Context, event *model.Event) error { return nil }
func (m *mockEventRepo) Update(ctx context.Context, event *model.Event) error { return nil }
func (m *mockEventRepo) Delete(ctx context.Context, id string) error          { return nil }

type mockUserRepo struct {
	listAllFn func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

// --- テスト ---

// TestService_ListHistory は履歴がイベント表示情報付きで返ることを検証する。
func TestService_ListHistory(t *testing.T) {
	partRepo := &mockParticipationRepo{
		listByVolunteerFn: func(ctx context.Context, volunteerID string) ([]*model.ParticipationRecord, error) {
			return []*model.ParticipationRecord{
				{ID: "rec-1", VolunteerID: volunteerID, EventID: "event-1", Status: model.ParticipationCompleted},
			}, nil
		},
	}
	eventRepo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{
				ID:        id,
				Title:     "River Cleanup",
				EventDate: "2026-09-15",
				StartTime: "09:00",
				EndTime:   "12:00",
				Location:  "Riverside Park",
			}, nil
		},
	}
	svc := NewService(partRepo, eventRepo, &mockUserRepo{})

	entries, err := svc.ListHistory(context.Background(), "vol-1")
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.EventName != "River Cleanup" {
		t.Errorf("EventName = %q, want %q", entry.EventName, "River Cleanup")
	}
	if entry.EventTime != "09:00 - 12:00" {
		t.Errorf("EventTime = %q, want %q", entry.EventTime, "09:00 - 12:00")
	}
	if entry.EventDeleted {
		t.Error("EventDeleted = true, want false")
	}
}

// TestService_ListHistory_DeletedEvent は削除済みイベントの履歴が
// プレースホルダ付きで残ることを検証する。
func TestService_ListHistory_DeletedEvent(t *testing.T) {
	partRepo := &mockParticipationRepo{
		listByVolunteerFn: func(ctx context.Context, volunteerID string) ([]*model.ParticipationRecord, error) {
			return []*model.ParticipationRecord{
				{ID: "rec-1", VolunteerID: volunteerID, EventID: "gone-event", Status: model.ParticipationCompleted},
			}, nil
		},
	}
	svc := NewService(partRepo, &mockEventRepo{}, &mockUserRepo{})

	entries, err := svc.ListHistory(context.Background(), "vol-1")
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 (record must survive event deletion)", len(entries))
	}
	if !entries[0].EventDeleted {
		t.Error("EventDeleted = false, want true")
	}
	if entries[0].EventName != deletedEventName {
		t.Errorf("EventName = %q, want placeholder %q", entries[0].EventName, deletedEventName)
	}
	if entries[0].Record.Status != model.ParticipationCompleted {
		t.Errorf("Record.Status = %q, want %q", entries[0].Record.Status, model.ParticipationCompleted)
	}
}

// TestService_ComputeStats は状態別カウントと完了率の計算を検証する。
// TotalEventsは状態別カウントの合計と常に一致する。
func TestService_ComputeStats(t *testing.T) {
	partRepo := &mockParticipationRepo{
		listByVolunteerFn: func(ctx context.Context, volunteerID string) ([]*model.ParticipationRecord, error) {
			return []*model.ParticipationRecord{
				{Status: model.ParticipationCompleted},
				{Status: model.ParticipationCompleted},
				{Status: model.ParticipationPending},
				{Status: model.ParticipationCancelled},
				{Status: model.ParticipationNoShow},
			}, nil
		},
	}
	svc := NewService(partRepo, &mockEventRepo{}, &mockUserRepo{})

	stats, err := svc.ComputeStats(context.Background(), "vol-1")
	if err != nil {
		t.Fatalf("ComputeStats() error = %v", err)
	}

	if stats.TotalEvents != 5 {
		t.Errorf("TotalEvents = %d, want 5", stats.TotalEvents)
	}
	if sum := stats.Completed + stats.Pending + stats.Cancelled + stats.NoShow; sum != stats.TotalEvents {
		t.Errorf("status counts sum = %d, want TotalEvents %d", sum, stats.TotalEvents)
	}
	if stats.Completed != 2 || stats.Pending != 1 || stats.Cancelled != 1 || stats.NoShow != 1 {
		t.Errorf("counts = %+v, want completed=2 pending=1 cancelled=1 no_show=1", stats)
	}
	// completed/total×100 = 2/5×100
	if want := 40.0; stats.CompletionRate != want {
		t.Errorf("CompletionRate = %v, want %v", stats.CompletionRate, want)
	}
}

// TestService_ComputeStats_Empty は記録ゼロ件での統計を検証する。
// 完了率は0除算にならず0になる。
func TestService_ComputeStats_Empty(t *testing.T) {
	svc := NewService(&mockParticipationRepo{}, &mockEventRepo{}, &mockUserRepo{})

	stats, err := svc.ComputeStats(context.Background(), "vol-1")
	if err != nil {
		t.Fatalf("ComputeStats() error = %v", err)
	}
	if stats.TotalEvents != 0 {
		t.Errorf("TotalEvents = %d, want 0", stats.TotalEvents)
	}
	if stats.CompletionRate != 0 {
		t.Errorf("CompletionRate = %v, want 0", stats.CompletionRate)
	}
}

// TestService_VolunteerReport はボランティア別レポートを検証する。
// 管理者ユーザーは行に含まれない。
func TestService_VolunteerReport(t *testing.T) {
	userRepo := &mockUserRepo{
		listAllFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: "vol-1", Name: "Maria", Email: "maria@example.com", Role: model.RoleVolunteer},
				{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin},
				{ID: "vol-2", Name: "Ken", Email: "ken@example.com", Role: model.RoleVolunteer},
			}, nil
		},
	}
	partRepo := &mockParticipationRepo{
		listAllFn: func(ctx context.Context) ([]*model.ParticipationRecord, error) {
			return []*model.ParticipationRecord{
				{VolunteerID: "vol-1", EventID: "e1", Status: model.ParticipationCompleted},
				{VolunteerID: "vol-1", EventID: "e2", Status: model.ParticipationPending},
			}, nil
		},
	}
	svc := NewService(partRepo, &mockEventRepo{}, userRepo)

	rows, err := svc.VolunteerReport(context.Background())
	if err != nil {
		t.Fatalf("VolunteerReport() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (admin excluded)", len(rows))
	}
	if rows[0].VolunteerID != "vol-1" || rows[0].Stats.TotalEvents != 2 || rows[0].Stats.Completed != 1 {
		t.Errorf("row[0] = %+v, want vol-1 with total=2 completed=1", rows[0])
	}
	if rows[1].VolunteerID != "vol-2" || rows[1].Stats.TotalEvents != 0 {
		t.Errorf("row[1] = %+v, want vol-2 with no participation", rows[1])
	}
}

// TestService_EventReport はイベント別レポートと残枠計算を検証する。
func TestService_EventReport(t *testing.T) {
	eventRepo := &mockEventRepo{
		listFn: func(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
			return []*model.Event{
				{ID: "e1", Title: "River Cleanup", Capacity: 5},
				{ID: "e2", Title: "Food Drive", Capacity: 2},
			}, nil
		},
	}
	partRepo := &mockParticipationRepo{
		listAllFn: func(ctx context.Context) ([]*model.ParticipationRecord, error) {
			return []*model.ParticipationRecord{
				{VolunteerID: "vol-1", EventID: "e1", Status: model.ParticipationPending},
				{VolunteerID: "vol-2", EventID: "e1", Status: model.ParticipationCompleted},
				{VolunteerID: "vol-3", EventID: "e1", Status: model.ParticipationCancelled},
				{VolunteerID: "vol-4", EventID: "e2", Status: model.ParticipationNoShow},
			}, nil
		},
	}
	svc := NewService(partRepo, eventRepo, &mockUserRepo{})

	rows, err := svc.EventReport(context.Background())
	if err != nil {
		t.Fatalf("EventReport() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	// e1: pending=1, completed=1, cancelled=1 → 残枠 5-(1+1)=3
	if rows[0].Pending != 1 || rows[0].Completed != 1 || rows[0].Cancelled != 1 {
		t.Errorf("e1 counts = %+v, want pending=1 completed=1 cancelled=1", rows[0])
	}
	if rows[0].SlotsRemaining != 3 {
		t.Errorf("e1 SlotsRemaining = %d, want 3", rows[0].SlotsRemaining)
	}

	// e2: no_showは定員を消費しない → 残枠2
	if rows[1].NoShow != 1 {
		t.Errorf("e2 NoShow = %d, want 1", rows[1].NoShow)
	}
	if rows[1].SlotsRemaining != 2 {
		t.Errorf("e2 SlotsRemaining = %d, want 2", rows[1].SlotsRemaining)
	}
}
