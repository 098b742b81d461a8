package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/repository"
	"github.com/marketboard/ad-scheduler/internal/scheduler"
	"github.com/marketboard/ad-scheduler/internal/usecase"
)

// ---- fakes ----

type fakeScheduleRepo struct {
	create          func(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error)
	getByID         func(ctx context.Context, id string) (*domain.Schedule, error)
	list            func(ctx context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error)
	listBySlots     func(ctx context.Context, slotIDs []string, date time.Time, statuses []domain.ScheduleStatus) ([]*domain.Schedule, error)
	cancel          func(ctx context.Context, id string) error
	countByStatus   func(ctx context.Context) (map[domain.ScheduleStatus]int, error)
}

func (r *fakeScheduleRepo) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	return r.create(ctx, s)
}

func (r *fakeScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return r.getByID(ctx, id)
}

func (r *fakeScheduleRepo) List(ctx context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error) {
	return r.list(ctx, input)
}

func (r *fakeScheduleRepo) ListBySlotsOnDate(ctx context.Context, slotIDs []string, date time.Time, statuses []domain.ScheduleStatus) ([]*domain.Schedule, error) {
	return r.listBySlots(ctx, slotIDs, date, statuses)
}

func (r *fakeScheduleRepo) DueForExecution(ctx context.Context, now time.Time, limit int) ([]*domain.Schedule, error) {
	return nil, nil
}

func (r *fakeScheduleRepo) DueForRetry(ctx context.Context, now time.Time, limit int) ([]*domain.Schedule, error) {
	return nil, nil
}

func (r *fakeScheduleRepo) MarkRunning(ctx context.Context, id string, from []domain.ScheduleStatus, executedAt time.Time) (bool, error) {
	return false, nil
}

func (r *fakeScheduleRepo) MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	return false, nil
}

func (r *fakeScheduleRepo) MarkFailed(ctx context.Context, id string, retryCount int, nextRetryAt *time.Time, reason string) (bool, error) {
	return false, nil
}

func (r *fakeScheduleRepo) Cancel(ctx context.Context, id string) error {
	return r.cancel(ctx, id)
}

func (r *fakeScheduleRepo) CountByStatus(ctx context.Context) (map[domain.ScheduleStatus]int, error) {
	return r.countByStatus(ctx)
}

func (r *fakeScheduleRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type fakeTimeSlotRepo struct {
	getByID            func(ctx context.Context, id string) (*domain.TimeSlot, error)
	listActive         func(ctx context.Context, weekday int, campaignType string) ([]*domain.TimeSlot, error)
	listOverlapping    func(ctx context.Context, weekday int, start, end domain.TimeOfDay, campaignType string) ([]*domain.TimeSlot, error)
	replaceForCampaign func(ctx context.Context, campaignID string, slots []*domain.TimeSlot) ([]*domain.TimeSlot, error)
}

func (r *fakeTimeSlotRepo) GetByID(ctx context.Context, id string) (*domain.TimeSlot, error) {
	return r.getByID(ctx, id)
}

func (r *fakeTimeSlotRepo) ListByCampaign(ctx context.Context, campaignID string) ([]*domain.TimeSlot, error) {
	return nil, nil
}

func (r *fakeTimeSlotRepo) ListActiveForWeekday(ctx context.Context, weekday int, campaignType string) ([]*domain.TimeSlot, error) {
	return r.listActive(ctx, weekday, campaignType)
}

func (r *fakeTimeSlotRepo) ListOverlapping(ctx context.Context, weekday int, start, end domain.TimeOfDay, campaignType string) ([]*domain.TimeSlot, error) {
	return r.listOverlapping(ctx, weekday, start, end, campaignType)
}

func (r *fakeTimeSlotRepo) ReplaceForCampaign(ctx context.Context, campaignID string, slots []*domain.TimeSlot) ([]*domain.TimeSlot, error) {
	return r.replaceForCampaign(ctx, campaignID, slots)
}

type fakeCampaignRepo struct {
	getByID func(ctx context.Context, id string) (*domain.Campaign, error)
}

func (r *fakeCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	return r.getByID(ctx, id)
}

func (r *fakeCampaignRepo) IncrementImpressions(ctx context.Context, id string, delta int64) error {
	return nil
}

type recordingLogRepo struct {
	entries []*domain.ExecutionLog
}

func (r *recordingLogRepo) Append(ctx context.Context, entry *domain.ExecutionLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingLogRepo) ListByScheduleID(ctx context.Context, scheduleID string, limit int) ([]*domain.ExecutionLog, error) {
	if limit < len(r.entries) {
		return r.entries[:limit], nil
	}
	return r.entries, nil
}

// ---- helpers ----

func testSink(logs *recordingLogRepo) *scheduler.LogSink {
	return scheduler.NewLogSink(logs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mondaySlot(t *testing.T) *domain.TimeSlot {
	t.Helper()
	start, err := domain.ParseTimeOfDay("10:00")
	if err != nil {
		t.Fatal(err)
	}
	end, err := domain.ParseTimeOfDay("12:00")
	if err != nil {
		t.Fatal(err)
	}
	return &domain.TimeSlot{
		ID:         "slot-1",
		CampaignID: "camp-1",
		Start:      start,
		End:        end,
		Weekdays:   []int{1},
		Active:     true,
	}
}

// ---- CreateSchedule ----

func TestCreateSchedule_DerivesRunInstantFromSlot(t *testing.T) {
	slot := mondaySlot(t)
	var created *domain.Schedule

	schedules := &fakeScheduleRepo{
		create: func(_ context.Context, s *domain.Schedule) (*domain.Schedule, error) {
			created = s
			return s, nil
		},
	}
	slots := &fakeTimeSlotRepo{
		getByID: func(_ context.Context, _ string) (*domain.TimeSlot, error) { return slot, nil },
	}
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(schedules, slots, logs, testSink(logs))

	date := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC) // a Monday
	s, err := uc.CreateSchedule(context.Background(), usecase.CreateScheduleInput{
		CampaignID: "camp-1",
		TimeSlotID: slot.ID,
		Date:       date,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, time.June, 16, 10, 0, 0, 0, time.UTC)
	if !s.ScheduledAt.Equal(want) {
		t.Errorf("ScheduledAt = %v, want %v", s.ScheduledAt, want)
	}
	if s.Status != domain.StatusScheduled {
		t.Errorf("status = %s, want scheduled", s.Status)
	}
	if s.MaxRetries != scheduler.DefaultMaxRetries {
		t.Errorf("max retries = %d, want %d", s.MaxRetries, scheduler.DefaultMaxRetries)
	}
	if created == nil {
		t.Fatal("nothing was persisted")
	}
}

func TestCreateSchedule_UnknownSlot_Fails(t *testing.T) {
	slots := &fakeTimeSlotRepo{
		getByID: func(_ context.Context, _ string) (*domain.TimeSlot, error) {
			return nil, domain.ErrTimeSlotNotFound
		},
	}
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(&fakeScheduleRepo{}, slots, logs, testSink(logs))

	_, err := uc.CreateSchedule(context.Background(), usecase.CreateScheduleInput{
		CampaignID: "camp-1",
		TimeSlotID: "missing",
		Date:       time.Now(),
	})
	if !errors.Is(err, domain.ErrTimeSlotNotFound) {
		t.Errorf("want ErrTimeSlotNotFound, got %v", err)
	}
}

func TestCreateSchedule_DuplicatesAllowed(t *testing.T) {
	slot := mondaySlot(t)
	persisted := 0

	schedules := &fakeScheduleRepo{
		create: func(_ context.Context, s *domain.Schedule) (*domain.Schedule, error) {
			persisted++
			return s, nil
		},
	}
	slots := &fakeTimeSlotRepo{
		getByID: func(_ context.Context, _ string) (*domain.TimeSlot, error) { return slot, nil },
	}
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(schedules, slots, logs, testSink(logs))

	input := usecase.CreateScheduleInput{
		CampaignID: "camp-1",
		TimeSlotID: slot.ID,
		Date:       time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 2; i++ {
		if _, err := uc.CreateSchedule(context.Background(), input); err != nil {
			t.Fatalf("create %d: %v", i+1, err)
		}
	}
	if persisted != 2 {
		t.Errorf("persisted %d schedules, want 2 (same slot and date twice)", persisted)
	}
}

// ---- CancelSchedule ----

func TestCancelSchedule_WritesStopLog(t *testing.T) {
	s := &domain.Schedule{ID: "sched-1", CampaignID: "camp-1", Status: domain.StatusScheduled}
	cancelled := false

	schedules := &fakeScheduleRepo{
		getByID: func(_ context.Context, _ string) (*domain.Schedule, error) { return s, nil },
		cancel: func(_ context.Context, id string) error {
			cancelled = true
			return nil
		},
	}
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(schedules, &fakeTimeSlotRepo{}, logs, testSink(logs))

	if err := uc.CancelSchedule(context.Background(), s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cancelled {
		t.Fatal("repository Cancel was never called")
	}

	if len(logs.entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(logs.entries))
	}
	entry := logs.entries[0]
	if entry.Action != domain.ActionStop || entry.Status != domain.LogSuccess {
		t.Errorf("entry = %s/%s, want STOP/SUCCESS", entry.Action, entry.Status)
	}
	if entry.Message != "schedule cancelled (was scheduled)" {
		t.Errorf("message = %q", entry.Message)
	}
}

func TestCancelSchedule_RunningNotCancellable(t *testing.T) {
	s := &domain.Schedule{ID: "sched-1", CampaignID: "camp-1", Status: domain.StatusRunning}

	schedules := &fakeScheduleRepo{
		getByID: func(_ context.Context, _ string) (*domain.Schedule, error) { return s, nil },
		cancel: func(_ context.Context, _ string) error {
			return domain.ErrScheduleNotCancellable
		},
	}
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(schedules, &fakeTimeSlotRepo{}, logs, testSink(logs))

	err := uc.CancelSchedule(context.Background(), s.ID)
	if !errors.Is(err, domain.ErrScheduleNotCancellable) {
		t.Errorf("want ErrScheduleNotCancellable, got %v", err)
	}
	if len(logs.entries) != 0 {
		t.Errorf("got %d log entries after a failed cancel, want 0", len(logs.entries))
	}
}

func TestCancelSchedule_NotFound(t *testing.T) {
	schedules := &fakeScheduleRepo{
		getByID: func(_ context.Context, _ string) (*domain.Schedule, error) {
			return nil, domain.ErrScheduleNotFound
		},
	}
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(schedules, &fakeTimeSlotRepo{}, logs, testSink(logs))

	if err := uc.CancelSchedule(context.Background(), "missing"); !errors.Is(err, domain.ErrScheduleNotFound) {
		t.Errorf("want ErrScheduleNotFound, got %v", err)
	}
}

// ---- ListSchedules ----

func makeSchedules(n int) []*domain.Schedule {
	base := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Schedule, n)
	for i := range out {
		out[i] = &domain.Schedule{
			ID:        string(rune('a' + i)),
			Status:    domain.StatusScheduled,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestListSchedules_PaginatesWithCursor(t *testing.T) {
	var gotInput repository.ListSchedulesInput
	schedules := &fakeScheduleRepo{
		list: func(_ context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error) {
			gotInput = input
			return makeSchedules(input.Limit), nil // a full page signals more rows
		},
	}
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(schedules, &fakeTimeSlotRepo{}, logs, testSink(logs))

	result, err := uc.ListSchedules(context.Background(), usecase.ListSchedulesInput{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotInput.Limit != 3 {
		t.Errorf("repo limit = %d, want requested+1 = 3", gotInput.Limit)
	}
	if len(result.Schedules) != 2 {
		t.Fatalf("page size = %d, want 2", len(result.Schedules))
	}
	if result.NextCursor == nil {
		t.Fatal("full page must yield a next cursor")
	}

	// The repo filter is strictly (created_at, id) < cursor, so the
	// cursor must carry the last row returned ("b"), not the overflow
	// row ("c"): encoding "c" would make page two start after it.
	if last := result.Schedules[len(result.Schedules)-1]; last.ID != "b" {
		t.Fatalf("last returned row = %q, want b", last.ID)
	}
	if _, err := uc.ListSchedules(context.Background(), usecase.ListSchedulesInput{Limit: 2, Cursor: *result.NextCursor}); err != nil {
		t.Fatalf("second page: %v", err)
	}
	if gotInput.CursorTime == nil || gotInput.CursorID != "b" {
		t.Errorf("cursor keyset = time=%v id=%q, want the last returned row b", gotInput.CursorTime, gotInput.CursorID)
	}
}

func TestListSchedules_LastPageHasNoCursor(t *testing.T) {
	schedules := &fakeScheduleRepo{
		list: func(_ context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error) {
			return makeSchedules(1), nil
		},
	}
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(schedules, &fakeTimeSlotRepo{}, logs, testSink(logs))

	result, err := uc.ListSchedules(context.Background(), usecase.ListSchedulesInput{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NextCursor != nil {
		t.Error("partial page must not yield a next cursor")
	}
}

func TestListSchedules_InvalidStatus(t *testing.T) {
	logs := &recordingLogRepo{}
	uc := usecase.NewScheduleUsecase(&fakeScheduleRepo{}, &fakeTimeSlotRepo{}, logs, testSink(logs))

	_, err := uc.ListSchedules(context.Background(), usecase.ListSchedulesInput{Status: "nonsense"})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("want ErrInvalidStatus, got %v", err)
	}
}

// ---- ListScheduleLogs ----

func TestListScheduleLogs_ChecksExistenceAndClampsLimit(t *testing.T) {
	s := &domain.Schedule{ID: "sched-1", Status: domain.StatusCompleted}
	var gotLimit int

	schedules := &fakeScheduleRepo{
		getByID: func(_ context.Context, _ string) (*domain.Schedule, error) { return s, nil },
	}
	logs := &limitCapturingLogRepo{limit: &gotLimit}
	uc := usecase.NewScheduleUsecase(schedules, &fakeTimeSlotRepo{}, logs, testSink(&recordingLogRepo{}))

	if _, err := uc.ListScheduleLogs(context.Background(), s.ID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 50 {
		t.Errorf("limit = %d, want default 50", gotLimit)
	}

	if _, err := uc.ListScheduleLogs(context.Background(), s.ID, 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 50 {
		t.Errorf("limit = %d, want oversized request clamped to 50", gotLimit)
	}
}

type limitCapturingLogRepo struct {
	limit *int
}

func (r *limitCapturingLogRepo) Append(ctx context.Context, entry *domain.ExecutionLog) error {
	return nil
}

func (r *limitCapturingLogRepo) ListByScheduleID(ctx context.Context, scheduleID string, limit int) ([]*domain.ExecutionLog, error) {
	*r.limit = limit
	return nil, nil
}
