package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/normalizer"
	q "github.com/iliyamo/resort-reservation/internal/queue"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

type memStore struct {
	mu      sync.Mutex
	records []model.Reservation
	saves   int
	failing bool
}

func (m *memStore) Load(context.Context) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Reservation(nil), m.records...), nil
}

func (m *memStore) Save(_ context.Context, records []model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("disk full")
	}
	m.saves++
	m.records = append([]model.Reservation(nil), records...)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []q.ReservationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e q.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, q.ReservationEvent) error {
	return errors.New("broker down")
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T, store *memStore, opts ...Option) *ReservationService {
	t.Helper()
	c := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(c.now)}, opts...)
	svc, err := NewReservationService(context.Background(), store, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	if err != nil {
		t.Fatalf("NewReservationService: %v", err)
	}
	return svc
}

func scenarioBody() normalizer.Document {
	return normalizer.Document{
		"guest_name":      "A",
		"phone":           "09171234567",
		"email":           "a@x.com",
		"valid_id_type":   "Passport",
		"valid_id_number": "P1234567",
		"guests":          "2",
		"checkin_date":    "2025-01-01",
		"checkout_date":   "2025-01-05",
	}
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var ve *normalizer.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error %v is not a validation error", err)
	}
	return ve.Message
}

var tokenPattern = regexp.MustCompile(`^BK-[A-Z0-9]{5}$`)

func TestCreate_Scenario(t *testing.T) {
	store := &memStore{}
	pub := &recordingPublisher{}
	svc := newTestService(t, store, WithPublisher(pub))

	rec, err := svc.Create(context.Background(), scenarioBody())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != 1 {
		t.Errorf("id = %d, want 1", rec.ID)
	}
	if rec.Contact != (model.Contact{Phone: "09171234567", Email: "a@x.com"}) {
		t.Errorf("contact = %+v", rec.Contact)
	}
	if rec.Guests != 2 || rec.ResortID != 1 {
		t.Errorf("guests = %d, resort_id = %d", rec.Guests, rec.ResortID)
	}
	if !tokenPattern.MatchString(rec.SMSToken) {
		t.Errorf("sms_token %q", rec.SMSToken)
	}
	if rec.CreatedAt != rec.UpdatedAt || rec.CreatedAt != "2025-01-01T00:00:01.000000Z" {
		t.Errorf("timestamps created_at=%q updated_at=%q", rec.CreatedAt, rec.UpdatedAt)
	}
	if len(store.records) != 1 || store.records[0] != rec {
		t.Errorf("store = %+v", store.records)
	}
	if len(pub.events) != 1 || pub.events[0].Type != q.EventCreated || pub.events[0].SMSToken != rec.SMSToken {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestCreate_IgnoresClientIdentity(t *testing.T) {
	svc := newTestService(t, &memStore{})
	body := scenarioBody()
	body["id"] = 42
	body["sms_token"] = "BK-AAAAA"
	body["created_at"] = "1999-01-01T00:00:00Z"

	rec, err := svc.Create(context.Background(), body)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != 1 || rec.SMSToken == "BK-AAAAA" || rec.CreatedAt == "1999-01-01T00:00:00Z" {
		t.Errorf("client identity accepted: %+v", rec)
	}
}

func TestCreate_IDsNeverReused(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, scenarioBody()); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	if _, err := svc.Delete(ctx, 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rec, err := svc.Create(ctx, scenarioBody())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != 4 {
		t.Errorf("id = %d, want 4", rec.ID)
	}
}

func TestCreate_IDContinuesFromLoadedMax(t *testing.T) {
	store := &memStore{records: []model.Reservation{{ID: 7}, {ID: 3}}}
	svc := newTestService(t, store)
	rec, err := svc.Create(context.Background(), scenarioBody())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != 8 {
		t.Errorf("id = %d, want 8", rec.ID)
	}
}

func TestCreate_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(normalizer.Document)
		want   string
	}{
		{name: "bad phone", mutate: func(d normalizer.Document) { d["phone"] = "0917123456" }, want: normalizer.MsgInvalidPhone},
		{name: "bad guests", mutate: func(d normalizer.Document) { d["guests"] = "lots" }, want: normalizer.MsgInvalidGuests},
		{
			name: "checkin after checkout",
			mutate: func(d normalizer.Document) {
				d["checkin_date"] = "2025-02-01"
				d["checkout_date"] = "2025-01-01"
			},
			want: normalizer.MsgCheckoutOrdered,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			svc := newTestService(t, store)
			body := scenarioBody()
			tt.mutate(body)
			_, err := svc.Create(context.Background(), body)
			if got := validationMessage(t, err); got != tt.want {
				t.Errorf("message %q, want %q", got, tt.want)
			}
			if store.saves != 0 || len(svc.List(context.Background())) != 0 {
				t.Error("rejected reservation was stored")
			}
		})
	}
}

func TestCreate_MissingGuestNameFailsSchema(t *testing.T) {
	svc := newTestService(t, &memStore{})
	body := scenarioBody()
	delete(body, "guest_name")
	_, err := svc.Create(context.Background(), body)
	if msg := validationMessage(t, err); !regexp.MustCompile(`^Schema validation failed: .*guest_name`).MatchString(msg) {
		t.Errorf("message %q", msg)
	}
}

func TestCreate_StoreFailureLeavesCollection(t *testing.T) {
	store := &memStore{failing: true}
	svc := newTestService(t, store)
	_, err := svc.Create(context.Background(), scenarioBody())
	if err == nil {
		t.Fatal("Create succeeded with a failing store")
	}
	var ve *normalizer.ValidationError
	if errors.As(err, &ve) {
		t.Fatalf("store failure reported as validation error: %v", err)
	}
	if len(svc.List(context.Background())) != 0 {
		t.Error("in-memory collection changed after failed save")
	}

	store.failing = false
	rec, err := svc.Create(context.Background(), scenarioBody())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != 1 {
		t.Errorf("id = %d after failed save, want 1", rec.ID)
	}
}

func TestUpdate_NoChangesOnlyTouchesUpdatedAt(t *testing.T) {
	svc := newTestService(t, &memStore{})
	ctx := context.Background()
	created, err := svc.Create(ctx, scenarioBody())
	if err != nil {
		t.Fatal(err)
	}

	for name, apply := range map[string]func(context.Context, uint64, normalizer.Document) (model.Reservation, error){
		"PUT":   svc.Update,
		"PATCH": svc.Patch,
	} {
		got, err := apply(ctx, created.ID, normalizer.Document{})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got.UpdatedAt == created.UpdatedAt {
			t.Errorf("%s: updated_at not refreshed", name)
		}
		got.UpdatedAt = created.UpdatedAt
		if got != created {
			t.Errorf("%s changed the record:\n got %+v\nwant %+v", name, got, created)
		}
	}
}

func TestPatch_KeepsIdentity(t *testing.T) {
	svc := newTestService(t, &memStore{})
	ctx := context.Background()
	created, err := svc.Create(ctx, scenarioBody())
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Patch(ctx, created.ID, normalizer.Document{
		"id":         99,
		"sms_token":  "BK-ZZZZZ",
		"created_at": "1999-01-01T00:00:00Z",
		"guests":     4,
		"email":      "new@x.com",
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got.ID != created.ID || got.SMSToken != created.SMSToken || got.CreatedAt != created.CreatedAt {
		t.Errorf("identity changed: %+v", got)
	}
	if got.Guests != 4 || got.Contact.Email != "new@x.com" || got.Contact.Phone != created.Contact.Phone {
		t.Errorf("patch not applied: %+v", got)
	}
	stored, _ := svc.Get(ctx, created.ID)
	if stored != got {
		t.Errorf("Get = %+v, want %+v", stored, got)
	}
}

func TestPatch_NullAndEmptyKeepStoredValues(t *testing.T) {
	svc := newTestService(t, &memStore{})
	ctx := context.Background()
	body := scenarioBody()
	body["resort_id"] = 5
	body["room_type"] = "Deluxe"
	created, err := svc.Create(ctx, body)
	if err != nil {
		t.Fatal(err)
	}

	for name, patch := range map[string]normalizer.Document{
		"null resort_id":  {"resort_id": nil},
		"empty room_type": {"room_type": ""},
		"null contact":    {"contact": nil, "email": ""},
	} {
		got, err := svc.Patch(ctx, created.ID, patch)
		if err != nil {
			t.Fatalf("%s: Patch: %v", name, err)
		}
		if got.ResortID != 5 || got.RoomType != "Deluxe" || got.Contact != created.Contact {
			t.Errorf("%s overwrote stored values: %+v", name, got)
		}
	}
}

func TestPatch_InvalidLeavesStoreUnchanged(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	ctx := context.Background()
	created, err := svc.Create(ctx, scenarioBody())
	if err != nil {
		t.Fatal(err)
	}
	before := svc.List(ctx)
	saves := store.saves

	bodies := []normalizer.Document{
		{"checkin_date": "2025-03-01"},
		{"phone": "12345"},
		{"guests": 0},
		{"resort_id": "abc"},
		{"unexpected": "field"},
	}
	for _, body := range bodies {
		if _, err := svc.Patch(ctx, created.ID, body); err == nil {
			t.Errorf("Patch(%v) accepted", body)
		}
	}
	if !reflect.DeepEqual(svc.List(ctx), before) {
		t.Error("collection changed after rejected patches")
	}
	if store.saves != saves {
		t.Errorf("store saved %d times for rejected patches", store.saves-saves)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(t, &memStore{})
	if _, err := svc.Update(context.Background(), 5, scenarioBody()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := &memStore{}
	pub := &recordingPublisher{}
	svc := newTestService(t, store, WithPublisher(pub))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, scenarioBody()); err != nil {
			t.Fatal(err)
		}
	}
	before := svc.List(ctx)

	if _, err := svc.Delete(ctx, 9); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Delete missing: err = %v", err)
	}
	if !reflect.DeepEqual(svc.List(ctx), before) {
		t.Error("collection changed after deleting a missing id")
	}

	removed, err := svc.Delete(ctx, 1)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed.ID != 1 {
		t.Errorf("removed id %d", removed.ID)
	}
	if _, err := svc.Get(ctx, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if len(store.records) != 1 || store.records[0].ID != 2 {
		t.Errorf("store = %+v", store.records)
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != q.EventDeleted || last.ReservationID != 1 {
		t.Errorf("last event = %+v", last)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	svc := newTestService(t, &memStore{}, WithPublisher(failingPublisher{}))
	if _, err := svc.Create(context.Background(), scenarioBody()); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	svc := newTestService(t, &memStore{}, WithClock(time.Now))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(ctx, scenarioBody()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	seen := map[uint64]bool{}
	for _, r := range svc.List(ctx) {
		if seen[r.ID] {
			t.Fatalf("duplicate id %d", r.ID)
		}
		seen[r.ID] = true
	}
	if len(seen) != 20 {
		t.Errorf("%d records, want 20", len(seen))
	}
}
