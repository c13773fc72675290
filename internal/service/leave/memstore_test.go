package leave

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/setting"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
	"github.com/google/uuid"
)

type balanceKey struct {
	userID      string
	leaveTypeID string
	year        int
}

type usageKey struct {
	userID      string
	leaveTypeID string
	year        int
	month       int
}

// memStore backs every repository interface with maps so the service can be tested
// without Postgres.
type memStore struct {
	mu sync.Mutex

	userOrder []string
	users     map[string]user.User
	types     map[string]leave.LeaveType
	balances  map[balanceKey]leave.LeaveBalance
	usage     map[usageKey]leave.MonthlyUsage
	requests  map[string]leave.LeaveRequest
	settings  map[string]json.RawMessage

	// failures maps an operation name, optionally suffixed with ":<userID>", to the error it returns
	failures map[string]error
	tick     int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]user.User),
		types:    make(map[string]leave.LeaveType),
		balances: make(map[balanceKey]leave.LeaveBalance),
		usage:    make(map[usageKey]leave.MonthlyUsage),
		requests: make(map[string]leave.LeaveRequest),
		settings: make(map[string]json.RawMessage),
		failures: make(map[string]error),
	}
}

type memSnapshot struct {
	types    map[string]leave.LeaveType
	balances map[balanceKey]leave.LeaveBalance
	usage    map[usageKey]leave.MonthlyUsage
	requests map[string]leave.LeaveRequest
	settings map[string]json.RawMessage
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		types:    copyMap(s.types),
		balances: copyMap(s.balances),
		usage:    copyMap(s.usage),
		requests: copyMap(s.requests),
		settings: copyMap(s.settings),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = snap.types
	s.balances = snap.balances
	s.usage = snap.usage
	s.requests = snap.requests
	s.settings = snap.settings
}

func (s *memStore) fail(op string, userID string) error {
	if err, ok := s.failures[op+":"+userID]; ok {
		return err
	}
	return s.failures[op]
}

func (s *memStore) addUser(u user.User) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return u
}

func (s *memStore) putBalance(b leave.LeaveBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Recompute()
	s.balances[balanceKey{b.UserID, b.LeaveTypeID, b.Year}] = b
}

func (s *memStore) balance(userID, leaveTypeID string, year int) (leave.LeaveBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[balanceKey{userID, leaveTypeID, year}]
	return b, ok
}

func (s *memStore) putRequest(r leave.LeaveRequest) leave.LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.tick++
	r.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.tick) * time.Minute)
	r.UpdatedAt = r.CreatedAt
	s.requests[r.ID] = r
	return r
}

func (s *memStore) request(id string) leave.LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

func (s *memStore) allBalances() []leave.LeaveBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]leave.LeaveBalance, 0, len(s.balances))
	for _, b := range s.balances {
		out = append(out, b)
	}
	return out
}

func (s *memStore) usageRows(userID string, year int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.usage {
		if k.userID == userID && k.year == year {
			n++
		}
	}
	return n
}

func (s *memStore) withTypeInfo(b leave.LeaveBalance) leave.LeaveBalance {
	if lt, ok := s.types[b.LeaveTypeID]; ok {
		code, name := lt.Code, lt.Name
		b.LeaveTypeCode, b.LeaveTypeName = &code, &name
	}
	return b
}

// ============= Transactor =============

type memTxKey struct{}

// memTransactor serialises transactions and restores a snapshot when fn fails
type memTransactor struct {
	store *memStore
	txMu  sync.Mutex
}

func (t *memTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	t.txMu.Lock()
	defer t.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// ============= Leave types =============

type memLeaveTypes struct{ *memStore }

func (s memLeaveTypes) Create(ctx context.Context, lt leave.LeaveType) (leave.LeaveType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.types {
		if existing.Code == lt.Code {
			return leave.LeaveType{}, leave.ErrLeaveTypeCodeExists
		}
	}
	if lt.ID == "" {
		lt.ID = uuid.NewString()
	}
	lt.CreatedAt = time.Now()
	lt.UpdatedAt = lt.CreatedAt
	s.types[lt.ID] = lt
	return lt, nil
}

func (s memLeaveTypes) GetByID(ctx context.Context, id string) (leave.LeaveType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lt, ok := s.types[id]
	if !ok {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	return lt, nil
}

func (s memLeaveTypes) GetByCode(ctx context.Context, code string) (leave.LeaveType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lt := range s.types {
		if lt.Code == code {
			return lt, nil
		}
	}
	return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
}

func (s memLeaveTypes) List(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]leave.LeaveType, 0, len(s.types))
	for _, lt := range s.types {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s memLeaveTypes) ListByCodes(ctx context.Context, codes []string) ([]leave.LeaveType, error) {
	all, _ := s.List(ctx)
	out := []leave.LeaveType{}
	for _, lt := range all {
		for _, c := range codes {
			if lt.Code == c {
				out = append(out, lt)
			}
		}
	}
	return out, nil
}

func (s memLeaveTypes) Update(ctx context.Context, lt leave.LeaveType) (leave.LeaveType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.types[lt.ID]
	if !ok {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	lt.Code = existing.Code
	lt.CreatedAt = existing.CreatedAt
	lt.UpdatedAt = time.Now()
	s.types[lt.ID] = lt
	return lt, nil
}

// ============= Balances =============

type memBalances struct{ *memStore }

func (s memBalances) Get(ctx context.Context, userID, leaveTypeID string, year int) (leave.LeaveBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[balanceKey{userID, leaveTypeID, year}]
	if !ok {
		return leave.LeaveBalance{}, leave.ErrBalanceNotFound
	}
	return s.withTypeInfo(b), nil
}

func (s memBalances) GetForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (leave.LeaveBalance, error) {
	return s.Get(ctx, userID, leaveTypeID, year)
}

func (s memBalances) ListByUserYear(ctx context.Context, userID string, year int) ([]leave.LeaveBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []leave.LeaveBalance{}
	for k, b := range s.balances {
		if k.userID == userID && k.year == year {
			out = append(out, s.withTypeInfo(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].LeaveTypeCode < *out[j].LeaveTypeCode })
	return out, nil
}

func (s memBalances) InsertIfAbsent(ctx context.Context, b leave.LeaveBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := balanceKey{b.UserID, b.LeaveTypeID, b.Year}
	if _, ok := s.balances[key]; ok {
		return nil
	}
	b.ID = uuid.NewString()
	b.Recompute()
	s.balances[key] = b
	return nil
}

func (s memBalances) mutate(op, userID, leaveTypeID string, year int, fn func(b *leave.LeaveBalance)) (leave.LeaveBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(op, userID); err != nil {
		return leave.LeaveBalance{}, err
	}
	key := balanceKey{userID, leaveTypeID, year}
	b, ok := s.balances[key]
	if !ok {
		return leave.LeaveBalance{}, leave.ErrBalanceNotFound
	}
	fn(&b)
	b.Recompute()
	s.balances[key] = b
	return b, nil
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (s memBalances) AdjustPending(ctx context.Context, userID, leaveTypeID string, year, delta int) (leave.LeaveBalance, error) {
	return s.mutate("AdjustPending", userID, leaveTypeID, year, func(b *leave.LeaveBalance) {
		b.PendingDays = floorZero(b.PendingDays + delta)
	})
}

func (s memBalances) CommitUsage(ctx context.Context, userID, leaveTypeID string, year, days int) (leave.LeaveBalance, error) {
	return s.mutate("CommitUsage", userID, leaveTypeID, year, func(b *leave.LeaveBalance) {
		b.PendingDays = floorZero(b.PendingDays - days)
		b.UsedDays += days
	})
}

func (s memBalances) AddUsed(ctx context.Context, userID, leaveTypeID string, year, days int) (leave.LeaveBalance, error) {
	return s.mutate("AddUsed", userID, leaveTypeID, year, func(b *leave.LeaveBalance) {
		b.UsedDays = floorZero(b.UsedDays + days)
	})
}

func (s memBalances) upsert(op, userID, leaveTypeID string, year, totalDays int, fn func(b *leave.LeaveBalance)) (leave.LeaveBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(op, userID); err != nil {
		return leave.LeaveBalance{}, err
	}
	key := balanceKey{userID, leaveTypeID, year}
	b, ok := s.balances[key]
	if !ok {
		b = leave.LeaveBalance{ID: uuid.NewString(), UserID: userID, LeaveTypeID: leaveTypeID, Year: year, TotalDays: totalDays}
	}
	fn(&b)
	b.Recompute()
	s.balances[key] = b
	return b, nil
}

func (s memBalances) Reset(ctx context.Context, userID, leaveTypeID string, year, totalDays int) (leave.LeaveBalance, error) {
	return s.upsert("Reset", userID, leaveTypeID, year, totalDays, func(b *leave.LeaveBalance) {
		b.TotalDays = totalDays
		b.UsedDays, b.PendingDays, b.CarryForwardDays = 0, 0, 0
	})
}

func (s memBalances) SetCarryForward(ctx context.Context, userID, leaveTypeID string, year, carryForward, totalDays int) (leave.LeaveBalance, error) {
	return s.upsert("SetCarryForward", userID, leaveTypeID, year, totalDays, func(b *leave.LeaveBalance) {
		b.CarryForwardDays = carryForward
	})
}

// ============= Monthly usage =============

type memUsage struct{ *memStore }

func (s memUsage) Get(ctx context.Context, userID, leaveTypeID string, year, month int) (leave.MonthlyUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usage[usageKey{userID, leaveTypeID, year, month}]
	if !ok {
		return leave.MonthlyUsage{}, leave.ErrMonthlyUsageNotFound
	}
	return u, nil
}

func (s memUsage) ListByUserMonth(ctx context.Context, userID string, year, month int) ([]leave.MonthlyUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []leave.MonthlyUsage{}
	for k, u := range s.usage {
		if k.userID == userID && k.year == year && k.month == month {
			if lt, ok := s.types[u.LeaveTypeID]; ok {
				code, name := lt.Code, lt.Name
				u.LeaveTypeCode, u.LeaveTypeName = &code, &name
			}
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveTypeID < out[j].LeaveTypeID })
	return out, nil
}

func (s memUsage) Increment(ctx context.Context, userID, leaveTypeID string, year, month, days, maxAllowed int) (leave.MonthlyUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := usageKey{userID, leaveTypeID, year, month}
	u, ok := s.usage[key]
	if !ok {
		u = leave.MonthlyUsage{ID: uuid.NewString(), UserID: userID, LeaveTypeID: leaveTypeID, Year: year, Month: month, MaxAllowed: maxAllowed}
	}
	u.UsedDays += days
	s.usage[key] = u
	return u, nil
}

func (s memUsage) DeleteByUserYear(ctx context.Context, userID string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteByUserYear", userID); err != nil {
		return 0, err
	}
	var n int64
	for k := range s.usage {
		if k.userID == userID && k.year == year {
			delete(s.usage, k)
			n++
		}
	}
	return n, nil
}

// ============= Requests =============

type memRequests struct{ *memStore }

func (s memRequests) Create(ctx context.Context, r leave.LeaveRequest) (leave.LeaveRequest, error) {
	return s.putRequest(r), nil
}

func (s memRequests) decorate(r leave.LeaveRequest) leave.LeaveRequest {
	if lt, ok := s.types[r.LeaveTypeID]; ok {
		code, name := lt.Code, lt.Name
		r.LeaveTypeCode, r.LeaveTypeName = &code, &name
	}
	if u, ok := s.users[r.UserID]; ok {
		name := u.FullName
		r.UserName = &name
	}
	return r
}

func (s memRequests) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	return s.decorate(r), nil
}

func (s memRequests) GetForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return s.GetByID(ctx, id)
}

func (s memRequests) UpdateTransition(ctx context.Context, r leave.LeaveRequest) (leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	r.UpdatedAt = r.UpdatedAt.Add(time.Second)
	s.requests[r.ID] = r
	return s.decorate(r), nil
}

func (s memRequests) HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.UserID == userID && r.Status.BlocksOverlap() && !r.StartDate.After(end) && !r.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (s memRequests) List(ctx context.Context, q leave.RequestQuery) ([]leave.LeaveRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []leave.LeaveRequest
	for _, r := range s.requests {
		owner := s.users[r.UserID]
		switch q.Scope {
		case leave.ScopeOwn:
			if r.UserID != q.ViewerID {
				continue
			}
		case leave.ScopeTeam:
			if r.UserID != q.ViewerID && !owner.IsManagedBy(q.ViewerID) {
				continue
			}
		}
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		if q.LeaveTypeID != nil && r.LeaveTypeID != *q.LeaveTypeID {
			continue
		}
		if q.UserID != nil && r.UserID != *q.UserID {
			continue
		}
		if q.Department != nil && (owner.Department == nil || *owner.Department != *q.Department) {
			continue
		}
		if q.From != nil && r.EndDate.Before(*q.From) {
			continue
		}
		if q.To != nil && r.StartDate.After(*q.To) {
			continue
		}
		matched = append(matched, s.decorate(r))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []leave.LeaveRequest{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], total, nil
}

func (s memRequests) LockUser(ctx context.Context, userID string) error {
	return nil
}

// ============= Users =============

type memUsers struct{ *memStore }

func (s memUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (s memUsers) ListActive(ctx context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListActive"]; err != nil {
		return nil, err
	}
	out := []user.User{}
	for _, id := range s.userOrder {
		if u := s.users[id]; u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s memUsers) ListDirectReports(ctx context.Context, managerID string) ([]user.User, error) {
	active, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := []user.User{}
	for _, u := range active {
		if u.IsManagedBy(managerID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s memUsers) GetFirstActiveAdmin(ctx context.Context) (user.User, error) {
	active, err := s.ListActive(ctx)
	if err != nil {
		return user.User{}, err
	}
	for _, u := range active {
		if u.IsAdmin() {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

// ============= Settings =============

type memSettings struct{ *memStore }

func (s memSettings) Get(ctx context.Context, key string) (setting.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	if !ok {
		return setting.Setting{}, setting.ErrSettingNotFound
	}
	return setting.Setting{Key: key, Value: v}, nil
}

func (s memSettings) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.settings[key]
	return ok, nil
}

func (s memSettings) Upsert(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = data
	return nil
}

// ============= Notifications =============

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification.CreateNotificationRequest
	err  error
}

func (n *fakeNotifier) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, req)
	return nil
}

func (n *fakeNotifier) to(userID string) []notification.CreateNotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.CreateNotificationRequest
	for _, req := range n.sent {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	return out
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var errInjected = errors.New("injected storage failure")
