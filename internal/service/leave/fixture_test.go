package leave

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
	"github.com/stretchr/testify/require"
)

// fixedNow is mid-August so September requests are in the future
var fixedNow = time.Date(2025, time.August, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memStore
	notifier *fakeNotifier
	svc      *LeaveServiceImpl

	casual leave.LeaveType
	health leave.LeaveType
	annual leave.LeaveType
	short  leave.LeaveType

	admin    user.User
	manager  user.User
	manager2 user.User
	employee user.User
	peer     user.User
	inactive user.User
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store := newMemStore()
	f := &fixture{store: store, notifier: &fakeNotifier{}}

	f.admin = store.addUser(user.User{FullName: "Hana Admin", Email: "hana@example.com", Role: user.RoleAdmin, IsActive: true})
	f.manager = store.addUser(user.User{FullName: "Budi Manager", Email: "budi@example.com", Role: user.RoleManager, IsActive: true})
	f.manager2 = store.addUser(user.User{FullName: "Rina Manager", Email: "rina@example.com", Role: user.RoleManager, IsActive: true})
	f.employee = store.addUser(user.User{FullName: "Sari Employee", Email: "sari@example.com", Role: user.RoleEmployee, ManagerID: &f.manager.ID, Department: strp("engineering"), IsActive: true})
	f.peer = store.addUser(user.User{FullName: "Dewi Employee", Email: "dewi@example.com", Role: user.RoleEmployee, Department: strp("finance"), IsActive: true})
	f.inactive = store.addUser(user.User{FullName: "Agus Former", Email: "agus@example.com", Role: user.RoleEmployee, ManagerID: &f.manager.ID, IsActive: false})

	types := memLeaveTypes{store}
	ctx := context.Background()
	var err error
	f.casual, err = types.Create(ctx, leave.LeaveType{Code: leave.CodeCasual, Name: "Casual Leave", AnnualDays: 12})
	require.NoError(t, err)
	f.health, err = types.Create(ctx, leave.LeaveType{Code: leave.CodeHealth, Name: "Health Leave", AnnualDays: 12})
	require.NoError(t, err)
	f.annual, err = types.Create(ctx, leave.LeaveType{Code: "annual", Name: "Annual Leave", AnnualDays: 12, CarryForwardDays: 5})
	require.NoError(t, err)
	f.short, err = types.Create(ctx, leave.LeaveType{Code: "short", Name: "Short Leave", AnnualDays: 6, MaxConsecutiveDays: intp(2)})
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.svc = NewLeaveService(
		&memTransactor{store: store},
		types,
		memBalances{store},
		memUsage{store},
		memRequests{store},
		memUsers{store},
		memSettings{store},
		f.notifier,
		opts...,
	)
	return f
}

func principalOf(u user.User) user.Principal {
	return user.Principal{UserID: u.ID, Role: u.Role, ManagerID: u.ManagerID}
}

func (f *fixture) submit(t *testing.T, u user.User, leaveType, start, end string, emergency bool) (leave.SubmitResponse, error) {
	t.Helper()
	return f.svc.SubmitRequest(context.Background(), principalOf(u), leave.SubmitRequest{
		LeaveType: leaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    "family matters",
		Emergency: emergency,
	})
}

func (f *fixture) mustSubmit(t *testing.T, u user.User, leaveType, start, end string) leave.SubmitResponse {
	t.Helper()
	resp, err := f.submit(t, u, leaveType, start, end, false)
	require.NoError(t, err)
	return resp
}

func (f *fixture) transition(u user.User, requestID string, action leave.Action) (leave.TransitionResponse, error) {
	return f.svc.Transition(context.Background(), principalOf(u), requestID, leave.TransitionRequest{Action: action})
}

func (f *fixture) balance(t *testing.T, u user.User, lt leave.LeaveType, year int) leave.LeaveBalance {
	t.Helper()
	b, ok := f.store.balance(u.ID, lt.ID, year)
	require.True(t, ok, "no %s balance for %s in %d", lt.Code, u.FullName, year)
	return b
}

// requireLedgerConsistent checks that every balance row still satisfies the remaining-days formula
func (f *fixture) requireLedgerConsistent(t *testing.T) {
	t.Helper()
	for _, b := range f.store.allBalances() {
		require.GreaterOrEqual(t, b.UsedDays, 0)
		require.GreaterOrEqual(t, b.PendingDays, 0)
		require.GreaterOrEqual(t, b.RemainingDays, 0)
		require.Equal(t, leave.RemainingDays(b.TotalDays, b.UsedDays, b.PendingDays, b.CarryForwardDays), b.RemainingDays)
	}
}
