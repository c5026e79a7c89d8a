package docstore

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/profepj/profepj/pkg/finance"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/subscription"
)

type userDocs struct {
	profile      *subscription.Profile
	subscription *subscription.Subscription
	institutions map[string]ledger.Institution
	lessons      map[string]ledger.Lesson
	pots         map[string]ledger.Pot
	obligations  map[string]ledger.MonthlyObligation
}

func newUserDocs() *userDocs {
	return &userDocs{
		institutions: make(map[string]ledger.Institution),
		lessons:      make(map[string]ledger.Lesson),
		pots:         make(map[string]ledger.Pot),
		obligations:  make(map[string]ledger.MonthlyObligation),
	}
}

// Memory is an in-process store. All writes for a call happen under one
// lock, so multi-record operations are atomic.
type Memory struct {
	mu    sync.RWMutex
	users map[string]*userDocs
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]*userDocs)}
}

func (m *Memory) user(uid string) *userDocs {
	u, ok := m.users[uid]
	if !ok {
		u = newUserDocs()
		m.users[uid] = u
	}
	return u
}

func (m *Memory) lookup(uid string) (*userDocs, bool) {
	u, ok := m.users[uid]
	return u, ok
}

// subscription.Store

func (m *Memory) GetProfile(_ context.Context, uid string) (*subscription.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok || u.profile == nil {
		return nil, subscription.ErrProfileNotFound
	}
	return copyProfile(*u.profile), nil
}

func (m *Memory) GetSubscription(_ context.Context, uid string) (*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok || u.subscription == nil {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return copySubscription(*u.subscription), nil
}

func (m *Memory) ApplySubscription(_ context.Context, uid string, sub subscription.Subscription, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.lookup(uid)
	if !ok || u.profile == nil {
		return subscription.ErrProfileNotFound
	}
	u.subscription = copySubscription(sub)
	u.profile.SubscriptionStatus = sub.Status
	if customerID != "" {
		u.profile.CustomerID = customerID
	}
	return nil
}

func (m *Memory) UpdateProfileStatus(_ context.Context, uid string, status subscription.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.lookup(uid)
	if !ok || u.profile == nil {
		return subscription.ErrProfileNotFound
	}
	u.profile.SubscriptionStatus = status
	return nil
}

// Admin

// ListProfiles returns every profile ordered by creation time, newest first.
func (m *Memory) ListProfiles(_ context.Context) ([]subscription.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]subscription.Profile, 0, len(m.users))
	for _, u := range m.users {
		if u.profile != nil {
			out = append(out, *copyProfile(*u.profile))
		}
	}
	sortProfiles(out)
	return out, nil
}

func (m *Memory) SetAdmin(_ context.Context, uid string, admin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.lookup(uid)
	if !ok || u.profile == nil {
		return subscription.ErrProfileNotFound
	}
	u.profile.IsAdmin = admin
	return nil
}

// ledger.Store

func (m *Memory) CreateAccount(_ context.Context, acc ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uid := acc.Profile.ID
	if u, ok := m.lookup(uid); ok && u.profile != nil {
		return ledger.ErrAccountExists
	}
	u := m.user(uid)
	u.profile = copyProfile(acc.Profile)
	u.subscription = copySubscription(acc.Subscription)
	u.institutions[acc.Institution.ID] = copyInstitution(acc.Institution)
	for _, p := range acc.Pots {
		u.pots[p.ID] = p
	}
	return nil
}

func (m *Memory) UpdateProfile(_ context.Context, uid string, upd ledger.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.lookup(uid)
	if !ok || u.profile == nil {
		return subscription.ErrProfileNotFound
	}
	if upd.Name != nil {
		u.profile.Name = *upd.Name
	}
	if upd.DASDueDate != nil {
		u.profile.DASDueDate = *upd.DASDueDate
	}
	return nil
}

func (m *Memory) ListInstitutions(_ context.Context, uid string) ([]ledger.Institution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok {
		return []ledger.Institution{}, nil
	}
	out := withIDs(u.institutions, func(i *ledger.Institution, id string) {
		*i = copyInstitution(*i)
		i.ID = id
	})
	sortInstitutions(out)
	return out, nil
}

func (m *Memory) GetInstitution(_ context.Context, uid, id string) (*ledger.Institution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok {
		return nil, ledger.ErrInstitutionNotFound
	}
	inst, ok := u.institutions[id]
	if !ok {
		return nil, ledger.ErrInstitutionNotFound
	}
	inst = copyInstitution(inst)
	inst.ID = id
	return &inst, nil
}

func (m *Memory) SaveInstitution(_ context.Context, uid string, inst ledger.Institution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(uid).institutions[inst.ID] = copyInstitution(inst)
	return nil
}

func (m *Memory) DeleteInstitution(_ context.Context, uid, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteKey(m.users[uid], func(u *userDocs) map[string]ledger.Institution { return u.institutions }, id, ledger.ErrInstitutionNotFound)
}

func (m *Memory) ListLessons(_ context.Context, uid string, filter ledger.LessonFilter) ([]ledger.Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []ledger.Lesson{}
	u, ok := m.lookup(uid)
	if !ok {
		return out, nil
	}
	for id, l := range u.lessons {
		if filter.Match(l) {
			l.ID = id
			out = append(out, l)
		}
	}
	sortLessons(out)
	return out, nil
}

func (m *Memory) GetLesson(_ context.Context, uid, id string) (*ledger.Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok {
		return nil, ledger.ErrLessonNotFound
	}
	l, ok := u.lessons[id]
	if !ok {
		return nil, ledger.ErrLessonNotFound
	}
	l.ID = id
	return &l, nil
}

func (m *Memory) SaveLesson(_ context.Context, uid string, lesson ledger.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(uid).lessons[lesson.ID] = lesson
	return nil
}

func (m *Memory) DeleteLesson(_ context.Context, uid, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteKey(m.users[uid], func(u *userDocs) map[string]ledger.Lesson { return u.lessons }, id, ledger.ErrLessonNotFound)
}

func (m *Memory) CompleteLesson(_ context.Context, uid, lessonID string, credits []finance.Share, xp int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.lookup(uid)
	if !ok || u.profile == nil {
		return subscription.ErrProfileNotFound
	}
	lesson, ok := u.lessons[lessonID]
	if !ok {
		return ledger.ErrLessonNotFound
	}
	switch lesson.Status {
	case ledger.LessonCompleted:
		return ledger.ErrLessonAlreadyCompleted
	case ledger.LessonCancelled:
		return ledger.ErrLessonCancelled
	}
	for _, c := range credits {
		if _, ok := u.pots[c.ID]; !ok {
			return ledger.ErrPotNotFound
		}
	}

	for _, c := range credits {
		pot := u.pots[c.ID]
		pot.Balance = finance.Round2(pot.Balance + c.Amount)
		u.pots[c.ID] = pot
	}
	lesson.Status = ledger.LessonCompleted
	u.lessons[lessonID] = lesson
	u.profile.XPTotal += xp
	return nil
}

func (m *Memory) ListPots(_ context.Context, uid string) ([]ledger.Pot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok {
		return []ledger.Pot{}, nil
	}
	out := withIDs(u.pots, func(p *ledger.Pot, id string) { p.ID = id })
	sortPots(out)
	return out, nil
}

func (m *Memory) GetPot(_ context.Context, uid, id string) (*ledger.Pot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok {
		return nil, ledger.ErrPotNotFound
	}
	p, ok := u.pots[id]
	if !ok {
		return nil, ledger.ErrPotNotFound
	}
	p.ID = id
	return &p, nil
}

func (m *Memory) SavePot(_ context.Context, uid string, pot ledger.Pot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(uid).pots[pot.ID] = pot
	return nil
}

func (m *Memory) DeletePot(_ context.Context, uid, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteKey(m.users[uid], func(u *userDocs) map[string]ledger.Pot { return u.pots }, id, ledger.ErrPotNotFound)
}

func (m *Memory) ListObligations(_ context.Context, uid string) ([]ledger.MonthlyObligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok {
		return []ledger.MonthlyObligation{}, nil
	}
	out := withIDs(u.obligations, func(o *ledger.MonthlyObligation, id string) {
		o.PaymentDate = clonePtr(o.PaymentDate)
		o.ID = id
	})
	sortObligations(out)
	return out, nil
}

func (m *Memory) GetObligation(_ context.Context, uid, monthRef string) (*ledger.MonthlyObligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.lookup(uid)
	if !ok {
		return nil, ledger.ErrObligationNotFound
	}
	o, ok := u.obligations[monthRef]
	if !ok {
		return nil, ledger.ErrObligationNotFound
	}
	o.PaymentDate = clonePtr(o.PaymentDate)
	o.ID = monthRef
	return &o, nil
}

func (m *Memory) SaveObligation(_ context.Context, uid string, ob ledger.MonthlyObligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ob.PaymentDate = clonePtr(ob.PaymentDate)
	m.user(uid).obligations[ob.MonthRef] = ob
	return nil
}

// Stored records never share pointers with callers.

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyProfile(p subscription.Profile) *subscription.Profile {
	p.TrialEndsAt = clonePtr(p.TrialEndsAt)
	return &p
}

func copySubscription(s subscription.Subscription) *subscription.Subscription {
	s.CurrentPeriodStart = clonePtr(s.CurrentPeriodStart)
	s.CurrentPeriodEnd = clonePtr(s.CurrentPeriodEnd)
	s.TrialEnd = clonePtr(s.TrialEnd)
	return &s
}

func copyInstitution(i ledger.Institution) ledger.Institution {
	i.RecessStart = clonePtr(i.RecessStart)
	i.RecessEnd = clonePtr(i.RecessEnd)
	return i
}

func withIDs[T any](src map[string]T, setID func(*T, string)) []T {
	out := make([]T, 0, len(src))
	for _, id := range slices.Sorted(maps.Keys(src)) {
		v := src[id]
		setID(&v, id)
		out = append(out, v)
	}
	return out
}

func deleteKey[T any](u *userDocs, pick func(*userDocs) map[string]T, id string, notFound error) error {
	if u == nil {
		return notFound
	}
	m := pick(u)
	if _, ok := m[id]; !ok {
		return notFound
	}
	delete(m, id)
	return nil
}

// Shared orderings, so every backend lists records the same way.

func sortProfiles(ps []subscription.Profile) {
	slices.SortStableFunc(ps, func(a, b subscription.Profile) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func sortInstitutions(is []ledger.Institution) {
	slices.SortStableFunc(is, func(a, b ledger.Institution) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

func sortLessons(ls []ledger.Lesson) {
	slices.SortStableFunc(ls, func(a, b ledger.Lesson) int {
		return a.StartTime.Compare(b.StartTime)
	})
}

// Mandatory pots first, then by name.
func sortPots(ps []ledger.Pot) {
	slices.SortStableFunc(ps, func(a, b ledger.Pot) int {
		if a.Type != b.Type {
			if a.Type == ledger.PotMandatory {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// Newest month first.
func sortObligations(os []ledger.MonthlyObligation) {
	slices.SortStableFunc(os, func(a, b ledger.MonthlyObligation) int {
		return cmp.Compare(b.MonthRef, a.MonthRef)
	})
}
