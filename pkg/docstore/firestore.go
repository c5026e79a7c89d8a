package docstore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/profepj/profepj/pkg/finance"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/subscription"
)

// Collection and document names.
const (
	usersCollection        = "users"
	subscriptionCollection = "subscription"
	currentSubscriptionDoc = "current"
	institutionsCollection = "institutions"
	lessonsCollection      = "lessons"
	potsCollection         = "pots"
	obligationsCollection  = "monthly_obligations"
)

// Firestore stores everything under users/{uid}.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	if client == nil {
		panic("docstore: firestore client is required")
	}
	return &Firestore{client: client}
}

func (f *Firestore) userRef(uid string) *firestore.DocumentRef {
	return f.client.Collection(usersCollection).Doc(uid)
}

func (f *Firestore) subRef(uid string) *firestore.DocumentRef {
	return f.userRef(uid).Collection(subscriptionCollection).Doc(currentSubscriptionDoc)
}

func (f *Firestore) col(uid, name string) *firestore.CollectionRef {
	return f.userRef(uid).Collection(name)
}

// Healthcheck reads a sentinel document. NotFound counts as healthy.
func (f *Firestore) Healthcheck(ctx context.Context) error {
	_, err := f.client.Collection("_health").Doc("ping").Get(ctx)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// subscription.Store

func (f *Firestore) GetProfile(ctx context.Context, uid string) (*subscription.Profile, error) {
	p, err := getDoc[subscription.Profile](ctx, f.userRef(uid), subscription.ErrProfileNotFound)
	if err != nil {
		return nil, err
	}
	p.ID = uid
	return p, nil
}

func (f *Firestore) GetSubscription(ctx context.Context, uid string) (*subscription.Subscription, error) {
	return getDoc[subscription.Subscription](ctx, f.subRef(uid), subscription.ErrSubscriptionNotFound)
}

func (f *Firestore) ApplySubscription(ctx context.Context, uid string, sub subscription.Subscription, customerID string) error {
	userRef := f.userRef(uid)
	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(userRef); err != nil {
			if isNotFound(err) {
				return subscription.ErrProfileNotFound
			}
			return err
		}
		if err := tx.Set(f.subRef(uid), sub); err != nil {
			return err
		}
		updates := []firestore.Update{{Path: "subscriptionStatus", Value: string(sub.Status)}}
		if customerID != "" {
			updates = append(updates, firestore.Update{Path: "stripeCustomerId", Value: customerID})
		}
		return tx.Update(userRef, updates)
	})
}

func (f *Firestore) UpdateProfileStatus(ctx context.Context, uid string, st subscription.Status) error {
	_, err := f.userRef(uid).Update(ctx, []firestore.Update{{Path: "subscriptionStatus", Value: string(st)}})
	if isNotFound(err) {
		return subscription.ErrProfileNotFound
	}
	return err
}

// Admin

// ListProfiles includes profiles without createdAt; they sort last.
func (f *Firestore) ListProfiles(ctx context.Context) ([]subscription.Profile, error) {
	profiles, err := listDocs(f.client.Collection(usersCollection).Documents(ctx), func(p *subscription.Profile, id string) { p.ID = id })
	if err != nil {
		return nil, err
	}
	sortProfiles(profiles)
	return profiles, nil
}

func (f *Firestore) SetAdmin(ctx context.Context, uid string, admin bool) error {
	_, err := f.userRef(uid).Update(ctx, []firestore.Update{{Path: "isAdmin", Value: admin}})
	if isNotFound(err) {
		return subscription.ErrProfileNotFound
	}
	return err
}

// ledger.Store

func (f *Firestore) CreateAccount(ctx context.Context, acc ledger.Account) error {
	uid := acc.Profile.ID
	userRef := f.userRef(uid)
	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(userRef)
		if err != nil && !isNotFound(err) {
			return err
		}
		if snap != nil && snap.Exists() {
			return ledger.ErrAccountExists
		}
		if err := tx.Set(userRef, acc.Profile); err != nil {
			return err
		}
		if err := tx.Set(f.subRef(uid), acc.Subscription); err != nil {
			return err
		}
		if err := tx.Set(f.col(uid, institutionsCollection).Doc(acc.Institution.ID), acc.Institution); err != nil {
			return err
		}
		for _, p := range acc.Pots {
			if err := tx.Set(f.col(uid, potsCollection).Doc(p.ID), p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *Firestore) UpdateProfile(ctx context.Context, uid string, upd ledger.ProfileUpdate) error {
	var updates []firestore.Update
	if upd.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *upd.Name})
	}
	if upd.DASDueDate != nil {
		updates = append(updates, firestore.Update{Path: "dasDueDate", Value: *upd.DASDueDate})
	}
	if len(updates) == 0 {
		_, err := f.GetProfile(ctx, uid)
		return err
	}
	_, err := f.userRef(uid).Update(ctx, updates)
	if isNotFound(err) {
		return subscription.ErrProfileNotFound
	}
	return err
}

func (f *Firestore) ListInstitutions(ctx context.Context, uid string) ([]ledger.Institution, error) {
	iter := f.col(uid, institutionsCollection).Documents(ctx)
	out, err := listDocs(iter, func(i *ledger.Institution, id string) { i.ID = id })
	if err != nil {
		return nil, err
	}
	sortInstitutions(out)
	return out, nil
}

func (f *Firestore) GetInstitution(ctx context.Context, uid, id string) (*ledger.Institution, error) {
	inst, err := getDoc[ledger.Institution](ctx, f.col(uid, institutionsCollection).Doc(id), ledger.ErrInstitutionNotFound)
	if err != nil {
		return nil, err
	}
	inst.ID = id
	return inst, nil
}

func (f *Firestore) SaveInstitution(ctx context.Context, uid string, inst ledger.Institution) error {
	_, err := f.col(uid, institutionsCollection).Doc(inst.ID).Set(ctx, inst)
	return err
}

func (f *Firestore) DeleteInstitution(ctx context.Context, uid, id string) error {
	return deleteDoc(ctx, f.col(uid, institutionsCollection).Doc(id), ledger.ErrInstitutionNotFound)
}

func (f *Firestore) ListLessons(ctx context.Context, uid string, filter ledger.LessonFilter) ([]ledger.Lesson, error) {
	q := f.col(uid, lessonsCollection).Query
	if !filter.From.IsZero() {
		q = q.Where("startTime", ">=", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("startTime", "<", filter.To)
	}
	iter := q.OrderBy("startTime", firestore.Asc).Documents(ctx)
	return listDocs(iter, func(l *ledger.Lesson, id string) { l.ID = id })
}

func (f *Firestore) GetLesson(ctx context.Context, uid, id string) (*ledger.Lesson, error) {
	l, err := getDoc[ledger.Lesson](ctx, f.col(uid, lessonsCollection).Doc(id), ledger.ErrLessonNotFound)
	if err != nil {
		return nil, err
	}
	l.ID = id
	return l, nil
}

func (f *Firestore) SaveLesson(ctx context.Context, uid string, lesson ledger.Lesson) error {
	_, err := f.col(uid, lessonsCollection).Doc(lesson.ID).Set(ctx, lesson)
	return err
}

func (f *Firestore) DeleteLesson(ctx context.Context, uid, id string) error {
	return deleteDoc(ctx, f.col(uid, lessonsCollection).Doc(id), ledger.ErrLessonNotFound)
}

// CompleteLesson re-reads the lesson inside the transaction, so two
// concurrent completions credit the pots once.
func (f *Firestore) CompleteLesson(ctx context.Context, uid, lessonID string, credits []finance.Share, xp int) error {
	userRef := f.userRef(uid)
	lessonRef := f.col(uid, lessonsCollection).Doc(lessonID)
	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(userRef); err != nil {
			if isNotFound(err) {
				return subscription.ErrProfileNotFound
			}
			return err
		}
		snap, err := tx.Get(lessonRef)
		if err != nil {
			if isNotFound(err) {
				return ledger.ErrLessonNotFound
			}
			return err
		}
		var lesson ledger.Lesson
		if err := snap.DataTo(&lesson); err != nil {
			return err
		}
		switch lesson.Status {
		case ledger.LessonCompleted:
			return ledger.ErrLessonAlreadyCompleted
		case ledger.LessonCancelled:
			return ledger.ErrLessonCancelled
		}

		potRefs := make([]*firestore.DocumentRef, 0, len(credits))
		for _, c := range credits {
			ref := f.col(uid, potsCollection).Doc(c.ID)
			if _, err := tx.Get(ref); err != nil {
				if isNotFound(err) {
					return ledger.ErrPotNotFound
				}
				return err
			}
			potRefs = append(potRefs, ref)
		}

		if err := tx.Update(lessonRef, []firestore.Update{{Path: "status", Value: string(ledger.LessonCompleted)}}); err != nil {
			return err
		}
		for i, c := range credits {
			if err := tx.Update(potRefs[i], []firestore.Update{{Path: "virtualBalance", Value: firestore.Increment(c.Amount)}}); err != nil {
				return err
			}
		}
		return tx.Update(userRef, []firestore.Update{{Path: "xpTotal", Value: firestore.Increment(xp)}})
	})
}

func (f *Firestore) ListPots(ctx context.Context, uid string) ([]ledger.Pot, error) {
	iter := f.col(uid, potsCollection).Documents(ctx)
	out, err := listDocs(iter, func(p *ledger.Pot, id string) { p.ID = id })
	if err != nil {
		return nil, err
	}
	sortPots(out)
	return out, nil
}

func (f *Firestore) GetPot(ctx context.Context, uid, id string) (*ledger.Pot, error) {
	p, err := getDoc[ledger.Pot](ctx, f.col(uid, potsCollection).Doc(id), ledger.ErrPotNotFound)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

func (f *Firestore) SavePot(ctx context.Context, uid string, pot ledger.Pot) error {
	_, err := f.col(uid, potsCollection).Doc(pot.ID).Set(ctx, pot)
	return err
}

func (f *Firestore) DeletePot(ctx context.Context, uid, id string) error {
	return deleteDoc(ctx, f.col(uid, potsCollection).Doc(id), ledger.ErrPotNotFound)
}

func (f *Firestore) ListObligations(ctx context.Context, uid string) ([]ledger.MonthlyObligation, error) {
	iter := f.col(uid, obligationsCollection).OrderBy("monthRef", firestore.Desc).Documents(ctx)
	return listDocs(iter, func(o *ledger.MonthlyObligation, id string) { o.ID = id })
}

func (f *Firestore) GetObligation(ctx context.Context, uid, monthRef string) (*ledger.MonthlyObligation, error) {
	o, err := getDoc[ledger.MonthlyObligation](ctx, f.col(uid, obligationsCollection).Doc(monthRef), ledger.ErrObligationNotFound)
	if err != nil {
		return nil, err
	}
	o.ID = monthRef
	return o, nil
}

func (f *Firestore) SaveObligation(ctx context.Context, uid string, ob ledger.MonthlyObligation) error {
	_, err := f.col(uid, obligationsCollection).Doc(ob.MonthRef).Set(ctx, ob)
	return err
}

func getDoc[T any](ctx context.Context, ref *firestore.DocumentRef, notFound error) (*T, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound
		}
		return nil, err
	}
	var v T
	if err := snap.DataTo(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

func listDocs[T any](iter *firestore.DocumentIterator, setID func(*T, string)) ([]T, error) {
	defer iter.Stop()

	out := []T{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := snap.DataTo(&v); err != nil {
			return nil, err
		}
		setID(&v, snap.Ref.ID)
		out = append(out, v)
	}
}

func deleteDoc(ctx context.Context, ref *firestore.DocumentRef, notFound error) error {
	_, err := ref.Delete(ctx, firestore.Exists)
	if isNotFound(err) {
		return notFound
	}
	return err
}

func isNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}
