package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/profepj/profepj/pkg/finance"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/subscription"
)

// mongoUser is the users document: the profile with its subscription
// embedded, so both change in one update.
type mongoUser struct {
	subscription.Profile `bson:",inline"`
	Subscription         *subscription.Subscription `bson:"subscription,omitempty"`
}

// record wraps a child record with its owner. Key is "uid/id".
type record[T any] struct {
	Key    string `bson:"_id"`
	UserID string `bson:"user_id"`
	ID     string `bson:"id"`
	Doc    T      `bson:",inline"`
}

func recordKey(uid, id string) string { return uid + "/" + id }

// Mongo stores users in one collection and each record kind in its own.
type Mongo struct {
	users        *mongo.Collection
	institutions *mongo.Collection
	lessons      *mongo.Collection
	pots         *mongo.Collection
	obligations  *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	if db == nil {
		panic("docstore: mongo database is required")
	}
	return &Mongo{
		users:        db.Collection(usersCollection),
		institutions: db.Collection(institutionsCollection),
		lessons:      db.Collection(lessonsCollection),
		pots:         db.Collection(potsCollection),
		obligations:  db.Collection(obligationsCollection),
	}
}

// EnsureIndexes creates the owner indexes used by every listing.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	byUser := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}}
	for _, c := range []*mongo.Collection{m.institutions, m.pots, m.obligations} {
		if _, err := c.Indexes().CreateOne(ctx, byUser); err != nil {
			return err
		}
	}
	_, err := m.lessons.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start_time", Value: 1}},
	})
	return err
}

func (m *Mongo) findUser(ctx context.Context, uid string) (*mongoUser, error) {
	var u mongoUser
	err := m.users.FindOne(ctx, bson.D{{Key: "_id", Value: uid}}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, subscription.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *Mongo) updateUser(ctx context.Context, uid string, set bson.D) error {
	res, err := m.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: uid}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return subscription.ErrProfileNotFound
	}
	return nil
}

// subscription.Store

func (m *Mongo) GetProfile(ctx context.Context, uid string) (*subscription.Profile, error) {
	u, err := m.findUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &u.Profile, nil
}

func (m *Mongo) GetSubscription(ctx context.Context, uid string) (*subscription.Subscription, error) {
	u, err := m.findUser(ctx, uid)
	if errors.Is(err, subscription.ErrProfileNotFound) {
		return nil, subscription.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Subscription == nil {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return u.Subscription, nil
}

func (m *Mongo) ApplySubscription(ctx context.Context, uid string, sub subscription.Subscription, customerID string) error {
	set := bson.D{
		{Key: "subscription", Value: sub},
		{Key: "subscription_status", Value: sub.Status},
	}
	if customerID != "" {
		set = append(set, bson.E{Key: "customer_id", Value: customerID})
	}
	return m.updateUser(ctx, uid, set)
}

func (m *Mongo) UpdateProfileStatus(ctx context.Context, uid string, st subscription.Status) error {
	return m.updateUser(ctx, uid, bson.D{{Key: "subscription_status", Value: st}})
}

// Admin

func (m *Mongo) ListProfiles(ctx context.Context) ([]subscription.Profile, error) {
	cur, err := m.users.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var users []mongoUser
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	out := make([]subscription.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile)
	}
	return out, nil
}

func (m *Mongo) SetAdmin(ctx context.Context, uid string, admin bool) error {
	return m.updateUser(ctx, uid, bson.D{{Key: "is_admin", Value: admin}})
}

// ledger.Store

// CreateAccount inserts the user first; a duplicate id stops the signup
// before any child record is written.
func (m *Mongo) CreateAccount(ctx context.Context, acc ledger.Account) error {
	uid := acc.Profile.ID
	sub := acc.Subscription
	if _, err := m.users.InsertOne(ctx, mongoUser{Profile: acc.Profile, Subscription: &sub}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrAccountExists
		}
		return err
	}
	if err := upsert(ctx, m.institutions, uid, acc.Institution.ID, acc.Institution); err != nil {
		return err
	}
	for _, p := range acc.Pots {
		if err := upsert(ctx, m.pots, uid, p.ID, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mongo) UpdateProfile(ctx context.Context, uid string, upd ledger.ProfileUpdate) error {
	set := bson.D{}
	if upd.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *upd.Name})
	}
	if upd.DASDueDate != nil {
		set = append(set, bson.E{Key: "das_due_date", Value: *upd.DASDueDate})
	}
	if len(set) == 0 {
		_, err := m.findUser(ctx, uid)
		return err
	}
	return m.updateUser(ctx, uid, set)
}

func (m *Mongo) ListInstitutions(ctx context.Context, uid string) ([]ledger.Institution, error) {
	out, err := findAll(ctx, m.institutions, bson.D{{Key: "user_id", Value: uid}}, nil,
		func(v *ledger.Institution, id string) { v.ID = id })
	if err != nil {
		return nil, err
	}
	sortInstitutions(out)
	return out, nil
}

func (m *Mongo) GetInstitution(ctx context.Context, uid, id string) (*ledger.Institution, error) {
	r, err := findOne[ledger.Institution](ctx, m.institutions, uid, id, ledger.ErrInstitutionNotFound)
	if err != nil {
		return nil, err
	}
	r.Doc.ID = id
	return &r.Doc, nil
}

func (m *Mongo) SaveInstitution(ctx context.Context, uid string, inst ledger.Institution) error {
	return upsert(ctx, m.institutions, uid, inst.ID, inst)
}

func (m *Mongo) DeleteInstitution(ctx context.Context, uid, id string) error {
	return deleteOne(ctx, m.institutions, uid, id, ledger.ErrInstitutionNotFound)
}

func (m *Mongo) ListLessons(ctx context.Context, uid string, filter ledger.LessonFilter) ([]ledger.Lesson, error) {
	q := bson.D{{Key: "user_id", Value: uid}}
	rng := bson.D{}
	if !filter.From.IsZero() {
		rng = append(rng, bson.E{Key: "$gte", Value: filter.From})
	}
	if !filter.To.IsZero() {
		rng = append(rng, bson.E{Key: "$lt", Value: filter.To})
	}
	if len(rng) > 0 {
		q = append(q, bson.E{Key: "start_time", Value: rng})
	}
	return findAll(ctx, m.lessons, q, bson.D{{Key: "start_time", Value: 1}},
		func(v *ledger.Lesson, id string) { v.ID = id })
}

func (m *Mongo) GetLesson(ctx context.Context, uid, id string) (*ledger.Lesson, error) {
	r, err := findOne[ledger.Lesson](ctx, m.lessons, uid, id, ledger.ErrLessonNotFound)
	if err != nil {
		return nil, err
	}
	r.Doc.ID = id
	return &r.Doc, nil
}

func (m *Mongo) SaveLesson(ctx context.Context, uid string, lesson ledger.Lesson) error {
	return upsert(ctx, m.lessons, uid, lesson.ID, lesson)
}

func (m *Mongo) DeleteLesson(ctx context.Context, uid, id string) error {
	return deleteOne(ctx, m.lessons, uid, id, ledger.ErrLessonNotFound)
}

// CompleteLesson flips the lesson status with a conditional update, so
// only one caller goes on to credit the pots.
func (m *Mongo) CompleteLesson(ctx context.Context, uid, lessonID string, credits []finance.Share, xp int) error {
	res, err := m.lessons.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: recordKey(uid, lessonID)},
			{Key: "status", Value: bson.D{{Key: "$nin", Value: bson.A{ledger.LessonCompleted, ledger.LessonCancelled}}}},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: ledger.LessonCompleted}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		lesson, err := m.GetLesson(ctx, uid, lessonID)
		if err != nil {
			return err
		}
		if lesson.Status == ledger.LessonCancelled {
			return ledger.ErrLessonCancelled
		}
		return ledger.ErrLessonAlreadyCompleted
	}

	for _, c := range credits {
		res, err := m.pots.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: recordKey(uid, c.ID)}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "balance", Value: c.Amount}}}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ledger.ErrPotNotFound
		}
	}
	_, err = m.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: uid}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "xp_total", Value: xp}}}},
	)
	return err
}

func (m *Mongo) ListPots(ctx context.Context, uid string) ([]ledger.Pot, error) {
	out, err := findAll(ctx, m.pots, bson.D{{Key: "user_id", Value: uid}}, nil,
		func(v *ledger.Pot, id string) { v.ID = id })
	if err != nil {
		return nil, err
	}
	sortPots(out)
	return out, nil
}

func (m *Mongo) GetPot(ctx context.Context, uid, id string) (*ledger.Pot, error) {
	r, err := findOne[ledger.Pot](ctx, m.pots, uid, id, ledger.ErrPotNotFound)
	if err != nil {
		return nil, err
	}
	r.Doc.ID = id
	return &r.Doc, nil
}

func (m *Mongo) SavePot(ctx context.Context, uid string, pot ledger.Pot) error {
	return upsert(ctx, m.pots, uid, pot.ID, pot)
}

func (m *Mongo) DeletePot(ctx context.Context, uid, id string) error {
	return deleteOne(ctx, m.pots, uid, id, ledger.ErrPotNotFound)
}

func (m *Mongo) ListObligations(ctx context.Context, uid string) ([]ledger.MonthlyObligation, error) {
	return findAll(ctx, m.obligations, bson.D{{Key: "user_id", Value: uid}}, bson.D{{Key: "month_ref", Value: -1}},
		func(v *ledger.MonthlyObligation, id string) { v.ID = id })
}

func (m *Mongo) GetObligation(ctx context.Context, uid, monthRef string) (*ledger.MonthlyObligation, error) {
	r, err := findOne[ledger.MonthlyObligation](ctx, m.obligations, uid, monthRef, ledger.ErrObligationNotFound)
	if err != nil {
		return nil, err
	}
	r.Doc.ID = monthRef
	return &r.Doc, nil
}

func (m *Mongo) SaveObligation(ctx context.Context, uid string, ob ledger.MonthlyObligation) error {
	return upsert(ctx, m.obligations, uid, ob.MonthRef, ob)
}

func upsert[T any](ctx context.Context, c *mongo.Collection, uid, id string, doc T) error {
	key := recordKey(uid, id)
	_, err := c.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		record[T]{Key: key, UserID: uid, ID: id, Doc: doc},
		options.Replace().SetUpsert(true),
	)
	return err
}

func findOne[T any](ctx context.Context, c *mongo.Collection, uid, id string, notFound error) (*record[T], error) {
	var r record[T]
	err := c.FindOne(ctx, bson.D{{Key: "_id", Value: recordKey(uid, id)}}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter, sort bson.D, setID func(*T, string)) ([]T, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var rs []record[T]
	if err := cur.All(ctx, &rs); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		setID(&r.Doc, r.ID)
		out = append(out, r.Doc)
	}
	return out, nil
}

func deleteOne(ctx context.Context, c *mongo.Collection, uid, id string, notFound error) error {
	res, err := c.DeleteOne(ctx, bson.D{{Key: "_id", Value: recordKey(uid, id)}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}
