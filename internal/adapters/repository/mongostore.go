package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/otherday/internal/domain/model"
	"github.com/okian/otherday/pkg/logger"
	"github.com/okian/otherday/pkg/metrics"
)

const (
	defaultDatabase         = "otherday"
	defaultOperationTimeout = 5 * time.Second

	usersCollection     = "users"
	questionsCollection = "questions"
	answersCollection   = "answers"
	groupsCollection    = "groups"
)

// creation order, then id
var byCreation = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// MongoStore is a Store backed by a MongoDB database. Uniqueness rules are
// enforced by unique indexes created in NewMongoStore.
type MongoStore struct {
	client   *mongo.Client
	database string
	timeout  time.Duration
	logger   logger.Logger

	users     *mongo.Collection
	questions *mongo.Collection
	answers   *mongo.Collection
	groups    *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri, verifies the connection and ensures the
// indexes the store relies on.
func NewMongoStore(ctx context.Context, uri string, opts ...MongoOption) (*MongoStore, error) {
	s := &MongoStore{
		database: defaultDatabase,
		timeout:  defaultOperationTimeout,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(s.database)
	s.client = client
	s.users = db.Collection(usersCollection)
	s.questions = db.Collection(questionsCollection)
	s.answers = db.Collection(answersCollection)
	s.groups = db.Collection(groupsCollection)

	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.logger.Info(ctx, "mongo store ready", logger.String("database", s.database))
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	plan := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			unique(bson.D{{Key: "username", Value: 1}}),
			{Keys: byCreation},
		}},
		{s.questions, []mongo.IndexModel{
			unique(bson.D{{Key: "date", Value: 1}}),
		}},
		{s.answers, []mongo.IndexModel{
			unique(bson.D{{Key: "user_id", Value: 1}, {Key: "question_id", Value: 1}}),
			{Keys: bson.D{{Key: "question_id", Value: 1}, {Key: "created_at", Value: 1}}},
		}},
		{s.groups, []mongo.IndexModel{
			unique(bson.D{{Key: "group_name", Value: 1}}),
			{Keys: bson.D{{Key: "members", Value: 1}}},
		}},
	}
	for _, p := range plan {
		if _, err := p.coll.Indexes().CreateMany(ctx, p.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", p.coll.Name(), err)
		}
	}
	return nil
}

// begin bounds one database round trip by the operation timeout.
func (s *MongoStore) begin(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// observe records latency and unexpected failures of op.
func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && !errors.Is(*err, ErrNotFound) && !errors.Is(*err, ErrConflict) {
		metrics.RecordStoreError(op)
	}
}

// translate maps driver errors onto the package sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func (s *MongoStore) CreateUser(ctx context.Context, u model.User) (err error) {
	defer observe("create_user", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	_, err = s.users.InsertOne(ctx, u)
	return translate(err, fmt.Sprintf("user %q", u.Username))
}

func (s *MongoStore) UserByID(ctx context.Context, id string) (u model.User, err error) {
	defer observe("user_by_id", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	err = translate(s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u), fmt.Sprintf("user %q", id))
	return u, err
}

func (s *MongoStore) UserByUsername(ctx context.Context, username string) (u model.User, err error) {
	defer observe("user_by_username", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	err = translate(s.users.FindOne(ctx, bson.M{"username": username}).Decode(&u), fmt.Sprintf("user %q", username))
	return u, err
}

func (s *MongoStore) ListUsers(ctx context.Context, f UserFilter) (users []model.User, err error) {
	defer observe("list_users", time.Now(), &err)

	filter := bson.M{}
	if f.Usernames != nil {
		if len(f.Usernames) == 0 {
			return []model.User{}, nil
		}
		filter["username"] = bson.M{"$in": f.Usernames}
	}

	users = make([]model.User, 0)
	err = s.findAll(ctx, s.users, filter, &users)
	return users, err
}

func (s *MongoStore) findAll(ctx context.Context, coll *mongo.Collection, filter any, out any) error {
	ctx, cancel := s.begin(ctx)
	defer cancel()

	cur, err := coll.Find(ctx, filter, options.Find().SetSort(byCreation))
	if err != nil {
		return fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return nil
}

func (s *MongoStore) AddPoints(ctx context.Context, id string, delta int) (err error) {
	defer observe("add_points", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"total_points": delta}})
	if err != nil {
		return translate(err, fmt.Sprintf("user %q", id))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, s.users)
}

func (s *MongoStore) count(ctx context.Context, coll *mongo.Collection) (n int, err error) {
	defer observe("count_"+coll.Name(), time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	c, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	return int(c), nil
}

func (s *MongoStore) UpsertQuestion(ctx context.Context, q model.Question) (out model.Question, err error) {
	defer observe("upsert_question", time.Now(), &err)

	update := bson.M{
		"$set":         bson.M{"question": q.Text},
		"$setOnInsert": bson.M{"_id": q.ID},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	// Two concurrent upserts of the same date can race on the unique index;
	// the loser retries as a plain update.
	for attempt := 0; attempt < 2; attempt++ {
		cctx, cancel := s.begin(ctx)
		err = s.questions.FindOneAndUpdate(cctx, bson.M{"date": q.Date}, update, opts).Decode(&out)
		cancel()
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	return out, translate(err, fmt.Sprintf("question for %s", q.Date))
}

func (s *MongoStore) QuestionByID(ctx context.Context, id string) (q model.Question, err error) {
	defer observe("question_by_id", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	err = translate(s.questions.FindOne(ctx, bson.M{"_id": id}).Decode(&q), fmt.Sprintf("question %q", id))
	return q, err
}

func (s *MongoStore) QuestionByDate(ctx context.Context, date string) (q model.Question, err error) {
	defer observe("question_by_date", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	err = translate(s.questions.FindOne(ctx, bson.M{"date": date}).Decode(&q), fmt.Sprintf("question for %s", date))
	return q, err
}

func (s *MongoStore) InsertAnswer(ctx context.Context, a model.Answer) (err error) {
	defer observe("insert_answer", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	_, err = s.answers.InsertOne(ctx, a)
	return translate(err, fmt.Sprintf("answer by %q to %q", a.UserID, a.QuestionID))
}

func (s *MongoStore) AnswerByID(ctx context.Context, id string) (a model.Answer, err error) {
	defer observe("answer_by_id", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	err = translate(s.answers.FindOne(ctx, bson.M{"_id": id}).Decode(&a), fmt.Sprintf("answer %q", id))
	return a, err
}

func (s *MongoStore) ListAnswers(ctx context.Context, f AnswerFilter) (answers []model.Answer, err error) {
	defer observe("list_answers", time.Now(), &err)

	filter := bson.M{}
	if f.QuestionID != "" {
		filter["question_id"] = f.QuestionID
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.UserIDs != nil {
		if len(f.UserIDs) == 0 {
			return []model.Answer{}, nil
		}
		if f.UserID != "" {
			filter["$and"] = bson.A{bson.M{"user_id": bson.M{"$in": f.UserIDs}}}
		} else {
			filter["user_id"] = bson.M{"$in": f.UserIDs}
		}
	}

	answers = make([]model.Answer, 0)
	err = s.findAll(ctx, s.answers, filter, &answers)
	return answers, err
}

func (s *MongoStore) SampleAnswers(ctx context.Context, questionID string, n int) (answers []model.Answer, err error) {
	defer observe("sample_answers", time.Now(), &err)
	if n < 0 {
		return nil, fmt.Errorf("sample size %d: %w", n, ErrBadFilter)
	}
	answers = make([]model.Answer, 0, n)
	if n == 0 {
		return answers, nil
	}

	ctx, cancel := s.begin(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"question_id": questionID}}},
		{{Key: "$sample", Value: bson.M{"size": n}}},
	}
	cur, err := s.answers.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sample answers to %q: %w", questionID, err)
	}
	if err := cur.All(ctx, &answers); err != nil {
		return nil, fmt.Errorf("decode sampled answers: %w", err)
	}
	return answers, nil
}

func (s *MongoStore) IncrementAppearances(ctx context.Context, ids []string) (err error) {
	defer observe("increment_appearances", time.Now(), &err)
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	res, err := s.answers.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$inc": bson.M{"appearances": 1}})
	if err != nil {
		return fmt.Errorf("increment appearances: %w", err)
	}
	if int(res.MatchedCount) != len(unique) {
		return fmt.Errorf("increment appearances of %v: %w", ids, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) IncrementVotes(ctx context.Context, id string) (a model.Answer, err error) {
	defer observe("increment_votes", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	res := s.answers.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"votes": 1}}, opts)
	err = translate(res.Decode(&a), fmt.Sprintf("answer %q", id))
	return a, err
}

func (s *MongoStore) CountAnswers(ctx context.Context) (int, error) {
	return s.count(ctx, s.answers)
}

func (s *MongoStore) CreateGroup(ctx context.Context, g model.Group) (err error) {
	defer observe("create_group", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if g.Members == nil {
		g.Members = []string{}
	}
	_, err = s.groups.InsertOne(ctx, g)
	return translate(err, fmt.Sprintf("group %q", g.Name))
}

func (s *MongoStore) GroupByName(ctx context.Context, name string) (g model.Group, err error) {
	defer observe("group_by_name", time.Now(), &err)
	ctx, cancel := s.begin(ctx)
	defer cancel()

	err = translate(s.groups.FindOne(ctx, bson.M{"group_name": name}).Decode(&g), fmt.Sprintf("group %q", name))
	return g, err
}

func (s *MongoStore) AddMember(ctx context.Context, name, username string) (g model.Group, err error) {
	defer observe("add_member", time.Now(), &err)
	cctx, cancel := s.begin(ctx)
	defer cancel()

	filter := bson.M{"group_name": name, "members": bson.M{"$ne": username}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.groups.FindOneAndUpdate(cctx, filter, bson.M{"$push": bson.M{"members": username}}, opts).Decode(&g)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return model.Group{}, translate(err, fmt.Sprintf("group %q", name))
	}

	// No match: either the group is missing or username is already in it.
	if _, lookupErr := s.GroupByName(ctx, name); lookupErr != nil {
		return model.Group{}, lookupErr
	}
	return model.Group{}, fmt.Errorf("member %q of %q: %w", username, name, ErrConflict)
}

func (s *MongoStore) GroupsForMember(ctx context.Context, username string) (groups []model.Group, err error) {
	defer observe("groups_for_member", time.Now(), &err)
	groups = make([]model.Group, 0)
	err = s.findAll(ctx, s.groups, bson.M{"members": username}, &groups)
	return groups, err
}

func (s *MongoStore) CountGroups(ctx context.Context) (int, error) {
	return s.count(ctx, s.groups)
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	s.logger.Info(ctx, "mongo store closed")
	return nil
}
