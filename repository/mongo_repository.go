package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voting-api/models"
)

const (
	usersCollection = "users"
	pollsCollection = "polls"
)

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"password"`
}

type pollDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Question  string             `bson:"question"`
	Options   []optionDocument   `bson:"options"`
	CreatedBy primitive.ObjectID `bson:"createdBy,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// optionDocument is embedded in its poll; the _id is only looked up inside that poll
type optionDocument struct {
	ID    primitive.ObjectID `bson:"_id"`
	Text  string             `bson:"text"`
	Votes int64              `bson:"votes"`
}

// MongoStore 基于MongoDB的文档存储实现
type MongoStore struct {
	client *mongo.Client
	users  *MongoUserRepository
	polls  *MongoPollRepository
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client: client,
		users:  &MongoUserRepository{coll: db.Collection(usersCollection)},
		polls:  &MongoPollRepository{coll: db.Collection(pollsCollection)},
	}
}

// EnsureIndexes 创建用户名唯一索引
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("repository: create username index: %w", err)
	}
	return nil
}

func (s *MongoStore) Users() UserRepository { return s.users }

func (s *MongoStore) Polls() PollRepository { return s.polls }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type MongoUserRepository struct {
	coll *mongo.Collection
}

func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	doc := userDocument{
		ID:           primitive.NewObjectID(),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("repository: insert user: %w", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *MongoUserRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: find user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepository) FindUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(ids))
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return users, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("repository: find users: %w", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: decode users: %w", err)
	}
	for _, doc := range docs {
		users[doc.ID.Hex()] = *doc.toModel()
	}
	return users, nil
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
	}
}

type MongoPollRepository struct {
	coll *mongo.Collection
}

func (r *MongoPollRepository) CreatePoll(ctx context.Context, poll *models.Poll) error {
	doc := pollDocument{
		ID:       primitive.NewObjectID(),
		Question: poll.Question,
		Options:  make([]optionDocument, len(poll.Options)),
		// BSON dates only keep milliseconds
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if oid, err := primitive.ObjectIDFromHex(poll.CreatorID); err == nil {
		doc.CreatedBy = oid
	}
	for i, option := range poll.Options {
		doc.Options[i] = optionDocument{
			ID:   primitive.NewObjectID(),
			Text: option.Text,
		}
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("repository: insert poll: %w", err)
	}
	*poll = *doc.toModel()
	return nil
}

func (r *MongoPollRepository) ListPolls(ctx context.Context) ([]models.Poll, error) {
	// ObjectIDs grow with insertion time
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("repository: list polls: %w", err)
	}
	var docs []pollDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: decode polls: %w", err)
	}

	polls := make([]models.Poll, len(docs))
	for i := range docs {
		polls[i] = *docs[i].toModel()
	}
	return polls, nil
}

func (r *MongoPollRepository) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrPollNotFound
	}

	var doc pollDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("repository: get poll: %w", err)
	}
	return doc.toModel(), nil
}

// IncrementVote 使用$inc原子更新匹配的嵌入选项
func (r *MongoPollRepository) IncrementVote(ctx context.Context, pollID, optionID string) (*models.Poll, error) {
	pid, err := primitive.ObjectIDFromHex(pollID)
	if err != nil {
		return nil, ErrPollNotFound
	}
	oid, err := primitive.ObjectIDFromHex(optionID)
	if err != nil {
		if _, err := r.GetPoll(ctx, pollID); err != nil {
			return nil, err
		}
		return nil, ErrOptionNotFound
	}

	var doc pollDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": pid, "options._id": oid},
		bson.M{"$inc": bson.M{"options.$.votes": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("repository: increment vote: %w", err)
		}
		if _, err := r.GetPoll(ctx, pollID); err != nil {
			return nil, err
		}
		return nil, ErrOptionNotFound
	}
	return doc.toModel(), nil
}

func (d *pollDocument) toModel() *models.Poll {
	poll := &models.Poll{
		ID:        d.ID.Hex(),
		Question:  d.Question,
		CreatedAt: d.CreatedAt,
		Options:   make([]models.Option, len(d.Options)),
	}
	if !d.CreatedBy.IsZero() {
		poll.CreatorID = d.CreatedBy.Hex()
	}
	for i, option := range d.Options {
		poll.Options[i] = models.Option{
			ID:    option.ID.Hex(),
			Text:  option.Text,
			Votes: option.Votes,
		}
	}
	return poll
}
