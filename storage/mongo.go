package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"minifeed/domain/post"
	"minifeed/domain/user"
	"minifeed/utils"
)

type MongoStorage struct {
	Users   *mongo.Collection
	Follows *mongo.Collection
	Posts   *mongo.Collection
}

type followDoc struct {
	UserId      int64 `bson:"userId"`
	FollowingId int64 `bson:"followingId"`
}

func NewMongoStorage(ctx context.Context, uri string, dbName string) (*MongoStorage, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(dbName)
	m := &MongoStorage{
		Users:   db.Collection("users"),
		Follows: db.Collection("follows"),
		Posts:   db.Collection("posts"),
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return m, client, nil
}

func (m *MongoStorage) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := m.Users.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique}); err != nil {
		return err
	}
	if _, err := m.Follows.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "followingId", Value: 1}},
		Options: unique,
	}); err != nil {
		return err
	}
	_, err := m.Posts.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}}})
	return err
}

func (m *MongoStorage) AddUser(ctx context.Context, u *user.User) error {
	if u.Id == 0 {
		for {
			u.Id = utils.GenerateId()
			if m.Users.FindOne(ctx, bson.M{"id": u.Id}).Err() != nil {
				break
			}
		}
	}
	flag := true
	opts := options.ReplaceOptions{Upsert: &flag}
	_, err := m.Users.ReplaceOne(ctx, bson.M{"id": u.Id}, u, &opts)
	return err
}

func (m *MongoStorage) GetUser(ctx context.Context, userId int64) (*user.User, error) {
	var u user.User
	err := m.Users.FindOne(ctx, bson.M{"id": userId}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *MongoStorage) ListUsers(ctx context.Context) ([]user.User, error) {
	return m.findUsers(ctx, bson.M{})
}

func (m *MongoStorage) Follow(ctx context.Context, userId int64, followingId int64) error {
	if userId == followingId {
		return ErrInvalidFollow
	}
	if err := m.checkUsers(ctx, userId, followingId); err != nil {
		return err
	}
	doc := followDoc{UserId: userId, FollowingId: followingId}
	flag := true
	opts := options.UpdateOptions{Upsert: &flag}
	res, err := m.Follows.UpdateOne(ctx, doc, bson.M{"$setOnInsert": bson.M{"createdAt": time.Now().UTC()}}, &opts)
	if err != nil {
		return err
	}
	if res.UpsertedCount == 0 {
		return ErrAlreadyFollowing
	}
	return nil
}

func (m *MongoStorage) Unfollow(ctx context.Context, userId int64, followingId int64) error {
	if err := m.checkUsers(ctx, userId, followingId); err != nil {
		return err
	}
	res, err := m.Follows.DeleteOne(ctx, followDoc{UserId: userId, FollowingId: followingId})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFollowing
	}
	return nil
}

func (m *MongoStorage) IsFollowing(ctx context.Context, userId int64, followingId int64) (bool, error) {
	if err := m.checkUsers(ctx, userId, followingId); err != nil {
		return false, err
	}
	n, err := m.Follows.CountDocuments(ctx, followDoc{UserId: userId, FollowingId: followingId})
	return n > 0, err
}

func (m *MongoStorage) GetFollowers(ctx context.Context, userId int64) ([]user.User, error) {
	if err := m.checkUsers(ctx, userId); err != nil {
		return nil, err
	}
	ids, err := m.followIds(ctx, bson.M{"followingId": userId}, "userId")
	if err != nil {
		return nil, err
	}
	return m.findUsers(ctx, bson.M{"id": bson.M{"$in": ids}})
}

func (m *MongoStorage) GetFollowing(ctx context.Context, userId int64) ([]user.User, error) {
	if err := m.checkUsers(ctx, userId); err != nil {
		return nil, err
	}
	ids, err := m.followIds(ctx, bson.M{"userId": userId}, "followingId")
	if err != nil {
		return nil, err
	}
	return m.findUsers(ctx, bson.M{"id": bson.M{"$in": ids}})
}

func (m *MongoStorage) AddPost(ctx context.Context, userId int64, p *post.Post) error {
	if err := m.checkUsers(ctx, userId); err != nil {
		return err
	}
	p.AuthorId = userId
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	for {
		p.Id = utils.GenerateId()
		if m.Posts.FindOne(ctx, bson.M{"id": p.Id}).Err() != nil {
			break
		}
	}
	_, err := m.Posts.InsertOne(ctx, *p)
	return err
}

func (m *MongoStorage) GetFeed(ctx context.Context, userId int64) ([]post.Post, error) {
	if err := m.checkUsers(ctx, userId); err != nil {
		return nil, err
	}
	arr := make([]post.Post, 0)
	ids, err := m.followIds(ctx, bson.M{"userId": userId}, "followingId")
	if err != nil || len(ids) == 0 {
		return arr, err
	}
	opt := options.Find()
	opt.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.Posts.Find(ctx, bson.M{"authorId": bson.M{"$in": ids}}, opt)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var pwo post.PostWithOID
		if err := cur.Decode(&pwo); err != nil {
			return nil, err
		}
		arr = append(arr, pwo.ToPost())
	}
	return arr, cur.Err()
}

func (m *MongoStorage) findUsers(ctx context.Context, filter bson.M) ([]user.User, error) {
	opt := options.Find()
	opt.SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.Users.Find(ctx, filter, opt)
	if err != nil {
		return nil, err
	}
	arr := make([]user.User, 0)
	if err := cur.All(ctx, &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

func (m *MongoStorage) followIds(ctx context.Context, filter bson.M, field string) ([]int64, error) {
	cur, err := m.Follows.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []followDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		if field == "userId" {
			ids = append(ids, d.UserId)
		} else {
			ids = append(ids, d.FollowingId)
		}
	}
	return ids, nil
}

func (m *MongoStorage) checkUsers(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		n, err := m.Users.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}
	}
	return nil
}
