// Package mongo implements store.Store on MongoDB using the collection and
// field names of the legacy "blog" database, so an existing deployment's
// data can be served as is.
//
// Post creation is not transactional here (standalone servers have no
// multi-document transactions): the id is allocated with a single
// find-and-increment, so concurrent creators never collide, but an insert
// that fails after allocation leaves a gap.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	counterCollection  = "counter"
	postsCollection    = "posts"
	commentsCollection = "comment"
	likesCollection    = "like"
	counterName        = "counter"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

type userDoc struct {
	UserID    string    `bson:"userid"`
	Username  string    `bson:"username"`
	Password  string    `bson:"pw"`
	CreatedAt time.Time `bson:"createAtDate,omitempty"`
}

type counterDoc struct {
	Name      string `bson:"name"`
	TotalPost int64  `bson:"totalPost"`
}

type postDoc struct {
	ID        int64     `bson:"_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createAtDate"`
	UserID    string    `bson:"userid"`
	Username  string    `bson:"username"`
	ImagePath *string   `bson:"postImgPath"`
}

type commentDoc struct {
	PostID    int64     `bson:"post_id"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"createAtDate"`
	UserID    string    `bson:"userid"`
	Username  string    `bson:"username"`
}

type likeDoc struct {
	PostID  int64    `bson:"post_id"`
	Total   int      `bson:"likeTotal"`
	Members []string `bson:"likeMember"`
}

// Open connects to uri, selects database and ensures the indexes the store
// relies on for uniqueness.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{usersCollection, mongo.IndexModel{Keys: bson.D{{Key: "userid", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{counterCollection, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{likesCollection, mongo.IndexModel{Keys: bson.D{{Key: "post_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{postsCollection, mongo.IndexModel{Keys: bson.D{{Key: "createAtDate", Value: -1}, {Key: "_id", Value: -1}}}},
		{postsCollection, mongo.IndexModel{Keys: bson.D{{Key: "userid", Value: 1}, {Key: "createAtDate", Value: -1}}}},
		{commentsCollection, mongo.IndexModel{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "createAtDate", Value: -1}}}},
	}
	for _, idx := range indexes {
		if _, err := s.db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create %s index: %w", idx.collection, err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.Collection(usersCollection).InsertOne(ctx, userDoc{
		UserID:    user.UserID,
		Username:  user.Username,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateUser
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, userID string) (model.User, error) {
	var doc userDoc
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"userid": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	return model.User{UserID: doc.UserID, Username: doc.Username, PasswordHash: doc.Password, CreatedAt: doc.CreatedAt}, nil
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	id, err := s.allocatePostID(ctx)
	if err != nil {
		return 0, err
	}
	doc := postDoc{
		ID:        id,
		Title:     post.Title,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
		UserID:    post.AuthorID,
		Username:  post.AuthorName,
		ImagePath: optional(post.ImagePath),
	}
	if _, err := s.db.Collection(postsCollection).InsertOne(ctx, doc); err != nil {
		return 0, err
	}
	if _, err := s.db.Collection(likesCollection).InsertOne(ctx, likeDoc{PostID: id, Members: []string{}}); err != nil {
		// Without the ledger the post could never be liked; undo it.
		_, _ = s.db.Collection(postsCollection).DeleteOne(ctx, bson.M{"_id": id})
		return 0, err
	}
	return id, nil
}

// allocatePostID is a single atomic find-and-increment on the counter. The
// upsert seeds the counter on a fresh database.
func (s *Store) allocatePostID(ctx context.Context) (int64, error) {
	var doc counterDoc
	err := s.db.Collection(counterCollection).FindOneAndUpdate(ctx,
		bson.M{"name": counterName},
		bson.M{"$inc": bson.M{"totalPost": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("allocate post id: %w", err)
	}
	return doc.TotalPost, nil
}

func (s *Store) PostCounter(ctx context.Context) (int64, error) {
	var doc counterDoc
	err := s.db.Collection(counterCollection).FindOne(ctx, bson.M{"name": counterName}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	return doc.TotalPost, err
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	var doc postDoc
	err := s.db.Collection(postsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	return doc.toModel(), nil
}

func (s *Store) UpdatePost(ctx context.Context, id int64, edit model.PostEdit) error {
	res, err := s.db.Collection(postsCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":        edit.Title,
		"content":      edit.Content,
		"createAtDate": edit.CreatedAt,
		"postImgPath":  optional(edit.ImagePath),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.Collection(postsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, error) {
	filter := bson.M{}
	if opts.AuthorID != "" {
		filter["userid"] = opts.AuthorID
	}
	find := options.Find().
		SetSort(bson.D{{Key: "createAtDate", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(max(opts.Offset, 0)))
	if opts.Limit > 0 {
		find.SetLimit(int64(opts.Limit))
	}
	cur, err := s.db.Collection(postsCollection).Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	posts := make([]model.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, doc.toModel())
	}
	return posts, nil
}

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) error {
	_, err := s.db.Collection(commentsCollection).InsertOne(ctx, commentDoc{
		PostID:    comment.PostID,
		Comment:   comment.Body,
		CreatedAt: comment.CreatedAt,
		UserID:    comment.AuthorID,
		Username:  comment.AuthorName,
	})
	return err
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	find := options.Find().SetSort(bson.D{{Key: "createAtDate", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.db.Collection(commentsCollection).Find(ctx, bson.M{"post_id": postID}, find)
	if err != nil {
		return nil, err
	}
	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	comments := make([]model.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, model.Comment{
			PostID:     d.PostID,
			Body:       d.Comment,
			CreatedAt:  d.CreatedAt,
			AuthorID:   d.UserID,
			AuthorName: d.Username,
		})
	}
	return comments, nil
}

func (s *Store) GetLike(ctx context.Context, postID int64) (model.Like, error) {
	var doc likeDoc
	err := s.db.Collection(likesCollection).FindOne(ctx, bson.M{"post_id": postID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Like{}, store.ErrNotFound
		}
		return model.Like{}, err
	}
	return doc.toModel(), nil
}

// ToggleLike is two conditional find-and-modify attempts. Each matches only
// when the membership precondition holds, so the set change and the counter
// change land in the same document write.
func (s *Store) ToggleLike(ctx context.Context, postID int64, userID string) (model.LikeResult, error) {
	likes := s.db.Collection(likesCollection)
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc likeDoc
	err := likes.FindOneAndUpdate(ctx,
		bson.M{"post_id": postID, "likeMember": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likeMember": userID}, "$inc": bson.M{"likeTotal": 1}},
		after,
	).Decode(&doc)
	if err == nil {
		return model.LikeResult{PostID: postID, Total: doc.Total, Liked: true}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return model.LikeResult{}, err
	}

	err = likes.FindOneAndUpdate(ctx,
		bson.M{"post_id": postID, "likeMember": userID},
		bson.M{"$pull": bson.M{"likeMember": userID}, "$inc": bson.M{"likeTotal": -1}},
		after,
	).Decode(&doc)
	if err == nil {
		return model.LikeResult{PostID: postID, Total: doc.Total, Liked: false}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return model.LikeResult{}, err
	}

	n, err := likes.CountDocuments(ctx, bson.M{"post_id": postID})
	if err != nil {
		return model.LikeResult{}, err
	}
	if n == 0 {
		return model.LikeResult{}, store.ErrNotFound
	}
	return model.LikeResult{}, store.ErrConflict
}

func (d postDoc) toModel() model.Post {
	p := model.Post{
		ID:         d.ID,
		Title:      d.Title,
		Content:    d.Content,
		CreatedAt:  d.CreatedAt,
		AuthorID:   d.UserID,
		AuthorName: d.Username,
	}
	if d.ImagePath != nil {
		p.ImagePath = *d.ImagePath
	}
	return p
}

func (d likeDoc) toModel() model.Like {
	members := d.Members
	if members == nil {
		members = []string{}
	}
	return model.Like{PostID: d.PostID, Total: d.Total, Members: members}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
