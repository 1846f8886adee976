// Package mongostore implements the storage backend over two MongoDB
// collections, "folders" and "files".
//
// Folder names are unique per parent and file names unique per folder,
// enforced by partial unique indexes over live (non-trashed) documents.
// Record payloads are small JSON blobs, so content lives inline on the file
// document rather than in GridFS.
package mongostore

import (
	"context"
	"regexp"
	"time"

	"github.com/dalemusser/evalhub/internal/storage"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	folders *mongo.Collection
	files   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		folders: db.Collection("folders"),
		files:   db.Collection("files"),
	}
}

// EnsureIndexes creates the uniqueness and lookup indexes the store relies
// on. Called from schema bootstrap.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	live := bson.M{"trashed": false}
	_, err := s.folders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "parent_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).
			SetPartialFilterExpression(live),
	})
	if err != nil {
		return err
	}
	_, err = s.files.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "folder_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).
			SetPartialFilterExpression(live),
	})
	if err != nil {
		return err
	}
	_, err = s.files.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name_ci", Value: 1}},
	})
	return err
}

type folderDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	NameCI    string             `bson:"name_ci"`
	ParentID  string             `bson:"parent_id"`
	CreatedAt time.Time          `bson:"created_at"`
	Trashed   bool               `bson:"trashed"`
	TrashedAt time.Time          `bson:"trashed_at,omitempty"`
}

type fileDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Name       string             `bson:"name"`
	NameCI     string             `bson:"name_ci"`
	FolderID   string             `bson:"folder_id"`
	Content    []byte             `bson:"content"`
	CreatedAt  time.Time          `bson:"created_at"`
	ModifiedAt time.Time          `bson:"modified_at"`
	Trashed    bool               `bson:"trashed"`
	TrashedAt  time.Time          `bson:"trashed_at,omitempty"`
}

func (d folderDoc) meta() storage.Folder {
	return storage.Folder{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		ParentID:  d.ParentID,
		CreatedAt: d.CreatedAt,
	}
}

func (d fileDoc) meta() storage.File {
	return storage.File{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		FolderID:   d.FolderID,
		CreatedAt:  d.CreatedAt,
		ModifiedAt: d.ModifiedAt,
		Trashed:    d.Trashed,
	}
}

func (s *Store) EnsureFolder(ctx context.Context, parentID, name string) (storage.Folder, error) {
	f, err := s.FindFolder(ctx, parentID, name)
	if err == nil {
		return f, nil
	}
	if err != storage.ErrNotFound {
		return storage.Folder{}, err
	}
	doc := folderDoc{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.folders.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			// Lost the create race; the winner's folder is the one.
			return s.FindFolder(ctx, parentID, name)
		}
		return storage.Folder{}, err
	}
	return doc.meta(), nil
}

func (s *Store) FindFolder(ctx context.Context, parentID, name string) (storage.Folder, error) {
	var d folderDoc
	err := s.folders.FindOne(ctx, bson.M{
		"parent_id": parentID,
		"name":      name,
		"trashed":   false,
	}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return storage.Folder{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Folder{}, err
	}
	return d.meta(), nil
}

func (s *Store) ListFiles(ctx context.Context, folderID string) ([]storage.File, error) {
	cur, err := s.files.Find(ctx,
		bson.M{"folder_id": folderID, "trashed": false},
		options.Find().SetProjection(bson.M{"content": 0}).SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []storage.File
	for cur.Next(ctx) {
		var d fileDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.meta())
	}
	return out, cur.Err()
}

func (s *Store) WriteFile(ctx context.Context, folderID, name string, data []byte) (storage.File, error) {
	now := time.Now().UTC()
	filter := bson.M{"folder_id": folderID, "name": name, "trashed": false}
	update := bson.M{
		"$set": bson.M{
			"name_ci":     text.Fold(name),
			"content":     data,
			"modified_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"content": 0})
	var d fileDoc
	if err := s.files.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d); err != nil {
		return storage.File{}, err
	}
	return d.meta(), nil
}

func (s *Store) ReadFile(ctx context.Context, fileID string) (storage.File, []byte, error) {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return storage.File{}, nil, storage.ErrNotFound
	}
	var d fileDoc
	err = s.files.FindOne(ctx, bson.M{"_id": oid, "trashed": false}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return storage.File{}, nil, storage.ErrNotFound
	}
	if err != nil {
		return storage.File{}, nil, err
	}
	return d.meta(), d.Content, nil
}

func (s *Store) Trash(ctx context.Context, itemID string) error {
	oid, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return storage.ErrNotFound
	}
	set := bson.M{"$set": bson.M{"trashed": true, "trashed_at": time.Now().UTC()}}

	res, err := s.files.UpdateOne(ctx, bson.M{"_id": oid, "trashed": false}, set)
	if err != nil {
		return err
	}
	if res.ModifiedCount > 0 {
		return nil
	}

	res, err = s.folders.UpdateOne(ctx, bson.M{"_id": oid, "trashed": false}, set)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return storage.ErrNotFound
	}
	return s.trashDescendants(ctx, itemID)
}

// trashDescendants marks every file and folder under folderID trashed.
// Each level is a separate update; a failure part-way leaves the subtree
// partially trashed, consistent with the backend's non-transactional model.
func (s *Store) trashDescendants(ctx context.Context, folderID string) error {
	set := bson.M{"$set": bson.M{"trashed": true, "trashed_at": time.Now().UTC()}}
	if _, err := s.files.UpdateMany(ctx, bson.M{"folder_id": folderID, "trashed": false}, set); err != nil {
		return err
	}
	cur, err := s.folders.Find(ctx, bson.M{"parent_id": folderID, "trashed": false})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var children []string
	for cur.Next(ctx) {
		var d folderDoc
		if err := cur.Decode(&d); err != nil {
			return err
		}
		children = append(children, d.ID.Hex())
	}
	if err := cur.Err(); err != nil {
		return err
	}
	for _, id := range children {
		oid, _ := primitive.ObjectIDFromHex(id)
		if _, err := s.folders.UpdateOne(ctx, bson.M{"_id": oid}, set); err != nil {
			return err
		}
		if err := s.trashDescendants(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SearchFiles(ctx context.Context, nameContains string) ([]storage.File, error) {
	pattern := regexp.QuoteMeta(text.Fold(nameContains))
	cur, err := s.files.Find(ctx,
		bson.M{
			"name_ci": bson.M{"$regex": pattern},
			"trashed": false,
		},
		options.Find().SetProjection(bson.M{"content": 0}).SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []storage.File
	for cur.Next(ctx) {
		var d fileDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.meta())
	}
	return out, cur.Err()
}

// PurgeTrashed permanently removes trashed files and folders whose trash
// time is before cutoff, returning the number of documents removed.
func (s *Store) PurgeTrashed(ctx context.Context, cutoff time.Time) (int, error) {
	filter := bson.M{"trashed": true, "trashed_at": bson.M{"$lt": cutoff}}

	files, err := s.files.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	folders, err := s.folders.DeleteMany(ctx, filter)
	if err != nil {
		return int(files.DeletedCount), err
	}
	return int(files.DeletedCount + folders.DeletedCount), nil
}
