package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
)

const collectionProjects = "projects"

type ProjectRepository struct {
	col *mongo.Collection
}

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{col: db.Collection(collectionProjects)}
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.Project
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, readErr("find project", err)
	}
	return &p, nil
}

// FindMany returns projects newest first. A MemberID restricts the result to
// projects listing that user, a ManagerID to projects that user manages.
func (r *ProjectRepository) FindMany(ctx context.Context, f ports.ProjectFilter) ([]*domain.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.MemberID != "" {
		filter["member_ids"] = f.MemberID
	}
	if f.ManagerID != "" {
		filter["manager_id"] = f.ManagerID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(f.Limit)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, readErr("list projects", err)
	}
	defer cur.Close(ctx)

	projects := make([]*domain.Project, 0)
	if err := cur.All(ctx, &projects); err != nil {
		return nil, readErr("list projects", err)
	}
	return projects, nil
}

func (r *ProjectRepository) Insert(ctx context.Context, p *domain.Project) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, p); err != nil {
		return writeErr("insert project", err)
	}
	return nil
}

func (r *ProjectRepository) UpdateReturning(ctx context.Context, id string, p domain.ProjectPatch) (*domain.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": p.UpdatedAt}
	setIf(set, "name", p.Name)
	setIf(set, "description", p.Description)
	setIf(set, "manager_id", p.ManagerID)
	setIf(set, "member_ids", p.MemberIDs)
	setIf(set, "image_urls", p.ImageURLs)
	setIf(set, "start_date", p.StartDate)
	setIf(set, "deadline", p.Deadline)

	res := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if err := res.Err(); err != nil {
		return nil, writeErr("update project", err)
	}
	var out domain.Project
	if err := res.Decode(&out); err != nil {
		return nil, nil
	}
	return &out, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, writeErr("delete project", err)
	}
	return res.DeletedCount, nil
}

func (r *ProjectRepository) PullMember(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx,
		bson.M{"member_ids": userID},
		bson.M{"$pull": bson.M{"member_ids": userID}},
	)
	if err != nil {
		return 0, writeErr("remove member", err)
	}
	return res.ModifiedCount, nil
}

// EnsureIndexes creates necessary indexes on the projects collection.
func (r *ProjectRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_ids", Value: 1}}},
		{Keys: bson.D{{Key: "manager_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
