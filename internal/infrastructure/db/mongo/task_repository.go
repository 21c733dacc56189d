package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
)

const collectionTasks = "tasks"

type TaskRepository struct {
	col *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{col: db.Collection(collectionTasks)}
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t domain.Task
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, readErr("find task", err)
	}
	return &t, nil
}

// FindMany returns tasks matching every non-empty filter field, newest first.
func (r *TaskRepository) FindMany(ctx context.Context, f ports.TaskFilter) ([]*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.ProjectID != "" {
		filter["project_id"] = f.ProjectID
	}
	if f.AssigneeID != "" {
		filter["assignee_id"] = f.AssigneeID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(f.Limit)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, readErr("list tasks", err)
	}
	defer cur.Close(ctx)

	tasks := make([]*domain.Task, 0)
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, readErr("list tasks", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Insert(ctx context.Context, t *domain.Task) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, t); err != nil {
		return writeErr("insert task", err)
	}
	return nil
}

func (r *TaskRepository) UpdateReturning(ctx context.Context, id string, p domain.TaskPatch) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": p.UpdatedAt}
	setIf(set, "title", p.Title)
	setIf(set, "description", p.Description)
	setIf(set, "status", p.Status)
	setIf(set, "priority", p.Priority)
	setIf(set, "assignee_id", p.AssigneeID)
	setIf(set, "due_date", p.DueDate)
	setIf(set, "image_urls", p.ImageURLs)

	res := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if err := res.Err(); err != nil {
		return nil, writeErr("update task", err)
	}
	var out domain.Task
	if err := res.Decode(&out); err != nil {
		return nil, nil
	}
	return &out, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, writeErr("delete task", err)
	}
	return res.DeletedCount, nil
}

func (r *TaskRepository) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, writeErr("delete project tasks", err)
	}
	return res.DeletedCount, nil
}

func (r *TaskRepository) CountByProject(ctx context.Context, projectID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, readErr("count project tasks", err)
	}
	return n, nil
}

// Unassign clears the assignee of every task held by one of f.AssigneeIDs,
// optionally within a single project.
func (r *TaskRepository) Unassign(ctx context.Context, f ports.UnassignFilter) (int64, error) {
	if len(f.AssigneeIDs) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"assignee_id": bson.M{"$in": f.AssigneeIDs}}
	if f.ProjectID != "" {
		filter["project_id"] = f.ProjectID
	}
	res, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"assignee_id": ""}})
	if err != nil {
		return 0, writeErr("unassign tasks", err)
	}
	return res.ModifiedCount, nil
}

// EnsureIndexes creates necessary indexes on the tasks collection.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "assignee_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
