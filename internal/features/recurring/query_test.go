package recurring

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memRecords struct {
	docs []map[string]interface{}
}

func (r *memRecords) Create(ctx context.Context, tenantID primitive.ObjectID, targetType string, data map[string]interface{}) (string, error) {
	return "", nil
}

func (r *memRecords) Get(ctx context.Context, tenantID primitive.ObjectID, targetType, id string) (map[string]interface{}, error) {
	return nil, nil
}

func (r *memRecords) Update(ctx context.Context, tenantID primitive.ObjectID, targetType, id string, fields map[string]interface{}) error {
	return nil
}

func (r *memRecords) SoftDelete(ctx context.Context, tenantID primitive.ObjectID, targetType, id string) error {
	return nil
}

func (r *memRecords) List(ctx context.Context, tenantID primitive.ObjectID, targetType string, filter map[string]interface{}, limit int64) ([]map[string]interface{}, error) {
	return r.docs, nil
}

func TestResolverFixedList(t *testing.T) {
	resolver := NewTargetResolver(&memRecords{})
	job := &RecurringJob{
		TenantID:  primitive.NewObjectID(),
		Selection: SelectionCriteria{TargetIDs: []string{"a", "b"}},
	}

	ids, err := resolver.Resolve(context.Background(), job)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" {
		t.Errorf("got %v, want fixed list", ids)
	}
}

func TestResolverFilterExpression(t *testing.T) {
	pending := primitive.NewObjectID()
	paid := primitive.NewObjectID()
	old := primitive.NewObjectID()
	records := &memRecords{docs: []map[string]interface{}{
		{"_id": pending, "status": "pending", "amount": int64(250)},
		{"_id": paid, "status": "paid", "amount": int64(900)},
		{"_id": old, "status": "pending", "amount": int64(40)},
	}}

	resolver := NewTargetResolver(records)
	job := &RecurringJob{
		TenantID:   primitive.NewObjectID(),
		TargetType: "invoices",
		Selection:  SelectionCriteria{Filter: `doc.status == "pending" && doc.amount > 100`},
	}

	ids, err := resolver.Resolve(context.Background(), job)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != pending.Hex() {
		t.Errorf("got %v, want only the pending high-amount invoice", ids)
	}
}

func TestResolverRejectsBadFilter(t *testing.T) {
	resolver := NewTargetResolver(&memRecords{docs: []map[string]interface{}{{"_id": "x"}}})
	job := &RecurringJob{
		TenantID:   primitive.NewObjectID(),
		TargetType: "invoices",
		Selection:  SelectionCriteria{Filter: `doc.status ==`},
	}

	if _, err := resolver.Resolve(context.Background(), job); err == nil {
		t.Error("expected compile error for malformed filter")
	}
}

func TestResolverRequiresSelection(t *testing.T) {
	resolver := NewTargetResolver(&memRecords{})
	job := &RecurringJob{TenantID: primitive.NewObjectID(), TargetType: "invoices"}

	if _, err := resolver.Resolve(context.Background(), job); err == nil {
		t.Error("expected error for empty selection")
	}
}
