package recurring

import (
	"context"
	"fmt"

	"go-fundadmin/internal/features/record"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultQueryLimit = 1000

// TargetResolver turns a job's selection criteria into a concrete target-id
// list at run time.
type TargetResolver interface {
	Resolve(ctx context.Context, job *RecurringJob) ([]string, error)
}

// filterResolver evaluates the selection's filter expression against each
// candidate record. The expression sees the record as `doc` and must yield a
// boolean, e.g. `doc.status == "pending" && doc.amount > 100`.
type filterResolver struct {
	records record.RecordRepository
}

func NewTargetResolver(records record.RecordRepository) TargetResolver {
	return &filterResolver{records: records}
}

func (r *filterResolver) Resolve(ctx context.Context, job *RecurringJob) ([]string, error) {
	if len(job.Selection.TargetIDs) > 0 {
		return job.Selection.TargetIDs, nil
	}
	if job.Selection.Filter == "" {
		return nil, fmt.Errorf("selection has neither target_ids nor filter")
	}

	limit := job.Selection.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	docs, err := r.records.List(ctx, job.TenantID, job.TargetType, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	compiled, err := compileFilter(job.Selection.Filter)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, doc := range docs {
		match, err := evalFilter(compiled, doc)
		if err != nil {
			return nil, fmt.Errorf("filter evaluation failed: %w", err)
		}
		if !match {
			continue
		}
		if id, ok := doc["_id"].(primitive.ObjectID); ok {
			ids = append(ids, id.Hex())
		} else if id, ok := doc["_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func compileFilter(filter string) (*tengo.Compiled, error) {
	script := tengo.NewScript([]byte("match := " + filter))
	script.SetImports(stdlib.GetModuleMap("text", "math", "times"))
	if err := script.Add("doc", map[string]interface{}{}); err != nil {
		return nil, err
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return compiled, nil
}

func evalFilter(compiled *tengo.Compiled, doc map[string]interface{}) (bool, error) {
	if err := compiled.Set("doc", sanitize(doc)); err != nil {
		return false, err
	}
	if err := compiled.Run(); err != nil {
		return false, err
	}
	return compiled.Get("match").Bool(), nil
}

// sanitize maps Mongo-specific values onto types the script runtime accepts.
func sanitize(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case primitive.ObjectID:
			out[k] = val.Hex()
		case primitive.A:
			out[k] = []interface{}(val)
		case primitive.M:
			out[k] = sanitize(map[string]interface{}(val))
		case map[string]interface{}:
			out[k] = sanitize(val)
		case int32:
			out[k] = int64(val)
		default:
			out[k] = v
		}
	}
	return out
}
