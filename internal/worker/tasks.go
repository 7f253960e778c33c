package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TypeEvaluateSubmission = "evaluate_submission"

type EvaluatePayload struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// NewEvaluateTask builds the task that grades one stored submission.
func NewEvaluateTask(kind, id string) (*asynq.Task, error) {
	b, err := json.Marshal(EvaluatePayload{Kind: kind, ID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEvaluateSubmission, b, asynq.MaxRetry(0)), nil
}

func parsePayload(t *asynq.Task) (EvaluatePayload, error) {
	var p EvaluatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	if p.Kind == "" || p.ID == "" {
		return p, fmt.Errorf("%s payload needs kind and id", t.Type())
	}
	return p, nil
}
