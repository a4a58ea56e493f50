package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lu-zhengda/mailboard/internal/store"
)

// printJSON writes v to stdout as indented JSON for --json output.
func printJSON(v any) error {
	return fprintJSON(os.Stdout, v)
}

func fprintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

type jsonTask struct {
	ThreadID         string  `json:"thread_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	Priority         string  `json:"priority,omitempty"`
	BusinessCategory string  `json:"business_category,omitempty"`
	DueDate          string  `json:"due_date,omitempty"`
	Category         string  `json:"category"`
	Confidence       float64 `json:"confidence"`
	CreatedAt        string  `json:"created_at"`
}

func toJSONTasks(tasks []store.TaskRecord) []jsonTask {
	out := make([]jsonTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, jsonTask{
			ThreadID:         t.ThreadID,
			Title:            t.Title,
			Description:      t.Description,
			Priority:         t.Priority,
			BusinessCategory: t.BusinessCategory,
			DueDate:          t.DueDate,
			Category:         t.Category,
			Confidence:       t.Confidence,
			CreatedAt:        t.CreatedAt.Format(time.DateOnly),
		})
	}
	return out
}
