package document

// BulkResult reports a multi-target action. Each target is applied on its
// own; a failing target is skipped rather than aborting the batch.
type BulkResult struct {
	Applied []string         `json:"applied"`
	Skipped map[string]error `json:"-"`
}

func (r BulkResult) AppliedCount() int { return len(r.Applied) }
func (r BulkResult) SkippedCount() int { return len(r.Skipped) }

// ApplyEach runs fn for every distinct control number in order.
func ApplyEach(controlNumbers []string, fn func(controlNumber string) error) BulkResult {
	res := BulkResult{Skipped: map[string]error{}}
	seen := make(map[string]struct{}, len(controlNumbers))
	for _, cn := range controlNumbers {
		if _, dup := seen[cn]; dup {
			continue
		}
		seen[cn] = struct{}{}
		if err := fn(cn); err != nil {
			res.Skipped[cn] = err
			continue
		}
		res.Applied = append(res.Applied, cn)
	}
	return res
}
