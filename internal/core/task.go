package core

import (
	"context"
	"fmt"
	"time"
)

// ClassificationTask is one conversation's aggregated text awaiting a label
type ClassificationTask struct {
	ScanID   string
	Identity string
	Input    AggregatedInput
}

// TaskResult is the outcome of running a ClassificationTask
type TaskResult struct {
	Task     ClassificationTask
	Label    Label
	Err      error
	Duration time.Duration
}

// RunTask classifies task.Input. Classifier errors, invalid labels and panics
// never escape: they yield LabelError with Err describing the failure.
func RunTask(ctx context.Context, classifier Classifier, task ClassificationTask, timeout time.Duration) (res TaskResult) {
	start := time.Now()
	res = TaskResult{Task: task}

	defer func() {
		if r := recover(); r != nil {
			res.Label = LabelError
			res.Err = NewScanError(KindClassification, "classify", task.Identity, fmt.Errorf("classifier panic: %v", r))
		}
		res.Duration = time.Since(start)
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	label, err := classifier.Classify(ctx, string(task.Input))
	if err != nil {
		res.Label = LabelError
		res.Err = NewScanError(KindClassification, "classify", task.Identity, err)
		return res
	}
	if !label.Valid() {
		res.Label = LabelError
		res.Err = NewScanError(KindClassification, "classify", task.Identity, fmt.Errorf("%w: %q", ErrInvalidLabel, label))
		return res
	}

	res.Label = label
	return res
}
