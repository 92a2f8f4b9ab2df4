// Package aggregate derives view data from already-fetched collections.
// Every function is pure: no store calls, no clocks except where a reference
// time is passed in explicitly.
package aggregate

import (
	"math"

	"projecttracker/internal/model"
)

type Progress struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Percent int `json:"percent"`
}

// MilestoneProgress reports task completion for one milestone's tasks.
// Percent is 0 when there are no tasks.
func MilestoneProgress(tasks []model.Task) Progress {
	if len(tasks) == 0 {
		return Progress{}
	}

	done := 0
	for _, t := range tasks {
		if t.Status == model.TaskDone {
			done++
		}
	}

	percent := int(math.Round(float64(done) / float64(len(tasks)) * 100))
	return Progress{Total: len(tasks), Done: done, Percent: percent}
}

type Summary struct {
	MilestoneCount int    `json:"milestoneCount"`
	TaskCount      int    `json:"taskCount"`
	DoneTaskCount  int    `json:"doneTaskCount"`
	NextDue        *int64 `json:"nextDue"`
}

// ProjectSummary condenses a project's milestones and tasks into card data.
// NextDue is the earliest milestone due date, absent when no milestone has
// one.
func ProjectSummary(milestones []model.Milestone, tasks []model.Task) Summary {
	s := Summary{MilestoneCount: len(milestones), TaskCount: len(tasks)}

	for _, t := range tasks {
		if t.Status == model.TaskDone {
			s.DoneTaskCount++
		}
	}

	for _, m := range milestones {
		if m.DueDate == nil {
			continue
		}
		if s.NextDue == nil || *m.DueDate < *s.NextDue {
			due := *m.DueDate
			s.NextDue = &due
		}
	}

	return s
}

// GroupByStatus partitions tasks into the four status buckets, preserving
// input order within each bucket. All four buckets are present even when
// empty so board columns always render.
func GroupByStatus(tasks []model.Task) map[model.TaskStatus][]model.Task {
	grouped := map[model.TaskStatus][]model.Task{
		model.TaskBacklog:    {},
		model.TaskInProgress: {},
		model.TaskBlocked:    {},
		model.TaskDone:       {},
	}
	for _, t := range tasks {
		grouped[t.Status] = append(grouped[t.Status], t)
	}
	return grouped
}

// GroupByMilestone buckets a project's tasks by parent milestone. Tasks with
// no milestone reference are skipped; they cannot render under any card.
func GroupByMilestone(tasks []model.Task) map[string][]model.Task {
	grouped := make(map[string][]model.Task)
	for _, t := range tasks {
		if t.MilestoneID == "" {
			continue
		}
		grouped[t.MilestoneID] = append(grouped[t.MilestoneID], t)
	}
	return grouped
}

type StatusColumn struct {
	Status model.TaskStatus `json:"status"`
	Label  string           `json:"label"`
}

// StatusColumns returns the fixed board columns in display order.
func StatusColumns() []StatusColumn {
	return []StatusColumn{
		{Status: model.TaskBacklog, Label: "Backlog"},
		{Status: model.TaskInProgress, Label: "In Progress"},
		{Status: model.TaskBlocked, Label: "Blocked"},
		{Status: model.TaskDone, Label: "Done"},
	}
}
