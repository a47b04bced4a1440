package engine

import (
	"context"

	"lifequest/internal/storage"
)

// TaskProgress is the share of finished tasks as a percentage.
func TaskProgress(tasks []storage.QuestTask) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	return done * 100 / len(tasks)
}

// ToggleSubtask flips one task of a multi-step quest and recomputes progress.
// Finishing the last task completes the quest; unchecking a task of a
// completed quest reopens it.
func (s *Service) ToggleSubtask(ctx context.Context, id string, index int) (*TransitionResult, error) {
	return s.mutateQuest(ctx, id, func(q *storage.Quest) (QuestStatus, map[string]any, error) {
		if len(q.Tasks) == 0 {
			return "", nil, invalidInput("quest %s has no tasks", q.ID)
		}
		if index < 0 || index >= len(q.Tasks) {
			return "", nil, invalidInput("task %d out of range (quest has %d)", index+1, len(q.Tasks))
		}

		tasks := append([]storage.QuestTask(nil), q.Tasks...)
		tasks[index].Completed = !tasks[index].Completed
		progress := TaskProgress(tasks)

		from := parseStoredStatus(q.Status)
		to := from
		switch {
		case progress == 100:
			to = StatusCompleted
		case from == StatusCompleted, from == StatusAvailable:
			to = StatusInProgress
		}

		q.Tasks = tasks
		q.Progress = progress
		return to, map[string]any{"tasks": tasks, "progress": progress}, nil
	})
}

// FirstOpenTask returns the index of the first unfinished task, or -1.
func FirstOpenTask(q storage.Quest) int {
	for i, t := range q.Tasks {
		if !t.Completed {
			return i
		}
	}
	return -1
}
