package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"lifequest/internal/engine"
	"lifequest/internal/storage"
)

// Backend is the part of engine.Service the board drives.
type Backend interface {
	GetCharacter(ctx context.Context, opts engine.ReadOptions) (*storage.Character, error)
	ListQuests(ctx context.Context, opts engine.ReadOptions) ([]storage.Quest, error)
	SetQuestStatus(ctx context.Context, id string, status engine.QuestStatus) (*engine.TransitionResult, error)
	ToggleSubtask(ctx context.Context, id string, index int) (*engine.TransitionResult, error)
}

func RunBoard(ctx context.Context, svc Backend, out io.Writer) error {
	m := newBoardModel(ctx, svc)
	p := tea.NewProgram(m, tea.WithOutput(out))
	_, err := p.Run()
	return err
}
