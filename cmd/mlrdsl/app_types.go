package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/mlrdsl/config"
)

type appConfig struct {
	cfg    config.Config
	source string
	inputs []string
	quiet  bool
	filter bool
	stack  bool
}

type runStartedMsg struct {
	events <-chan tea.Msg
}

// runOutputMsg carries one line of stdout or stderr from the running program.
type runOutputMsg struct {
	text   string
	stderr bool
}

type runDoneMsg struct {
	err error
}

type runPollMsg struct{}
