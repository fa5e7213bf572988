package main

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	Dir        string // supervisor context directory
	ConfigPath string // .ccp.toml; defaults to <dir>/.ccp.toml
	LogLevel   string
}

// StartFlags Flag structs to decouple cobra from logic for testing.
type StartFlags struct {
	Foreground bool
	Auto       bool
}

type LogsFlags struct {
	Lines int
}

type ServeFlags struct {
	Addr     string
	BasePath string
	Stdio    bool
}

type HistoryFlags struct {
	Limit int
}
