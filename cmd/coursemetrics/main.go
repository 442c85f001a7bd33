package main

import (
	"context"

	"coursemetrics/cmd/coursemetrics/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
