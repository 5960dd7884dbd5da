package main

import "github.com/chative/appointment-assistant/internal/cli"

func main() {
	cli.Execute()
}
