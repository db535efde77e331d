package main

import "compliance-calendar/internal/cli"

func main() {
	cli.Execute()
}
