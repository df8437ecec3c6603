package main

import "github.com/danmechanic/glucid/internal/cli"

func main() {
	cli.Execute()
}
