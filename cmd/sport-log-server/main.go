package main

import "github.com/gaogaogoo/sport-log/cmd/sport-log-server/cmd"

func main() {
	cmd.Execute()
}
