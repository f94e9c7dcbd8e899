package main

import "github.com/irlrobot/garlc/cmd/garlc/cmd"

func main() {
	cmd.Execute()
}
