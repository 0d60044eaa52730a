package main

import "github.com/gopheryan/smokey/cmd/smokey/commands"

func main() {
	commands.Execute()
}
