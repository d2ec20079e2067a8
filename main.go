package main

import "github.com/wenzapen/scout/cmd"

func main() {
	cmd.Execute()
}
