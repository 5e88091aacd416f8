package main

import "github.com/pierrelecouillard-ui/ffe-pre-engage/cmd"

func main() {
	cmd.Execute()
}
