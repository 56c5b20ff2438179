package main

import "github.com/Mohsinsiddi/tsender/cmd"

func main() {
	cmd.Execute()
}
