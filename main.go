package main

import "github.com/gaurav-prasanna/postpress/cmd"

func main() {
	cmd.Execute()
}
