package main

import "github.com/jcdickinson/xmldocmd/cmd"

func main() {
	cmd.Execute()
}
