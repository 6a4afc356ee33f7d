package main

import "github.com/partybook/settlement-service/cmd"

func main() {
	cmd.Execute()
}
