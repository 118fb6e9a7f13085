// Command medimate is a terminal chat client for the MediMate health assistant.
package main

import "github.com/diogo/medimate/internal/commands"

func main() {
	commands.Execute()
}
