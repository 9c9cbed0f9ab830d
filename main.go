package main

import "github.com/hanifm/expense-approval/cmd"

func main() {
	cmd.Execute()
}
