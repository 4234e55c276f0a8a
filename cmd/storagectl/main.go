package main

import "simplestorage/cmd/storagectl/cmd"

func main() {
	cmd.Execute()
}
