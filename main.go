package main

import "github.com/gregoriusjimmy/llm-council/cmd"

func main() {
	cmd.Execute()
}
