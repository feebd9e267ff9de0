package main

import "github.com/devbydaniel/a11yverify/cmd"

func main() {
	cmd.Execute()
}
