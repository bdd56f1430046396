package main

import "github.com/frahmantamala/claim-workflow/cmd"

func main() {
	cmd.Execute()
}
