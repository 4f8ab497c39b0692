package main

import "github.com/information-sharing-networks/passbook/internal/cli"

func main() {
	cli.Execute()
}
