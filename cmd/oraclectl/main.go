package main

import "priceoracle/internal/cli"

func main() {
	cli.Execute()
}
