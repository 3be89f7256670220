package main

import "github.com/Brownie44l1/currency-api/internal/cli"

func main() {
	cli.Execute()
}
