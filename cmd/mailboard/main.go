package main

import "github.com/lu-zhengda/mailboard/internal/cli"

func main() {
	cli.Execute()
}
