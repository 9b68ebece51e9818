package main

import "whop-scraper/cmd"

func main() {
	cmd.Execute()
}
