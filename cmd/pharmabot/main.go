// Command pharmabot runs the pharmacy lookup bot.
package main

import "github.com/mrwersa/saba-pharma-bot/cmd"

func main() {
	cmd.Execute()
}
