package main

import (
	"profrank-backend/cmd/profrank/commands"
	"profrank-backend/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
