package server

// ANSI colours for the DEV route log.
const (
	colourGreen   = "\033[32m"
	colourYellow  = "\033[33m"
	colourBlue    = "\033[34m"
	colourMagenta = "\033[35m"
	colourCyan    = "\033[36m"
	colourGray    = "\033[90m"

	colourReset = "\033[0m"
)

var methodColours = map[string]string{
	"GET":    colourGreen,
	"POST":   colourBlue,
	"PUT":    colourCyan,
	"DELETE": colourYellow,
	"PATCH":  colourMagenta,
}
