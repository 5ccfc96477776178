package pack

const (
	// VERSION is the current build version
	VERSION = "1.6.0"

	// EOL defines the char of end of line
	EOL = "\n"
)
