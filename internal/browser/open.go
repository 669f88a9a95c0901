package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener opens a URL in a new browser tab.
type Opener func(url string) error

// Open opens the specified URL in the user's default browser.
func Open(url string) error {
	return command(runtime.GOOS, url).Start()
}

func command(goos, url string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.Command("xdg-open", url)
	}
}

// OpenOrPrint opens url and, when no browser can be launched, prints it instead.
func OpenOrPrint(url string) {
	if err := Open(url); err != nil {
		fmt.Printf("Could not open browser. Visit this URL manually:\n  %s\n", url)
	}
}
